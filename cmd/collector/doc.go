// 版权所有 2024 twitterScraper Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package main 提供采集服务的可执行入口。

# 概述

cmd/collector 装配配置中的全部采集器，在同一进程内运行它们的工作流，
并在同一端口（默认 8000）提供查询与控制 API。

# 核心类型

  - App             — 一次 serve 运行的组件集合：数据库、缓存、限流、采集器、HTTP
  - Middleware      — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - PromptVerifier  — 登录要求验证码时在终端提示输入

# 主要能力

  - 子命令：serve、migrate、workflows、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、
    MetricsMiddleware、RequestLogger、RateLimiter（基于 IP）
  - 控制接口认证：配置 server.control_secret 后，pause/resume 需要 HS256 JWT
  - 优雅关闭：SIGINT/SIGTERM → 停止采集器与 HTTP → 关闭遥测、缓存、连接池
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
