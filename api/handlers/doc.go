// Copyright (c) twitterScraper Authors.
// Licensed under the MIT License.

/*
Package handlers 提供采集器 HTTP API 的请求处理器。

# 核心类型

  - TweetHandler      GET /tweets，分页查询已存储推文
  - SearchHandler     GET /search，按 (search_type, term) 缓存搜索结果
  - CollectorHandler  采集器状态、暂停与恢复
  - HealthHandler     /health（数据库 ping）与 /ready（注册的检查）
  - Collectors        按配置顺序保存采集器，未知 id 退回默认采集器
  - Response          统一 JSON 响应结构（success + data + error + timestamp）

错误统一经 WriteError 输出，types.ErrorCode 映射到 HTTP 状态码；
非 *types.Error 的错误只记录日志，响应里为 internal error。
*/
package handlers
