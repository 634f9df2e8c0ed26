// 版权所有 2024 twitterScraper Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的采集器指标，覆盖 HTTP、平台调用、
限流、工作流、缓存与数据库几个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制。所有指标按 namespace 隔离，collector_id 作为主要 label。
Collector 的记录方法对 nil 接收者安全。

# 主要能力

  - 平台调用：按 collector_id/endpoint 首段计数。
  - 限流：soft/hard/precall 三档冷却次数与时长分布。
  - 工作流：步骤执行次数与耗时、失败冷却次数、暂停状态 Gauge、
    批次轮换次数。
  - 采集结果：新入库条目数，按 kind 分组。
  - HTTP、缓存命中率、数据库连接池。
*/
package metrics
