// Copyright (c) twitterScraper Authors.
// Licensed under the MIT License.

/*
Package types 提供采集器各层共享的基础类型。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 workflow、collector、
ratelimit、api 等上层模块提供统一的错误码与 context 传播约定。

# 核心类型

  - Error / ErrorCode — 结构化错误，含 HTTP 状态码、Retryable、Collector 标记
  - IsFatal           — 判断工作流循环不可重试的配置类错误

# Context 传播

  - WithCollectorID / WithRunID / WithStep / WithRequestID
*/
package types
