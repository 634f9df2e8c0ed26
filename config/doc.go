// Copyright (c) twitterScraper Authors.
// Licensed under the MIT License.

// Package config 提供采集服务的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → COLLECTOR_ 前缀环境变量 的顺序叠加，
// 旧版单采集器环境变量（TWITTER_USER、PROXY_HOST 等）作用于 ID 为
// "default" 的采集器。Validate 汇总全部错误后一次返回。
package config
