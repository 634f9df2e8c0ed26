// Copyright (c) twitterScraper Authors.
// Licensed under the MIT License.

/*
Package collector 将工作流引擎、限流器、批次调度与平台客户端组装为一个采集器身份。

# 概述

每个 Collector 拥有独立的平台会话、账号批次与暂停开关，在单个 goroutine 中
运行 workflow.Engine。交互式搜索（Search）在 HTTP goroutine 中执行，执行期间
暂停后台工作流，返回时恢复。

# 已注册动作

  - fetch_timeline           — 滚动主页时间线，按新内容比例调整阅读节奏
  - process_batch            — 处理当前账号批次并轮换
  - fetch_tweets             — 抓取单个账号推文，按概率关注
  - fetch_following          — 抓取关注列表（deep_crawl 读取更多页）
  - check_engagement         — 读取热门推文的回复
  - process_tweet_engagement — 深入处理已检查热门推文的高赞回复
  - process_mentions         — 重新提取近期推文的 @ 提及
  - process_thread           — 重新计算近期推文的会话位置

# 配置

Settings 通过 const 标签按名称寻址，合并顺序为：内置默认值 → 工作流常量 →
配置覆盖。未知常量名在加载期报错。
*/
package collector
