// Copyright (c) twitterScraper Authors.
// Licensed under the MIT License.

/*
Package workflow 提供采集器的步骤图定义与执行引擎。

# 概述

一个 Workflow 是由 Step 组成的有向图，每个采集器身份独占一个 Engine，
在单个 goroutine 中顺序执行步骤，直到 context 取消或到达终止步骤。
默认预设均为环形图，采集器会无限运行。

# 核心接口与类型

  - Step / Result      — 步骤定义与动作返回值（None / Bool / Count）
  - ChooseNextStep     — 分支规则：false 或 Count < 3 走最后一个后继，否则走第一个
  - Registry           — 静态动作注册表，Dispatch 时按声明过滤参数
  - PauseController    — 互斥写、原子读的暂停开关
  - Engine             — 主循环：暂停轮询、执行、限流检查、随机休眠、失败冷却重试
  - History            — 最近步骤执行记录

# 主要能力

  - 加载期校验：图结构、动作注册、参数名与类型（strict 模式下未知参数报错）
  - 预设：default / timeline_focused / engagement_focused / complete_workflow
  - YAML 工作流文件：Parse / LoadFile / Marshal
  - 可注入时钟与随机源，测试无需真实等待
  - 每个步骤一个 OpenTelemetry span，并上报 Prometheus 指标
*/
package workflow
