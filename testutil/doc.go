// 版权所有 2024 twitterScraper Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package testutil 提供各包测试共用的辅助函数。

# 核心能力

  - TestContext: 带 30 秒超时的上下文，测试结束时自动取消
  - NewSQLiteDB: 每个测试独立的内存 SQLite（glebarez/sqlite，纯 Go），
    按需迁移模型，连接数限制为 1
*/
package testutil
