// 版权所有 2024 twitterScraper Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 负责打开采集库连接并管理连接池。

# 概述

Open 按驱动名（sqlite、postgres、mysql）选择 GORM 方言，sqlite 默认
使用纯 Go 的 glebarez 驱动，GORM 日志经 zap 输出。PoolManager 封装
database/sql 的连接池参数，后台定时探活，并提供带重试的事务。

# 核心类型

  - PoolManager：持有 GORM DB 与底层 sql.DB，提供 DB()、Ping()、
    Stats()、Migrate()、Close()。
  - PoolConfig：最大空闲/打开连接数、生命周期与健康检查间隔。

# 主要能力

  - 事务管理：WithTransactionRetry 对死锁、序列化失败、sqlite 写锁与
    连接中断按指数退避重试。
  - 建表：Migrate 在重试事务中执行 AutoMigrate，供 migrate 子命令与
    serve 启动时使用。
*/
package database
