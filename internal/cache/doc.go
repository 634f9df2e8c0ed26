// 版权所有 2024 twitterScraper Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的缓存管理与搜索结果缓存。

# 核心类型

  - Manager：缓存管理器，持有 Redis 客户端，所有键自动加上 KeyPrefix，
    提供 Get/Set/Ping，后台定期探活。
    Client() 暴露底层连接，供 Redis 调用账本复用。
  - SearchStore：按 (search_type, term) 缓存 /search 的结果。
    RedisSearchStore 依赖键过期，SQLSearchStore 落在 search_cache 表，
    按 last_searched_at 与 TTL 判断是否过期。

未命中或过期统一返回 ErrCacheMiss，使用 IsCacheMiss 判断。
*/
package cache
