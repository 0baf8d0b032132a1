/*
包 cache 提供基于 Redis 的缓存管理，目前用于缓存 DuckDuckGo 搜索结果，
使相同城市的重复规划不必再次请求搜索引擎。

  - Manager：Get/Set/GetJSON/SetJSON/Delete/Ping/Close，所有键带统一前缀。
  - FromAppConfig：由 config.RedisConfig 生成 Config。
  - GetStats：解析 INFO 输出的命中/未命中与内存占用。
  - ErrCacheMiss / IsCacheMiss：未命中的哨兵错误。
*/
package cache
