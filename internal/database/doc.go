/*
包 database 提供基于 GORM 的数据库打开与连接池管理，
用于持久化行程规划历史。

# 核心类型

  - PoolManager：持有 GORM DB 与底层 sql.DB，提供 DB()、Ping()、
    GetStats()、WithTransaction()、Close()。
  - PoolConfig：最大空闲/打开连接数、连接生命周期与健康检查间隔。

# 主要能力

  - Open 按驱动名选择 postgres、mysql 或纯 Go 的 sqlite 方言。
  - 后台健康检查定时探活，并可把连接数上报给指标回调。
*/
package database
