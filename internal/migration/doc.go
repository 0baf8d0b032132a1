/*
包 migration 管理规划历史表 itinerary_runs 的 Schema 版本，
基于 golang-migrate，SQL 文件按方言内嵌在 migrations/{postgres,mysql,sqlite}。

  - DefaultMigrator：Up/Down/Steps/Goto/Force/Version/Status/Info。
  - NewMigrator 接管一个已打开的 *sql.DB；NewMigratorFromURL 由
    golang-migrate 按 URL scheme 打开连接。
  - NewMigratorFromDatabaseConfig / MigrateUp 直接使用应用配置，
    serve 启动时的自动迁移走这里。
  - CLI：tripcrew migrate 子命令的终端输出。
*/
package migration
