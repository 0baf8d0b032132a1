/*
Package main 提供 tripcrew 命令行与服务端程序入口。

# 概述

cmd/tripcrew 基于 cobra 组织子命令：suggest 与 plan 在终端运行 Crew，
serve 启动表单页面与 JSON/WebSocket API，migrate 与 history 管理规划历史库。
配置来自 YAML 文件与 TRIPCREW_ 前缀的环境变量，日志使用 zap。

# 子命令

  - suggest  — 单 Agent 推荐景点（-c 城市，-n 数量）
  - plan     — researcher → planner 两步生成行程（-c -d -a -n --json）
  - serve    — HTTP 服务，默认端口 3000，可选独立 Metrics 端口
  - migrate  — up/down/steps/status/version/goto/force/reset
  - history  — list/show/prune
  - health   — 探测运行中服务的 /health
  - version  — 构建信息，Version/BuildTime/GitCommit 通过 ldflags 注入

# 中间件链

Recovery → RequestID → SecurityHeaders → OTelTracing → Metrics →
RequestLogger → CORS → RateLimiter（基于 IP）→ Auth（X-API-Key 或 JWT Bearer）。
页面、静态资源与健康检查端点不需要鉴权。

Crew 运行失败时 plan/suggest 打印 "Error while running crew: ..." 并以 0 退出；
配置错误以非 0 退出。
*/
package main
