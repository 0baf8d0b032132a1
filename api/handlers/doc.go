/*
Package handlers 提供 tripcrew HTTP 服务的请求处理器实现。

# 概述

handlers 包实现行程规划的全部 HTTP 端点：表单页面与静态资源、
同步规划、WebSocket 流式规划、规划历史查询以及健康检查。
所有 Handler 均遵循标准 net/http 接口，路由在 cmd/tripcrew 中注册。

# 核心类型

  - PlanHandler      — POST /api/plan 与 /plan（直接返回行程 JSON），GET /api/plan/stream（WebSocket）
  - ItineraryHandler — GET /api/itineraries 与 /api/itineraries/{id}
  - HealthHandler    — /health、/healthz、/ready、/readyz、/version
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp）
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码，支持 Unwrap

# 错误约定

规划端点沿用表单页面期望的 {"error": "..."} 结构：
输入错误 400，没有生成行程 404，规划失败或 panic 500。
历史与健康检查端点使用统一的 Response 包络，ErrorCode 自动映射 HTTP 状态码。
*/
package handlers
