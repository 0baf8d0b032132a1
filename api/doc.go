/*
Package api 定义 tripcrew HTTP 接口的请求与响应类型。

# 端点

  - POST /api/plan（别名 POST /plan）：表单提交，成功时直接返回行程 JSON，
    错误时返回 {"error": "..."}，状态码 400/404/500。
  - GET /api/plan/stream：WebSocket，首帧为 PlanRequest，随后推送 StreamFrame。
  - GET /api/itineraries、GET /api/itineraries/{id}：规划历史，使用统一响应结构。
  - GET /health、/healthz、/ready、/readyz、/version：健康检查。

处理器实现见 api/handlers。
*/
package api
