/*
包 metrics 提供基于 Prometheus 的指标采集，覆盖 HTTP、LLM、Crew、
工具调用、缓存与数据库六个维度。

# 核心类型

  - Collector：持有各类向量指标，使用 promauto 注册，按 namespace 隔离。
  - InstrumentedProvider：包装 llm.Provider，记录每次调用的耗时与 Token。

# 主要能力

  - HTTP 指标：请求总数、耗时、请求/响应体大小，状态码归类为 2xx/3xx/4xx/5xx。
  - LLM 指标：请求总数、耗时、Token 用量（prompt/completion），按 provider/model 分组。
  - Crew 指标：行程规划运行次数与耗时（按 crew/status），单个任务耗时（按 task/agent）。
  - 工具指标：调用次数，按 tool/status 分组。
  - 缓存指标：搜索缓存命中与未命中。
  - 数据库指标：活跃/空闲连接数与查询耗时。
*/
package metrics
