/*
Package types 提供 tripcrew 的全局共享错误类型。

# 概述

types 是最底层的公共包，不依赖任何内部包。agent、planner、api
等上层模块通过 Error / ErrorCode 统一表达失败原因，并由 HTTP 层
映射为状态码。

# 核心类型

  - Error / ErrorCode — 结构化错误，含 HTTP 状态码、Retryable 标记与 Cause
  - IsErrorCode / AsError / WrapError — errors.As 友好的辅助函数
*/
package types
