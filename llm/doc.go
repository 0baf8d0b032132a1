/*
包 llm 提供行程规划所需的大模型接入抽象。

# 概述

[Provider] 屏蔽 OpenAI 兼容接口与 Gemini 在鉴权、错误语义和流式协议上的差异，
上层的 crew 只依赖 [ChatRequest] / [ChatResponse] 两个模型。

# 错误

所有 Provider 返回的上游错误都应转换为 [*Error]，
通过 [MapHTTPError] 统一 HTTP 状态码、错误码与可重试标记，
重试器据此决定是否退避重试。

# 子包

  - providers/openai：基于 go-openai 的 Chat Completions 实现，兼容 Ollama 等 OpenAI 兼容端点
  - providers/gemini：基于 google genai SDK 的实现
  - retry：指数退避重试
  - tokenizer：tiktoken 计数与估算器
  - tools：工具注册、执行与网页搜索
*/
package llm
