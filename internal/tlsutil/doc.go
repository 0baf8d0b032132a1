// Package tlsutil 为出站 HTTP 客户端（LLM 提供商、DuckDuckGo 搜索）提供统一的 TLS 加固设置：
// 最低 TLS 1.2，仅 AEAD 密码套件。
package tlsutil
