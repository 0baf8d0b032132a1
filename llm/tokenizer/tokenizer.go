// Package tokenizer 提供 Token 计数与按预算截断，
// 用于控制注入到任务提示词中的上下文长度。
package tokenizer

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Tokenizer 是统一的 token 计数接口。
type Tokenizer interface {
	// CountTokens 返回给定文本的 token 数.
	CountTokens(text string) (int, error)

	// Encode 将文本转换为 token ID 列表.
	Encode(text string) ([]int, error)

	// Decode 将 token ID 转换回文本.
	Decode(tokens []int) (string, error)

	// Name 返回分词器的名称.
	Name() string
}

// ForModel 返回模型对应的分词器：OpenAI 系模型使用 tiktoken，
// 其他模型（Gemini、本地模型）使用估算器。
// tiktoken 编码数据加载失败（如离线环境）时自动退回估算器。
func ForModel(model string) Tokenizer {
	if IsOpenAIModel(model) {
		return &fallbackTokenizer{primary: NewTiktokenTokenizer(model), secondary: NewEstimatorTokenizer(model)}
	}
	return NewEstimatorTokenizer(model)
}

type fallbackTokenizer struct {
	primary   Tokenizer
	secondary Tokenizer
}

func (f *fallbackTokenizer) CountTokens(text string) (int, error) {
	if n, err := f.primary.CountTokens(text); err == nil {
		return n, nil
	}
	return f.secondary.CountTokens(text)
}

func (f *fallbackTokenizer) Encode(text string) ([]int, error) {
	if ids, err := f.primary.Encode(text); err == nil {
		return ids, nil
	}
	return f.secondary.Encode(text)
}

func (f *fallbackTokenizer) Decode(tokens []int) (string, error) {
	return f.primary.Decode(tokens)
}

func (f *fallbackTokenizer) Name() string {
	return f.primary.Name() + "|" + f.secondary.Name()
}

// TruncateHead 在文本超出 budget 时从头部截断，保留末尾内容。
// 第二个返回值表示是否发生了截断。budget <= 0 表示不限制。
func TruncateHead(t Tokenizer, text string, budget int) (string, bool, error) {
	if budget <= 0 || text == "" {
		return text, false, nil
	}
	count, err := t.CountTokens(text)
	if err != nil {
		return text, false, fmt.Errorf("count tokens with %s: %w", t.Name(), err)
	}
	if count <= budget {
		return text, false, nil
	}

	if ids, err := t.Encode(text); err == nil && len(ids) > budget {
		if tail, err := t.Decode(ids[len(ids)-budget:]); err == nil {
			return strings.TrimLeft(tail, " \n"), true, nil
		}
	}

	// 不能解码时按字符比例截断
	runes := []rune(text)
	keep := len(runes) * budget / count
	if keep < 1 {
		keep = 1
	}
	tail := string(runes[len(runes)-keep:])
	for !utf8.ValidString(tail) && len(tail) > 0 {
		tail = tail[1:]
	}
	return tail, true, nil
}
