package crews

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/tripcrew/agent/structured"
	"github.com/BaSui01/tripcrew/llm"
)

// Task 是分配给某个 Agent 的一项工作。
type Task struct {
	Name           string
	Description    string
	ExpectedOutput string
	Agent          *Agent
	// Context 列出输出需要注入本任务的前置任务；为 nil 时使用上一个任务的输出
	Context      []*Task
	OutputSchema structured.OutputSchema
}

// TaskOutput 是单个任务的执行结果。
type TaskOutput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Agent       string          `json:"agent"`
	Raw         string          `json:"raw"`
	JSON        json.RawMessage `json:"json,omitempty"`
	// SchemaError 记录结构化规整失败的原因，不影响 Kickoff 成功与否
	SchemaError string        `json:"schema_error,omitempty"`
	Usage       llm.ChatUsage `json:"usage"`
	ToolCalls   int           `json:"tool_calls"`
	Duration    time.Duration `json:"duration"`
}

// contextBlock 是已截断、待注入的上游输出。
type contextBlock struct {
	name   string
	output string
}

// buildPrompt 依次拼接描述、期望输出、格式说明与上下文。
func buildPrompt(description, expected string, schema structured.OutputSchema, contexts []contextBlock) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(description))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Expected output: %s", strings.TrimSpace(expected))

	if schema != nil {
		sb.WriteString("\n\n")
		sb.WriteString(schema.Instruction())
	}

	if len(contexts) > 0 {
		sb.WriteString("\n\nThis is the context you're working with:")
		for _, c := range contexts {
			fmt.Fprintf(&sb, "\n\n## %s\n%s", c.name, strings.TrimSpace(c.output))
		}
	}
	return sb.String()
}
