package declarative

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound 表示引用的 agent 或 task 名称不存在。
var ErrNotFound = errors.New("definition not found")

// AgentConfig is a declarative agent persona.
type AgentConfig struct {
	Role            string   `yaml:"role" json:"role"`
	Goal            string   `yaml:"goal" json:"goal"`
	Backstory       string   `yaml:"backstory" json:"backstory"`
	Tools           []string `yaml:"tools,omitempty" json:"tools,omitempty"`
	Verbose         bool     `yaml:"verbose,omitempty" json:"verbose,omitempty"`
	AllowDelegation bool     `yaml:"allow_delegation,omitempty" json:"allow_delegation,omitempty"`
	MaxIter         int      `yaml:"max_iter,omitempty" json:"max_iter,omitempty"`
	LLM             string   `yaml:"llm,omitempty" json:"llm,omitempty"` // 覆盖默认模型
}

// HasTool 判断定义中是否列出了任一给定工具名。
func (a AgentConfig) HasTool(names ...string) bool {
	for _, t := range a.Tools {
		for _, n := range names {
			if t == n {
				return true
			}
		}
	}
	return false
}

// TaskConfig is a declarative unit of work.
type TaskConfig struct {
	Description    string   `yaml:"description" json:"description"`
	ExpectedOutput string   `yaml:"expected_output" json:"expected_output"`
	Agent          string   `yaml:"agent,omitempty" json:"agent,omitempty"`
	Context        []string `yaml:"context,omitempty" json:"context,omitempty"`
	OutputSchema   string   `yaml:"output_schema,omitempty" json:"output_schema,omitempty"`
}

// Agents maps agent keys to definitions.
type Agents map[string]AgentConfig

// Agent 按名称查找。
func (a Agents) Agent(name string) (AgentConfig, error) {
	cfg, ok := a[name]
	if !ok {
		return AgentConfig{}, fmt.Errorf("agent %q: %w", name, ErrNotFound)
	}
	return cfg, nil
}

// Names 返回排序后的键。
func (a Agents) Names() []string { return sortedKeys(a) }

// Tasks maps task keys to definitions.
type Tasks map[string]TaskConfig

// Task 按名称查找。
func (t Tasks) Task(name string) (TaskConfig, error) {
	cfg, ok := t[name]
	if !ok {
		return TaskConfig{}, fmt.Errorf("task %q: %w", name, ErrNotFound)
	}
	return cfg, nil
}

// Names 返回排序后的键。
func (t Tasks) Names() []string { return sortedKeys(t) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
