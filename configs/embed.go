// Package configs 内嵌默认的 Agent 与 Task 定义以及配置示例。
// 配置中给出 agents_path / tasks_path 时以文件为准。
package configs

import (
	"embed"
	"fmt"

	"github.com/BaSui01/tripcrew/agent/declarative"
	"github.com/BaSui01/tripcrew/config"
)

//go:embed *.yaml
var files embed.FS

const (
	agentsFile           = "agents.yaml"
	tasksFile            = "tasks.yaml"
	agentsWithSearchFile = "agents-with-search-tools.yaml"
	tasksWithSearchFile  = "tasks-with-search-tools.yaml"
	exampleFile          = "config.example.yaml"
)

// Definitions 是一组 Agent 与 Task 定义
type Definitions struct {
	Agents declarative.Agents
	Tasks  declarative.Tasks
	// Source 说明来源，用于日志
	Source string
}

// Builtin 返回内置定义；withSearch 选择 researcher 带搜索工具的版本
func Builtin(withSearch bool) (*Definitions, error) {
	af, tf := agentsFile, tasksFile
	if withSearch {
		af, tf = agentsWithSearchFile, tasksWithSearchFile
	}
	agents, err := loadAgents(af)
	if err != nil {
		return nil, err
	}
	tasks, err := loadTasks(tf)
	if err != nil {
		return nil, err
	}
	return &Definitions{Agents: agents, Tasks: tasks, Source: "builtin:" + af}, nil
}

// Load 按 Crew 配置加载定义。只给出其中一个路径时，另一个使用内置版本。
func Load(cfg config.CrewConfig) (*Definitions, error) {
	defs, err := Builtin(cfg.UseSearchTools)
	if err != nil {
		return nil, err
	}
	if cfg.AgentsPath != "" {
		if defs.Agents, err = declarative.LoadAgents(cfg.AgentsPath); err != nil {
			return nil, err
		}
		defs.Source = cfg.AgentsPath
	}
	if cfg.TasksPath != "" {
		if defs.Tasks, err = declarative.LoadTasks(cfg.TasksPath); err != nil {
			return nil, err
		}
		defs.Source += "+" + cfg.TasksPath
	}
	return defs, nil
}

// Example 返回 config.example.yaml 的内容
func Example() []byte {
	b, err := files.ReadFile(exampleFile)
	if err != nil {
		panic(fmt.Sprintf("embedded %s missing: %v", exampleFile, err))
	}
	return b
}

func loadAgents(name string) (declarative.Agents, error) {
	b, err := files.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s: %w", name, err)
	}
	return declarative.LoadAgentsBytes(b, "yaml")
}

func loadTasks(name string) (declarative.Tasks, error) {
	b, err := files.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s: %w", name, err)
	}
	return declarative.LoadTasksBytes(b, "yaml")
}
