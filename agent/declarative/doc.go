/*
# 概述

包 declarative 从 YAML/JSON 文件加载 Agent 与 Task 的声明式定义。

两个文件分别是名称到定义的映射，例如 agents.yaml 中的 researcher、planner，
tasks.yaml 中的 research_task、planning_task。加载时不做合并、继承或校验，
Task 的 description / expected_output 中的 {placeholder} 原样保留，
由 crews 包在 Kickoff 时替换。

# 主要类型

  - AgentConfig / TaskConfig — 单个定义
  - Agents / Tasks — 名称到定义的映射，Agent(name)、Task(name) 查找缺失时返回 ErrNotFound

# 典型用法

	agents, err := declarative.LoadAgents("configs/agents.yaml")
	tasks, err := declarative.LoadTasks("configs/tasks.yaml")
	researcher, err := agents.Agent("researcher")
*/
package declarative
