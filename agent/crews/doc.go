/*
包 crews 提供按顺序执行的角色化多 Agent 团队。

# 概述

Crew 由若干 Agent 与有序的 Task 组成。Kickoff 时先用输入替换任务文本中的
{placeholder}，然后按顺序执行任务：每个任务的输出作为上下文注入到引用它的
后续任务中；未显式声明 context 的任务自动获得上一个任务的输出。

# 核心模型

  - Agent：角色、目标、背景故事 + llm.Provider + 可选工具集，
    Execute 运行"模型 -> 工具 -> 模型"循环直到给出答案或达到 MaxIter
  - Task：描述、期望输出、负责的 Agent、上下文任务与可选输出 Schema
  - Crew：Agent 与 Task 的容器，只支持 sequential 流程
  - CrewOutput：最后一个任务的原文与结构化 JSON、各任务输出、累计 token 用量

# 事件

EventHandler 会收到 task_started、tool_called、task_completed、crew_completed，
HTTP 层据此通过 WebSocket 推送进度。

# 约束

  - 任一 Agent 或 Provider 错误都会终止 Kickoff，本包不做重试
  - 注入的上下文超出 token 预算时从头部截断
*/
package crews
