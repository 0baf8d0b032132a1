package crews

import (
	"encoding/json"
	"time"
)

// EventType 标识 Kickoff 过程中的事件。
type EventType string

const (
	EventTaskStarted   EventType = "task_started"
	EventToolCalled    EventType = "tool_called"
	EventTaskCompleted EventType = "task_completed"
	EventCrewCompleted EventType = "crew_completed"
)

// Event 是推送给 EventHandler 的进度事件。
type Event struct {
	Type      EventType       `json:"type"`
	RunID     string          `json:"run_id"`
	Task      string          `json:"task,omitempty"`
	Agent     string          `json:"agent,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Output    string          `json:"output,omitempty"`
	Error     string          `json:"error,omitempty"`
	Duration  time.Duration   `json:"duration,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// EventHandler 接收事件，在 Kickoff 的 goroutine 中同步调用。
type EventHandler func(Event)
