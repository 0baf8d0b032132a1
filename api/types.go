package api

import (
	"encoding/json"
	"time"

	"github.com/BaSui01/tripcrew/itinerary"
)

// =============================================================================
// 🧭 行程规划 API 类型
// =============================================================================

// PlanRequest 是 WebSocket 流式规划的首帧，表单提交使用相同字段名
type PlanRequest struct {
	City              string `json:"city"`
	Days              int    `json:"days"`
	AttractionsPerDay int    `json:"attractions_per_day"`
}

// ErrorBody 是 /api/plan 的错误响应，与表单脚本读取的 data.error 对应
type ErrorBody struct {
	Error string `json:"error"`
}

// 流式帧类型；其余帧类型与 Crew 事件类型相同
const (
	FrameResult = "result"
	FrameError  = "error"
)

// StreamFrame 是 /api/plan/stream 推送的一帧
type StreamFrame struct {
	Type      string                     `json:"type"`
	RunID     string                     `json:"run_id,omitempty"`
	Task      string                     `json:"task,omitempty"`
	Agent     string                     `json:"agent,omitempty"`
	Tool      string                     `json:"tool,omitempty"`
	Arguments json.RawMessage            `json:"arguments,omitempty"`
	Output    string                     `json:"output,omitempty"`
	Duration  string                     `json:"duration,omitempty"`
	Itinerary *itinerary.TravelItinerary `json:"itinerary,omitempty"`
	Warnings  []string                   `json:"warnings,omitempty"`
	// Status 与同步接口的 HTTP 状态码一致（200/400/404/500）
	Status    int       `json:"status,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ItineraryList 是历史列表响应
type ItineraryList struct {
	Runs   any   `json:"runs"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}
