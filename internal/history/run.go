package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/BaSui01/tripcrew/itinerary"
)

// Run 状态
const (
	StatusSuccess     = "success"
	StatusNoItinerary = "no_itinerary"
	StatusFailed      = "failed"
)

// Run 一次规划的记录
type Run struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	Crew              string    `gorm:"size:64;not null" json:"crew"`
	Model             string    `gorm:"size:128;not null;default:''" json:"model"`
	City              string    `gorm:"size:255;not null;default:'';index" json:"city"`
	Days              int       `gorm:"not null;default:0" json:"days"`
	AttractionsPerDay int       `gorm:"not null;default:0" json:"attractions_per_day"`
	Status            string    `gorm:"size:16;not null" json:"status"`
	Raw               string    `gorm:"type:text;not null;default:''" json:"raw,omitempty"`
	Itinerary         *string   `gorm:"type:text" json:"-"`
	Error             string    `gorm:"type:text;not null;default:''" json:"error,omitempty"`
	PromptTokens      int       `gorm:"not null;default:0" json:"prompt_tokens"`
	CompletionTokens  int       `gorm:"not null;default:0" json:"completion_tokens"`
	TotalTokens       int       `gorm:"not null;default:0" json:"total_tokens"`
	DurationMS        int64     `gorm:"column:duration_ms;not null;default:0" json:"duration_ms"`
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
}

// TableName 与迁移中的表名一致
func (Run) TableName() string { return "itinerary_runs" }

// SetItinerary 序列化行程；nil 清空
func (r *Run) SetItinerary(it *itinerary.TravelItinerary) error {
	if it == nil {
		r.Itinerary = nil
		return nil
	}
	b, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("marshal itinerary: %w", err)
	}
	s := string(b)
	r.Itinerary = &s
	return nil
}

// DecodeItinerary 反序列化存储的行程；没有行程时返回 nil, nil
func (r *Run) DecodeItinerary() (*itinerary.TravelItinerary, error) {
	if r.Itinerary == nil || *r.Itinerary == "" {
		return nil, nil
	}
	var it itinerary.TravelItinerary
	if err := json.Unmarshal([]byte(*r.Itinerary), &it); err != nil {
		return nil, fmt.Errorf("decode stored itinerary %s: %w", r.ID, err)
	}
	return &it, nil
}

// MarshalJSON 把 itinerary 作为嵌套对象输出，而不是字符串
func (r Run) MarshalJSON() ([]byte, error) {
	type plain Run
	out := struct {
		plain
		Itinerary json.RawMessage `json:"itinerary,omitempty"`
	}{plain: plain(r)}
	if r.Itinerary != nil && json.Valid([]byte(*r.Itinerary)) {
		out.Itinerary = json.RawMessage(*r.Itinerary)
	}
	return json.Marshal(out)
}
