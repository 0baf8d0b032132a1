package itinerary

import (
	"fmt"
	"strings"
)

// 单次规划的参数上限
const (
	MaxDays              = 30
	MaxAttractionsPerDay = 20
)

// Request carries the parameters of one planning run.
type Request struct {
	City              string `json:"city"`
	Days              int    `json:"days"`
	AttractionsPerDay int    `json:"attractions_per_day"`
	TotalAttractions  int    `json:"total_attractions"`
}

// NewRequest validates the parameters and derives TotalAttractions.
func NewRequest(city string, days, attractionsPerDay int) (Request, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Request{}, fmt.Errorf("city is required")
	}
	if days <= 0 {
		return Request{}, fmt.Errorf("days must be a positive integer, got %d", days)
	}
	if attractionsPerDay <= 0 {
		return Request{}, fmt.Errorf("attractions_per_day must be a positive integer, got %d", attractionsPerDay)
	}
	if days > MaxDays {
		return Request{}, fmt.Errorf("days must be at most %d, got %d", MaxDays, days)
	}
	if attractionsPerDay > MaxAttractionsPerDay {
		return Request{}, fmt.Errorf("attractions_per_day must be at most %d, got %d", MaxAttractionsPerDay, attractionsPerDay)
	}
	return Request{
		City:              city,
		Days:              days,
		AttractionsPerDay: attractionsPerDay,
		TotalAttractions:  days * attractionsPerDay,
	}, nil
}

// Inputs returns the placeholder values substituted into task templates.
func (r Request) Inputs() map[string]any {
	return map[string]any{
		"city":                r.City,
		"days":                r.Days,
		"attractions_per_day": r.AttractionsPerDay,
		"total_attractions":   r.TotalAttractions,
	}
}

// PerDayForCount spreads count attractions over days, rounding up.
func PerDayForCount(count, days int) int {
	if days <= 0 || count <= 0 {
		return 0
	}
	return (count + days - 1) / days
}
