package itinerary

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	tests := []struct {
		name      string
		city      string
		days      int
		perDay    int
		wantTotal int
		wantErr   string
	}{
		{name: "default", city: "Isfahan", days: 2, perDay: 2, wantTotal: 4},
		{name: "trimmed city", city: "  Cape Town ", days: 3, perDay: 4, wantTotal: 12},
		{name: "blank city", city: "  ", days: 2, perDay: 2, wantErr: "city is required"},
		{name: "zero days", city: "Rome", days: 0, perDay: 2, wantErr: "days"},
		{name: "negative per day", city: "Rome", days: 2, perDay: -1, wantErr: "attractions_per_day"},
		{name: "upper bounds", city: "Rome", days: MaxDays, perDay: MaxAttractionsPerDay, wantTotal: MaxDays * MaxAttractionsPerDay},
		{name: "too many days", city: "Rome", days: MaxDays + 1, perDay: 2, wantErr: "days must be at most 30"},
		{name: "too many per day", city: "Rome", days: 2, perDay: MaxAttractionsPerDay + 1, wantErr: "attractions_per_day must be at most 20"},
		{name: "overflowing product", city: "Rome", days: math.MaxInt, perDay: math.MaxInt, wantErr: "days must be at most"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewRequest(tt.city, tt.days, tt.perDay)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, req.TotalAttractions)
			assert.Equal(t, strings.TrimSpace(tt.city), req.City)
		})
	}
}

func TestRequest_Inputs(t *testing.T) {
	req, err := NewRequest("Isfahan", 2, 2)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"city":                "Isfahan",
		"days":                2,
		"attractions_per_day": 2,
		"total_attractions":   4,
	}, req.Inputs())
}

func TestPerDayForCount(t *testing.T) {
	assert.Equal(t, 4, PerDayForCount(8, 2))
	assert.Equal(t, 3, PerDayForCount(8, 3))
	assert.Equal(t, 0, PerDayForCount(8, 0))
	assert.Equal(t, 0, PerDayForCount(0, 2))
}
