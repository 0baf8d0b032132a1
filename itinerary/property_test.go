package itinerary

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func attractionGen() *rapid.Generator[Attraction] {
	return rapid.Custom(func(t *rapid.T) Attraction {
		a := Attraction{
			Name:              rapid.StringN(1, 40, -1).Draw(t, "name"),
			Description:       rapid.StringN(1, 80, -1).Draw(t, "description"),
			Category:          rapid.SampledFrom([]string{"Museum", "Historical Site", "Park", "Market"}).Draw(t, "category"),
			EstimatedDuration: rapid.SampledFrom([]string{"1 hour", "2 hours", "half a day"}).Draw(t, "duration"),
		}
		if rapid.Bool().Draw(t, "has_address") {
			addr := rapid.StringN(0, 40, -1).Draw(t, "address")
			a.Address = &addr
		}
		return a
	})
}

func itineraryGen() *rapid.Generator[TravelItinerary] {
	return rapid.Custom(func(t *rapid.T) TravelItinerary {
		days := rapid.IntRange(1, 5).Draw(t, "days")
		plans := make([]DailyPlan, days)
		for i := range plans {
			plans[i] = DailyPlan{
				DayNumber:   i + 1,
				Attractions: rapid.SliceOfN(attractionGen(), 0, 4).Draw(t, "attractions"),
			}
			if rapid.Bool().Draw(t, "has_meals") {
				plans[i].MealSuggestions = rapid.SliceOfN(rapid.StringN(1, 30, -1), 1, 3).Draw(t, "meals")
			}
		}
		it := TravelItinerary{
			City:       rapid.StringN(1, 30, -1).Draw(t, "city"),
			Days:       days,
			DailyPlans: plans,
		}
		if rapid.Bool().Draw(t, "has_tips") {
			tips := rapid.StringN(0, 60, -1).Draw(t, "tips")
			it.OverallTips = &tips
		}
		return it
	})
}

func TestProperty_JSONRoundTripPreservesItinerary(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		original := itineraryGen().Draw(rt, "itinerary")

		data, err := json.Marshal(original)
		require.NoError(rt, err)

		var decoded TravelItinerary
		require.NoError(rt, json.Unmarshal(data, &decoded))

		assert.Equal(rt, original.City, decoded.City)
		assert.Equal(rt, original.Days, decoded.Days)
		require.Len(rt, decoded.DailyPlans, len(original.DailyPlans))
		for i := range original.DailyPlans {
			assert.Equal(rt, original.DailyPlans[i].DayNumber, decoded.DailyPlans[i].DayNumber)
			assert.Equal(rt, len(original.DailyPlans[i].Attractions), len(decoded.DailyPlans[i].Attractions))
			for j := range original.DailyPlans[i].Attractions {
				assert.Equal(rt, original.DailyPlans[i].Attractions[j], decoded.DailyPlans[i].Attractions[j])
			}
			assert.Equal(rt, original.DailyPlans[i].MealSuggestions, decoded.DailyPlans[i].MealSuggestions)
		}
	})
}

func TestProperty_TotalAttractionsIsProduct(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("total_attractions = days * attractions_per_day", prop.ForAll(
		func(days, perDay int) bool {
			req, err := NewRequest("Isfahan", days, perDay)
			if err != nil {
				return false
			}
			return req.TotalAttractions == days*perDay &&
				req.Inputs()["total_attractions"] == days*perDay
		},
		gen.IntRange(1, 30),
		gen.IntRange(1, 20),
	))

	properties.Property("non-positive inputs are rejected", prop.ForAll(
		func(days, perDay int) bool {
			_, err := NewRequest("Isfahan", days, perDay)
			return err != nil
		},
		gen.IntRange(-10, 0),
		gen.IntRange(-10, 10),
	))

	properties.TestingRun(t)
}
