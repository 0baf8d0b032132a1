package itinerary

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BaSui01/tripcrew/agent/structured"
)

// SchemaName is the name under which the itinerary output schema is registered.
const SchemaName = "travel_itinerary"

// ErrNoItinerary reports that a run finished but produced no valid itinerary.
var ErrNoItinerary = errors.New("No travel itinerary generated")

// Attraction is a single point of interest.
type Attraction struct {
	Name              string  `json:"name" jsonschema:"required,description=Name of the attraction"`
	Description       string  `json:"description" jsonschema:"required,description=Brief description of the attraction"`
	Category          string  `json:"category" jsonschema:"required,description=Category like 'Museum', 'Historical Site', etc."`
	EstimatedDuration string  `json:"estimated_duration" jsonschema:"required,description=How long to spend here (e.g., '2 hours')"`
	Address           *string `json:"address" jsonschema:"description=Physical address"`
}

// DailyPlan is one day of the itinerary.
type DailyPlan struct {
	DayNumber       int          `json:"day_number" jsonschema:"required,description=Day number in the itinerary"`
	Attractions     []Attraction `json:"attractions" jsonschema:"required,description=List of attractions to visit"`
	MealSuggestions []string     `json:"meal_suggestions" jsonschema:"description=Suggested places to eat"`
}

// TravelItinerary is the complete plan for a city.
type TravelItinerary struct {
	City        string      `json:"city" jsonschema:"required,description=City to visit"`
	Days        int         `json:"days" jsonschema:"required,description=Number of days in the itinerary"`
	DailyPlans  []DailyPlan `json:"daily_plans" jsonschema:"required,description=Plan for each day"`
	OverallTips *string     `json:"overall_tips" jsonschema:"description=General travel tips for this destination"`
}

// Coercer parses model output into a TravelItinerary.
var Coercer = structured.MustCoercer[TravelItinerary](SchemaName)

func init() {
	structured.DefaultRegistry.Register(Coercer)
}

// Parse coerces free-form model output into a validated itinerary.
// Any failure is reported as ErrNoItinerary wrapping the details.
func Parse(raw string) (*TravelItinerary, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrNoItinerary
	}
	it, err := Coercer.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoItinerary, err)
	}
	if err := it.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoItinerary, err)
	}
	return it, nil
}

// Validate checks that every required list of the itinerary is present.
// Required scalars are enforced by the schema during Parse; empty strings are valid values.
func (t *TravelItinerary) Validate() error {
	var problems []string
	if t.DailyPlans == nil {
		problems = append(problems, "daily_plans is required")
	}
	for i := range t.DailyPlans {
		if err := t.DailyPlans[i].Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("daily_plans[%d]: %v", i, err))
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Validate rejects a plan without an attractions list. MealSuggestions is optional.
func (d *DailyPlan) Validate() error {
	if d.Attractions == nil {
		return errors.New("attractions is required")
	}
	return nil
}

// Check compares the itinerary against the request and returns advisory
// warnings. None of them make the itinerary invalid.
func (t *TravelItinerary) Check(req Request) []string {
	var warnings []string

	if t.Days != req.Days {
		warnings = append(warnings, fmt.Sprintf("itinerary covers %d days, requested %d", t.Days, req.Days))
	}
	if len(t.DailyPlans) != req.Days {
		warnings = append(warnings, fmt.Sprintf("got %d daily plans, requested %d", len(t.DailyPlans), req.Days))
	}

	seen := make(map[int]bool, len(t.DailyPlans))
	for i, plan := range t.DailyPlans {
		if seen[plan.DayNumber] {
			warnings = append(warnings, fmt.Sprintf("day %d appears more than once", plan.DayNumber))
		}
		seen[plan.DayNumber] = true
		if plan.DayNumber != i+1 {
			warnings = append(warnings, fmt.Sprintf("daily_plans[%d] has day_number %d, expected %d", i, plan.DayNumber, i+1))
		}
		if req.AttractionsPerDay > 0 && len(plan.Attractions) != req.AttractionsPerDay {
			warnings = append(warnings, fmt.Sprintf("day %d has %d attractions, requested %d",
				plan.DayNumber, len(plan.Attractions), req.AttractionsPerDay))
		}
	}
	return warnings
}
