package planner

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/BaSui01/tripcrew/itinerary"
)

// Render 输出 CLI 报告：原始输出、行程摘要与 JSON。
func Render(w io.Writer, res *Result) error {
	if res == nil {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("Final Itinerary:\n")
	sb.WriteString(res.Raw)
	sb.WriteString("\n\nRaw Output:\n")
	sb.WriteString(res.Raw)
	sb.WriteString("\n")

	it := res.Itinerary
	if it != nil {
		fmt.Fprintf(&sb, "City: %s\n", it.City)
		fmt.Fprintf(&sb, "Days: %d\n", it.Days)
		if len(it.DailyPlans) > 0 {
			first := it.DailyPlans[0]
			names := make([]string, 0, len(first.Attractions))
			for _, a := range first.Attractions {
				names = append(names, a.Name)
			}
			fmt.Fprintf(&sb, "First day attractions: %s\n", listString(names))
			if len(first.MealSuggestions) > 0 {
				fmt.Fprintf(&sb, "Meal suggestions for Day 1: %s\n", listString(first.MealSuggestions))
			}
		}
		if it.OverallTips != nil && *it.OverallTips != "" {
			fmt.Fprintf(&sb, "Overall Travel Tips: %s\n", *it.OverallTips)
		}

		js, err := json.MarshalIndent(it, "", "  ")
		if err != nil {
			return fmt.Errorf("encode itinerary: %w", err)
		}
		sb.WriteString("\nJSON Output:\n")
		sb.Write(js)
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// RenderJSON 只输出行程 JSON；没有行程时返回 itinerary.ErrNoItinerary
func RenderJSON(w io.Writer, res *Result) error {
	if res == nil || res.Itinerary == nil {
		return itinerary.ErrNoItinerary
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Itinerary)
}

func listString(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "'" + s + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
