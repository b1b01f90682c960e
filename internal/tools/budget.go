package tools

import (
	"context"
	"encoding/json"
	"math"
)

// BudgetEstimateTool is a pure computation: it totals a trip from flight
// cost, lodging, and daily spending, per traveler and overall.
type BudgetEstimateTool struct{}

func NewBudgetEstimateTool() *BudgetEstimateTool {
	return &BudgetEstimateTool{}
}

func (b *BudgetEstimateTool) Name() string {
	return "budget_estimate"
}

func (b *BudgetEstimateTool) Description() string {
	return "Estimate a total trip budget from flight cost, nightly hotel rate, number of nights, daily spending, and traveler count."
}

func (b *BudgetEstimateTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"flight_usd_per_person": map[string]any{
				"type":        "number",
				"description": "Round-trip flight cost per traveler in USD",
			},
			"nightly_usd": map[string]any{
				"type":        "number",
				"description": "Hotel nightly rate in USD (per room)",
			},
			"nights": map[string]any{
				"type":        "integer",
				"description": "Number of nights",
			},
			"daily_spend_usd": map[string]any{
				"type":        "number",
				"description": "Estimated daily spending per traveler (food, transit, activities)",
			},
			"travelers": map[string]any{
				"type":        "integer",
				"description": "Number of travelers, default 1",
			},
		},
		"required": []string{"flight_usd_per_person", "nightly_usd", "nights"},
	}
}

func (b *BudgetEstimateTool) Invoke(ctx context.Context, input map[string]any) (string, *ToolError) {
	var args struct {
		FlightUSD     float64 `json:"flight_usd_per_person"`
		NightlyUSD    float64 `json:"nightly_usd"`
		Nights        int     `json:"nights"`
		DailySpendUSD float64 `json:"daily_spend_usd"`
		Travelers     int     `json:"travelers"`
	}
	if terr := decodeArgs(input, &args); terr != nil {
		return "", terr
	}
	if args.Nights <= 0 {
		return "", Invalid("nights must be positive")
	}
	if args.FlightUSD < 0 || args.NightlyUSD < 0 || args.DailySpendUSD < 0 {
		return "", Invalid("costs must be non-negative")
	}
	if args.Travelers <= 0 {
		args.Travelers = 1
	}

	flights := args.FlightUSD * float64(args.Travelers)
	lodging := args.NightlyUSD * float64(args.Nights)
	spending := args.DailySpendUSD * float64(args.Nights) * float64(args.Travelers)
	total := flights + lodging + spending

	payload, err := json.Marshal(map[string]any{
		"flights_usd":      round2(flights),
		"lodging_usd":      round2(lodging),
		"spending_usd":     round2(spending),
		"total_usd":        round2(total),
		"per_traveler_usd": round2(total / float64(args.Travelers)),
		"travelers":        args.Travelers,
		"nights":           args.Nights,
	})
	if err != nil {
		return "", &ToolError{Kind: ErrUnknown, Message: err.Error()}
	}
	return string(payload), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
