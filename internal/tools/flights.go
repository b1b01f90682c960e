package tools

import (
	"context"
	"encoding/json"
	"strings"
)

type flightOption struct {
	Airline   string  `json:"airline"`
	Origin    string  `json:"origin"`
	Dest      string  `json:"destination"`
	Stops     int     `json:"stops"`
	Duration  string  `json:"duration"`
	PriceUSD  float64 `json:"price_usd"`
	CabinBest string  `json:"cabin"`
}

// FlightSearchTool looks up flight options from an embedded route catalog.
// A production deployment swaps the catalog for a GDS-backed lookup behind
// the same contract.
type FlightSearchTool struct {
	catalog []flightOption
}

func NewFlightSearchTool() *FlightSearchTool {
	return &FlightSearchTool{catalog: defaultFlightCatalog}
}

func (f *FlightSearchTool) Name() string {
	return "flight_search"
}

func (f *FlightSearchTool) Description() string {
	return "Search available flights between two cities, optionally capped by a maximum price in USD."
}

func (f *FlightSearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"origin": map[string]any{
				"type":        "string",
				"description": "Departure city",
			},
			"destination": map[string]any{
				"type":        "string",
				"description": "Arrival city",
			},
			"max_price_usd": map[string]any{
				"type":        "number",
				"description": "Optional upper bound on the ticket price in USD",
			},
		},
		"required": []string{"origin", "destination"},
	}
}

func (f *FlightSearchTool) Invoke(ctx context.Context, input map[string]any) (string, *ToolError) {
	var args struct {
		Origin      string  `json:"origin"`
		Destination string  `json:"destination"`
		MaxPriceUSD float64 `json:"max_price_usd"`
	}
	if terr := decodeArgs(input, &args); terr != nil {
		return "", terr
	}
	if args.Origin == "" || args.Destination == "" {
		return "", Invalid("origin and destination are required")
	}

	var options []flightOption
	for _, opt := range f.catalog {
		if !strings.EqualFold(opt.Origin, args.Origin) || !strings.EqualFold(opt.Dest, args.Destination) {
			continue
		}
		if args.MaxPriceUSD > 0 && opt.PriceUSD > args.MaxPriceUSD {
			continue
		}
		options = append(options, opt)
	}

	payload, err := json.Marshal(map[string]any{
		"origin":      args.Origin,
		"destination": args.Destination,
		"options":     options,
	})
	if err != nil {
		return "", &ToolError{Kind: ErrUnknown, Message: err.Error()}
	}
	return string(payload), nil
}

var defaultFlightCatalog = []flightOption{
	{Airline: "Skyline Air", Origin: "New York", Dest: "Paris", Stops: 0, Duration: "7h15m", PriceUSD: 642, CabinBest: "economy"},
	{Airline: "Atlantic Blue", Origin: "New York", Dest: "Paris", Stops: 1, Duration: "9h40m", PriceUSD: 489, CabinBest: "economy"},
	{Airline: "Skyline Air", Origin: "New York", Dest: "Tokyo", Stops: 0, Duration: "14h05m", PriceUSD: 1180, CabinBest: "premium"},
	{Airline: "Pacific Crest", Origin: "San Francisco", Dest: "Tokyo", Stops: 0, Duration: "11h10m", PriceUSD: 890, CabinBest: "economy"},
	{Airline: "Pacific Crest", Origin: "San Francisco", Dest: "Bali", Stops: 1, Duration: "19h30m", PriceUSD: 975, CabinBest: "economy"},
	{Airline: "Meridian", Origin: "London", Dest: "Rome", Stops: 0, Duration: "2h35m", PriceUSD: 142, CabinBest: "economy"},
	{Airline: "Meridian", Origin: "London", Dest: "Barcelona", Stops: 0, Duration: "2h05m", PriceUSD: 118, CabinBest: "economy"},
	{Airline: "Atlantic Blue", Origin: "Boston", Dest: "Reykjavik", Stops: 0, Duration: "5h25m", PriceUSD: 380, CabinBest: "economy"},
	{Airline: "Skyline Air", Origin: "Chicago", Dest: "Cancun", Stops: 0, Duration: "4h10m", PriceUSD: 310, CabinBest: "economy"},
	{Airline: "Southern Cross", Origin: "Sydney", Dest: "Auckland", Stops: 0, Duration: "3h05m", PriceUSD: 215, CabinBest: "economy"},
}
