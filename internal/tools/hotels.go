package tools

import (
	"context"
	"encoding/json"
	"strings"
)

type hotelOption struct {
	Name       string  `json:"name"`
	City       string  `json:"city"`
	Stars      int     `json:"stars"`
	NightlyUSD float64 `json:"nightly_usd"`
	Area       string  `json:"area"`
}

// HotelSearchTool looks up hotels from an embedded catalog, filtered by
// city, minimum star rating, and nightly budget.
type HotelSearchTool struct {
	catalog []hotelOption
}

func NewHotelSearchTool() *HotelSearchTool {
	return &HotelSearchTool{catalog: defaultHotelCatalog}
}

func (h *HotelSearchTool) Name() string {
	return "hotel_search"
}

func (h *HotelSearchTool) Description() string {
	return "Search hotels in a city, optionally filtered by minimum stars and a maximum nightly rate in USD."
}

func (h *HotelSearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city": map[string]any{
				"type":        "string",
				"description": "City to search hotels in",
			},
			"min_stars": map[string]any{
				"type":        "integer",
				"description": "Minimum star rating, 1-5",
			},
			"max_nightly_usd": map[string]any{
				"type":        "number",
				"description": "Optional upper bound on the nightly rate in USD",
			},
		},
		"required": []string{"city"},
	}
}

func (h *HotelSearchTool) Invoke(ctx context.Context, input map[string]any) (string, *ToolError) {
	var args struct {
		City          string  `json:"city"`
		MinStars      int     `json:"min_stars"`
		MaxNightlyUSD float64 `json:"max_nightly_usd"`
	}
	if terr := decodeArgs(input, &args); terr != nil {
		return "", terr
	}
	if args.City == "" {
		return "", Invalid("city is required")
	}

	var options []hotelOption
	for _, opt := range h.catalog {
		if !strings.EqualFold(opt.City, args.City) {
			continue
		}
		if args.MinStars > 0 && opt.Stars < args.MinStars {
			continue
		}
		if args.MaxNightlyUSD > 0 && opt.NightlyUSD > args.MaxNightlyUSD {
			continue
		}
		options = append(options, opt)
	}

	payload, err := json.Marshal(map[string]any{
		"city":    args.City,
		"options": options,
	})
	if err != nil {
		return "", &ToolError{Kind: ErrUnknown, Message: err.Error()}
	}
	return string(payload), nil
}

var defaultHotelCatalog = []hotelOption{
	{Name: "Hotel Lumiere", City: "Paris", Stars: 4, NightlyUSD: 210, Area: "Le Marais"},
	{Name: "Gare du Nord Suites", City: "Paris", Stars: 3, NightlyUSD: 135, Area: "10th Arr."},
	{Name: "Seine Palace", City: "Paris", Stars: 5, NightlyUSD: 460, Area: "7th Arr."},
	{Name: "Shinjuku Garden Inn", City: "Tokyo", Stars: 4, NightlyUSD: 180, Area: "Shinjuku"},
	{Name: "Asakusa Ryokan Sato", City: "Tokyo", Stars: 3, NightlyUSD: 95, Area: "Asakusa"},
	{Name: "Trastevere House", City: "Rome", Stars: 3, NightlyUSD: 110, Area: "Trastevere"},
	{Name: "Colosseo Grand", City: "Rome", Stars: 5, NightlyUSD: 390, Area: "Monti"},
	{Name: "Ramblas Central", City: "Barcelona", Stars: 4, NightlyUSD: 165, Area: "El Raval"},
	{Name: "Ubud Terrace Villas", City: "Bali", Stars: 4, NightlyUSD: 120, Area: "Ubud"},
	{Name: "Harbour Lights", City: "Reykjavik", Stars: 3, NightlyUSD: 150, Area: "Old Harbour"},
	{Name: "Playa Azul Resort", City: "Cancun", Stars: 5, NightlyUSD: 280, Area: "Hotel Zone"},
}
