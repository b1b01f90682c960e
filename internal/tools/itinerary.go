package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ItineraryFormatTool renders a day-by-day markdown itinerary and saves it
// under the configured workspace directory.
type ItineraryFormatTool struct {
	Root string
}

func NewItineraryFormatTool(root string) *ItineraryFormatTool {
	absRoot, _ := filepath.Abs(root)
	return &ItineraryFormatTool{Root: absRoot}
}

func (f *ItineraryFormatTool) Name() string {
	return "itinerary_format"
}

func (f *ItineraryFormatTool) Description() string {
	return "Format a day-by-day trip itinerary as markdown and save it to the workspace."
}

func (f *ItineraryFormatTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"destination": map[string]any{
				"type":        "string",
				"description": "The trip destination",
			},
			"start_date": map[string]any{
				"type":        "string",
				"description": "Trip start date, YYYY-MM-DD",
			},
			"days": map[string]any{
				"type":        "array",
				"description": "One entry per day: a short description of that day's activities",
			},
			"notes": map[string]any{
				"type":        "string",
				"description": "Optional closing notes (budget, bookings, reminders)",
			},
		},
		"required": []string{"destination", "days"},
	}
}

func (f *ItineraryFormatTool) Invoke(ctx context.Context, input map[string]any) (string, *ToolError) {
	var args struct {
		Destination string   `json:"destination"`
		StartDate   string   `json:"start_date"`
		Days        []string `json:"days"`
		Notes       string   `json:"notes"`
	}
	if terr := decodeArgs(input, &args); terr != nil {
		return "", terr
	}
	if args.Destination == "" {
		return "", Invalid("destination is required")
	}
	if len(args.Days) == 0 {
		return "", Invalid("at least one day is required")
	}

	start, dateErr := time.Parse("2006-01-02", args.StartDate)
	hasDates := args.StartDate != "" && dateErr == nil

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s Itinerary\n\n", args.Destination)
	for i, day := range args.Days {
		if hasDates {
			fmt.Fprintf(&sb, "## Day %d (%s)\n\n%s\n\n", i+1, start.AddDate(0, 0, i).Format("Mon, Jan 2"), day)
		} else {
			fmt.Fprintf(&sb, "## Day %d\n\n%s\n\n", i+1, day)
		}
	}
	if args.Notes != "" {
		fmt.Fprintf(&sb, "## Notes\n\n%s\n", args.Notes)
	}
	content := sb.String()

	filename := slugify(args.Destination) + "-itinerary.md"
	targetPath := filepath.Join(f.Root, filename)

	// Safety check: ensure targetPath stays within the workspace root.
	rel, err := filepath.Rel(f.Root, targetPath)
	if err != nil || (len(rel) >= 2 && rel[:2] == "..") {
		return "", Invalid("unsafe path attempt: %s", filename)
	}

	if err := os.MkdirAll(f.Root, 0755); err != nil {
		return "", &ToolError{Kind: ErrUnknown, Message: fmt.Sprintf("failed to create workspace: %v", err)}
	}
	if err := os.WriteFile(targetPath, []byte(content), 0644); err != nil {
		return "", &ToolError{Kind: ErrUnknown, Message: fmt.Sprintf("failed to save itinerary: %v", err)}
	}

	payload, err := json.Marshal(map[string]any{
		"path":     targetPath,
		"markdown": content,
	})
	if err != nil {
		return "", &ToolError{Kind: ErrUnknown, Message: err.Error()}
	}
	return string(payload), nil
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			sb.WriteRune('-')
		}
	}
	return strings.Trim(sb.String(), "-")
}
