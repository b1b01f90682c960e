package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/tools/duckduckgo"
)

// DestinationInfoTool answers open-ended destination questions through a
// live web search. It is the only network-backed tool in the default set.
type DestinationInfoTool struct {
	client *duckduckgo.Tool
}

func NewDestinationInfoTool() (*DestinationInfoTool, error) {
	ddg, err := duckduckgo.New(10, duckduckgo.DefaultUserAgent)
	if err != nil {
		return nil, err
	}
	return &DestinationInfoTool{client: ddg}, nil
}

func (d *DestinationInfoTool) Name() string {
	return "destination_info"
}

func (d *DestinationInfoTool) Description() string {
	return "Look up current information about a travel destination: attractions, weather patterns, visa notes, local customs."
}

func (d *DestinationInfoTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The destination question to research, e.g. 'best time to visit Kyoto'",
			},
		},
		"required": []string{"query"},
	}
}

func (d *DestinationInfoTool) Invoke(ctx context.Context, input map[string]any) (string, *ToolError) {
	var args struct {
		Query string `json:"query"`
	}
	if terr := decodeArgs(input, &args); terr != nil {
		return "", terr
	}
	if args.Query == "" {
		return "", Invalid("query is required")
	}

	res, err := d.client.Call(ctx, args.Query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &ToolError{Kind: ErrTimeout, Message: fmt.Sprintf("destination lookup timed out: %v", err)}
		}
		return "", &ToolError{Kind: ErrUpstreamUnavailable, Message: fmt.Sprintf("destination lookup failed: %v", err)}
	}
	return res, nil
}
