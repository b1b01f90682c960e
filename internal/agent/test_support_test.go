package agent

import (
	"context"
	"sync"
	"testing"

	"github.com/rohan/voyager/internal/llm"
	"github.com/rohan/voyager/internal/observability"
	"github.com/rohan/voyager/internal/session"
	"github.com/rohan/voyager/internal/store"
	"github.com/rohan/voyager/internal/tools"
)

// scriptedGateway pops one scripted response per Invoke call.
type scriptedGateway struct {
	mu        sync.Mutex
	responses []llm.Response
	errs      []error
	calls     int
	prompts   []string
}

func (g *scriptedGateway) Invoke(ctx context.Context, req llm.Request) (llm.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.calls
	g.calls++
	g.prompts = append(g.prompts, req.Prompt)
	if idx < len(g.errs) && g.errs[idx] != nil {
		return llm.Response{}, g.errs[idx]
	}
	if idx >= len(g.responses) {
		idx = len(g.responses) - 1
	}
	if idx < 0 {
		return llm.Response{Text: "", Provider: "stub"}, nil
	}
	return g.responses[idx], nil
}

func textResponse(text string) llm.Response {
	return llm.Response{
		Text:     text,
		Provider: "stub",
		Usage:    llm.Usage{PromptTokens: 20, CompletionTokens: 10},
	}
}

// stubTool is a configurable fake capability.
type stubTool struct {
	name   string
	schema map[string]any
	invoke func(ctx context.Context, input map[string]any) (string, *tools.ToolError)
}

func (t *stubTool) Name() string        { return t.name }
func (t *stubTool) Description() string { return "stub tool " + t.name }

func (t *stubTool) Parameters() map[string]any {
	if t.schema != nil {
		return t.schema
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
		},
	}
}

func (t *stubTool) Invoke(ctx context.Context, input map[string]any) (string, *tools.ToolError) {
	if t.invoke != nil {
		return t.invoke(ctx, input)
	}
	return `{"ok":true}`, nil
}

func newTestRegistry(t *testing.T, ts ...tools.Tool) *tools.Registry {
	t.Helper()
	registry := tools.NewRegistry()
	for _, tool := range ts {
		if err := registry.Register(tool); err != nil {
			t.Fatal(err)
		}
	}
	return registry
}

func newTestSessions() *session.Manager {
	return session.NewManager(store.NewMemoryStore(), nil, 12)
}

func newTestExecutor(registry *tools.Registry) *Executor {
	return &Executor{
		Registry:       registry,
		Logger:         observability.NewLogger(),
		MaxConcurrency: 4,
	}
}
