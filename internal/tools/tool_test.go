package tools

import (
	"context"
	"testing"
)

type fakeTool struct {
	name string
}

func (f *fakeTool) Name() string               { return f.name }
func (f *fakeTool) Description() string        { return "fake" }
func (f *fakeTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (f *fakeTool) Invoke(ctx context.Context, input map[string]any) (string, *ToolError) {
	return "{}", nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakeTool{name: "a"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, ok := r.Get("a"); !ok {
		t.Error("registered tool not found")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("unknown tool should not be found")
	}
}

func TestRegistry_DuplicateNameFails(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakeTool{name: "a"}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := r.Register(&fakeTool{name: "a"}); err == nil {
		t.Fatal("duplicate registration must fail")
	}
}

func TestRegistry_EmptyNameFails(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakeTool{name: ""}); err == nil {
		t.Fatal("empty tool name must fail")
	}
}

func TestRegistry_ListKeepsRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"c", "a", "b"} {
		if err := r.Register(&fakeTool{name: name}); err != nil {
			t.Fatal(err)
		}
	}
	list := r.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 tools, got %d", len(list))
	}
	for i, want := range []string{"c", "a", "b"} {
		if list[i].Name() != want {
			t.Errorf("List()[%d] = %s, want %s", i, list[i].Name(), want)
		}
	}
}

func TestValidateInput(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city":   map[string]any{"type": "string"},
			"nights": map[string]any{"type": "integer"},
			"price":  map[string]any{"type": "number"},
			"cabin":  map[string]any{"type": "string", "enum": []string{"economy", "business"}},
		},
		"required": []string{"city"},
	}

	cases := []struct {
		name    string
		input   map[string]any
		wantErr bool
	}{
		{"valid minimal", map[string]any{"city": "Paris"}, false},
		{"valid full", map[string]any{"city": "Paris", "nights": float64(3), "price": 99.5, "cabin": "economy"}, false},
		{"missing required", map[string]any{"nights": float64(3)}, true},
		{"unexpected field", map[string]any{"city": "Paris", "ghost": 1}, true},
		{"wrong type", map[string]any{"city": 42}, true},
		{"fractional integer", map[string]any{"city": "Paris", "nights": 2.5}, true},
		{"whole float as integer", map[string]any{"city": "Paris", "nights": float64(2)}, false},
		{"enum violation", map[string]any{"city": "Paris", "cabin": "cargo"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateInput(schema, tc.input)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateInput() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
