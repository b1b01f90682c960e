package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// ErrorKind is the closed set of failure kinds a tool may report.
type ErrorKind string

const (
	ErrInvalidInput        ErrorKind = "invalid_input"
	ErrUpstreamUnavailable ErrorKind = "upstream_unavailable"
	ErrRateLimited         ErrorKind = "rate_limited"
	ErrTimeout             ErrorKind = "timeout"
	ErrUnknown             ErrorKind = "unknown"
)

// ToolError is the structured failure a tool reports through Invoke.
type ToolError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Invalid builds an InvalidInput error.
func Invalid(format string, args ...any) *ToolError {
	return &ToolError{Kind: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// Tool defines the interface for all agent capabilities.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON Schema for the tool's inputs
	Invoke(ctx context.Context, input map[string]any) (string, *ToolError)
}

// Registry manages the set of available tools. It is append-only and
// read-only after startup, so no locking is needed at execution time.
type Registry struct {
	tools map[string]Tool
	names []string
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the catalog. Registering the same name twice
// is a configuration error the caller should treat as fatal.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool has empty name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q is already registered", name)
	}
	r.tools[name] = t
	r.names = append(r.names, name)
	return nil
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns tools in registration order so prompts stay stable.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.tools[name])
	}
	return out
}

// decodeArgs round-trips a validated input map into a typed args struct.
func decodeArgs(input map[string]any, out any) *ToolError {
	raw, err := json.Marshal(input)
	if err != nil {
		return Invalid("invalid input: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return Invalid("invalid input: %v", err)
	}
	return nil
}
