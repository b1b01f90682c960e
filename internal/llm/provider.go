package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a provider failure. The kind decides whether the
// gateway retries, falls back, or aborts the chain.
type ErrorKind string

const (
	KindAccessDenied ErrorKind = "access_denied"
	KindRateLimited  ErrorKind = "rate_limited"
	KindTimeout      ErrorKind = "timeout"
	KindOther        ErrorKind = "other"
)

// Params are the generation parameters passed to a provider.
type Params struct {
	Temperature float64
	MaxTokens   int
}

// Usage carries token counters reported by a provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Request is a single model invocation.
type Request struct {
	Prompt string
	Params Params
}

// Response is the result of a model invocation. Provider names which
// provider in the fallback chain actually served it.
type Response struct {
	Text     string
	Usage    Usage
	Provider string
}

// Provider is one interchangeable language-model backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string, params Params) (string, Usage, error)
}

// ProviderError is the classified failure of a single provider attempt.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// KindOf extracts the classification from an attempt error, defaulting
// to Other for anything unclassified.
func KindOf(err error) ErrorKind {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindOther
}

// Classify maps a raw provider error onto an ErrorKind by inspecting the
// error chain and message. Capacity/quota errors classify as RateLimited
// so they stay fallback-eligible.
func Classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "401", "403", "unauthorized", "forbidden", "access denied", "permission", "invalid api key", "invalid_api_key"):
		return KindAccessDenied
	case containsAny(msg, "429", "rate limit", "rate_limit", "quota", "capacity", "overloaded"):
		return KindRateLimited
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return KindTimeout
	default:
		return KindOther
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
