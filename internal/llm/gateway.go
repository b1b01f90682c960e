package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// Failure records why one provider in the chain was passed over. The
// exhaustion error carries these for diagnostics.
type Failure struct {
	Provider string    `json:"provider"`
	Kind     ErrorKind `json:"kind"`
	Message  string    `json:"message"`
}

// ExhaustedError is returned when every provider in the chain failed
// with a fallback-eligible error.
type ExhaustedError struct {
	Failures []Failure
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %s (%s)", f.Provider, f.Kind, f.Message))
	}
	return "all providers exhausted: " + strings.Join(parts, "; ")
}

// Gateway invokes a language model through a prioritized chain of
// interchangeable providers. Callers never learn which provider answered
// except through Response.Provider.
type Gateway struct {
	providers []Provider
	timeout   time.Duration
}

// NewGateway builds a gateway over the given fallback chain. timeout
// bounds each individual provider attempt; zero means no per-attempt bound
// beyond the request context.
func NewGateway(providers []Provider, timeout time.Duration) *Gateway {
	return &Gateway{providers: providers, timeout: timeout}
}

// Invoke tries providers in chain order. AccessDenied and RateLimited
// advance the chain; Timeout retries the same provider once before
// advancing; Other aborts immediately since switching providers will not
// fix a malformed request.
func (g *Gateway) Invoke(ctx context.Context, req Request) (Response, error) {
	if len(g.providers) == 0 {
		return Response{}, &ExhaustedError{}
	}

	var failures []Failure

	for _, p := range g.providers {
		retried := false
		for {
			if err := ctx.Err(); err != nil {
				return Response{}, err
			}

			text, usage, err := g.attempt(ctx, p, req)
			if err == nil {
				return Response{Text: text, Usage: usage, Provider: p.Name()}, nil
			}

			kind := KindOf(err)
			log.Printf("provider %s attempt failed (%s): %v", p.Name(), kind, err)

			if kind == KindTimeout && !retried {
				retried = true
				continue
			}
			if kind == KindOther {
				return Response{}, err
			}

			failures = append(failures, Failure{
				Provider: p.Name(),
				Kind:     kind,
				Message:  err.Error(),
			})
			break
		}
	}

	return Response{}, &ExhaustedError{Failures: failures}
}

func (g *Gateway) attempt(ctx context.Context, p Provider, req Request) (string, Usage, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return p.Generate(ctx, req.Prompt, req.Params)
}
