package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rohan/voyager/internal/llm"
	"github.com/rohan/voyager/internal/observability"
	"github.com/rohan/voyager/internal/tools"
)

func newTestEngine(t *testing.T, gw ModelGateway, toolset ...tools.Tool) *Engine {
	t.Helper()
	if len(toolset) == 0 {
		toolset = []tools.Tool{
			&stubTool{name: "flight_search"},
			&stubTool{name: "hotel_search"},
		}
	}
	registry := newTestRegistry(t, toolset...)
	sessions := newTestSessions()
	logger := observability.NewLogger()
	return &Engine{
		Sessions:    sessions,
		Planner:     &Planner{Gateway: gw, Registry: registry, Sessions: sessions},
		Executor:    &Executor{Registry: registry, Logger: logger, MaxConcurrency: 4},
		Synthesizer: &Synthesizer{Gateway: gw, Sessions: sessions},
		Logger:      logger,
	}
}

func TestEngine_FullFlow(t *testing.T) {
	planJSON := `{"summary": "search flights", "confidence": 0.8, "steps": [
		{"id": "s1", "tool": "flight_search", "input": {"query": "NYC to Paris"}}
	]}`
	gw := &scriptedGateway{responses: []llm.Response{
		textResponse(planJSON),
		textResponse("Here are your flights."),
	}}
	e := newTestEngine(t, gw)

	reply, err := e.HandleRequest(context.Background(), "trip-1", "find flights to Paris")
	if err != nil {
		t.Fatalf("HandleRequest failed: %v", err)
	}
	if reply.Text != "Here are your flights." {
		t.Errorf("unexpected reply text: %q", reply.Text)
	}
	if reply.Metadata.RequestID == "" {
		t.Error("reply must carry a request id")
	}
	if reply.Metadata.SessionID != "trip-1" {
		t.Errorf("reply session id = %q, want trip-1", reply.Metadata.SessionID)
	}
	if len(reply.Metadata.Plan.Steps) != 1 {
		t.Fatalf("expected 1 plan step, got %d", len(reply.Metadata.Plan.Steps))
	}
	if res := reply.Metadata.ToolResults["s1"]; res == nil || !res.Success {
		t.Errorf("tool result missing or failed: %+v", res)
	}
	if reply.Metadata.Provider != "stub" {
		t.Errorf("provider = %q, want stub", reply.Metadata.Provider)
	}
	if gw.calls != 2 {
		t.Errorf("expected 2 model calls (plan + synthesis), got %d", gw.calls)
	}
}

func TestEngine_ZeroStepPlanSkipsExecution(t *testing.T) {
	gw := &scriptedGateway{responses: []llm.Response{
		textResponse(`{"summary": "small talk", "confidence": 1, "steps": []}`),
		textResponse("Hi! Where are we going?"),
	}}
	e := newTestEngine(t, gw)

	reply, err := e.HandleRequest(context.Background(), "trip-1", "hello")
	if err != nil {
		t.Fatalf("HandleRequest failed: %v", err)
	}
	if len(reply.Metadata.ToolResults) != 0 {
		t.Errorf("no tools should have run, got %d results", len(reply.Metadata.ToolResults))
	}
	if reply.Text != "Hi! Where are we going?" {
		t.Errorf("unexpected reply: %q", reply.Text)
	}
}

func TestEngine_ConversationCarriesAcrossRequests(t *testing.T) {
	gw := &scriptedGateway{responses: []llm.Response{
		textResponse(`{"summary": "chat", "steps": []}`),
		textResponse("Nice, Lisbon it is."),
		textResponse(`{"summary": "chat", "steps": []}`),
		textResponse("You mentioned Lisbon earlier."),
	}}
	e := newTestEngine(t, gw)

	if _, err := e.HandleRequest(context.Background(), "trip-1", "I want to go to Lisbon"); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	if _, err := e.HandleRequest(context.Background(), "trip-1", "where was I going again?"); err != nil {
		t.Fatalf("second request failed: %v", err)
	}

	// The second planning prompt must see the first exchange.
	if len(gw.prompts) != 4 {
		t.Fatalf("expected 4 prompts, got %d", len(gw.prompts))
	}
	if !strings.Contains(gw.prompts[2], "I want to go to Lisbon") {
		t.Error("second plan prompt should include the persisted history")
	}
}

func TestEngine_ExhaustedProvidersSurfaceTyped(t *testing.T) {
	ex := &llm.ExhaustedError{Failures: []llm.Failure{
		{Provider: "primary", Kind: llm.KindRateLimited},
	}}
	gw := &scriptedGateway{errs: []error{ex, ex}}
	e := newTestEngine(t, gw)

	_, err := e.HandleRequest(context.Background(), "trip-1", "find flights")
	if KindOf(err) != ErrAllProvidersExhausted {
		t.Fatalf("expected ErrAllProvidersExhausted, got %v", err)
	}
	var typed *Error
	if !errors.As(err, &typed) {
		t.Fatal("boundary must return a typed *Error")
	}
}

func TestEngine_UntypedFailureBecomesModelFailure(t *testing.T) {
	gw := &scriptedGateway{errs: []error{errors.New("wire exploded"), errors.New("wire exploded")}}
	e := newTestEngine(t, gw)

	_, err := e.HandleRequest(context.Background(), "trip-1", "find flights")
	if KindOf(err) != ErrModelFailure {
		t.Fatalf("expected ErrModelFailure, got %v", err)
	}
}

func TestEngine_GeneratesSessionID(t *testing.T) {
	gw := &scriptedGateway{responses: []llm.Response{
		textResponse(`{"summary": "chat", "steps": []}`),
		textResponse("hello"),
	}}
	e := newTestEngine(t, gw)

	reply, err := e.HandleRequest(context.Background(), "", "hi")
	if err != nil {
		t.Fatalf("HandleRequest failed: %v", err)
	}
	if reply.Text != "hello" {
		t.Errorf("unexpected reply: %q", reply.Text)
	}
	// A caller who omitted the session id needs it back to continue the
	// conversation.
	if reply.Metadata.SessionID == "" {
		t.Error("generated session id must be surfaced in the reply")
	}
}
