package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rohan/voyager/internal/governance"
	"github.com/rohan/voyager/internal/tools"
)

func pendingPlan(steps ...*PlanStep) *ExecutionPlan {
	for _, s := range steps {
		s.Status = StatusPending
	}
	return &ExecutionPlan{Summary: "test plan", Steps: steps}
}

func TestExecutor_IndependentStepsRunConcurrently(t *testing.T) {
	// Both tools rendezvous on an unbuffered channel. The exchange only
	// completes if the steps are in flight at the same time; a sequential
	// executor would time the first step out instead.
	barrier := make(chan struct{})
	meet := func(ctx context.Context, _ map[string]any) (string, *tools.ToolError) {
		select {
		case barrier <- struct{}{}:
		case <-barrier:
		case <-ctx.Done():
			return "", &tools.ToolError{Kind: tools.ErrTimeout, Message: "never met peer"}
		}
		return `{"ok":true}`, nil
	}

	registry := newTestRegistry(t,
		&stubTool{name: "flight_search", invoke: meet},
		&stubTool{name: "hotel_search", invoke: meet},
	)
	ex := newTestExecutor(registry)
	ex.StepTimeout = 2 * time.Second

	plan := pendingPlan(
		&PlanStep{ID: "s1", Tool: "flight_search", Input: map[string]any{}},
		&PlanStep{ID: "s2", Tool: "hotel_search", Input: map[string]any{}},
	)

	results, err := ex.Run(context.Background(), "sess", "req", plan)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for _, id := range []string{"s1", "s2"} {
		res := results[id]
		if res == nil || !res.Success {
			t.Errorf("step %s did not succeed: %+v", id, res)
		}
	}
}

func TestExecutor_DependentStepWaitsForResult(t *testing.T) {
	var firstDone bool
	registry := newTestRegistry(t,
		&stubTool{name: "flight_search", invoke: func(ctx context.Context, _ map[string]any) (string, *tools.ToolError) {
			time.Sleep(20 * time.Millisecond)
			firstDone = true
			return `{"flights":[]}`, nil
		}},
		&stubTool{name: "budget_estimate", invoke: func(ctx context.Context, _ map[string]any) (string, *tools.ToolError) {
			if !firstDone {
				return "", &tools.ToolError{Kind: tools.ErrInvalidInput, Message: "ran before dependency"}
			}
			return `{"total":100}`, nil
		}},
	)
	ex := newTestExecutor(registry)

	plan := pendingPlan(
		&PlanStep{ID: "s1", Tool: "flight_search", Input: map[string]any{}},
		&PlanStep{ID: "s2", Tool: "budget_estimate", Input: map[string]any{}, DependsOn: []string{"s1"}},
	)

	results, err := ex.Run(context.Background(), "sess", "req", plan)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res := results["s2"]; res == nil || !res.Success {
		t.Errorf("dependent step should run after its dependency: %+v", res)
	}
}

func TestExecutor_FailureSkipsDependentsOnly(t *testing.T) {
	registry := newTestRegistry(t,
		&stubTool{name: "flight_search", invoke: func(ctx context.Context, _ map[string]any) (string, *tools.ToolError) {
			return "", &tools.ToolError{Kind: tools.ErrUpstreamUnavailable, Message: "airline API down"}
		}},
		&stubTool{name: "budget_estimate"},
		&stubTool{name: "hotel_search"},
	)
	ex := newTestExecutor(registry)

	plan := pendingPlan(
		&PlanStep{ID: "s1", Tool: "flight_search", Input: map[string]any{}},
		&PlanStep{ID: "s2", Tool: "budget_estimate", Input: map[string]any{}, DependsOn: []string{"s1"}},
		&PlanStep{ID: "s3", Tool: "hotel_search", Input: map[string]any{}},
	)

	results, err := ex.Run(context.Background(), "sess", "req", plan)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res := results["s1"]; res.Success || res.Error.Kind != string(tools.ErrUpstreamUnavailable) {
		t.Errorf("unexpected s1 result: %+v", res)
	}
	if res := results["s2"]; res.Success || res.Error.Kind != kindDependencyFailed {
		t.Errorf("s2 should be skipped with dependency_failed, got %+v", res)
	}
	if plan.Steps[1].Status != StatusSkipped {
		t.Errorf("s2 status = %s, want skipped", plan.Steps[1].Status)
	}
	if res := results["s3"]; !res.Success {
		t.Errorf("independent branch must still run, got %+v", res)
	}
}

func TestExecutor_SkipCascadesTransitively(t *testing.T) {
	registry := newTestRegistry(t,
		&stubTool{name: "flight_search", invoke: func(ctx context.Context, _ map[string]any) (string, *tools.ToolError) {
			return "", &tools.ToolError{Kind: tools.ErrUpstreamUnavailable, Message: "down"}
		}},
		&stubTool{name: "budget_estimate"},
		&stubTool{name: "itinerary_builder"},
	)
	ex := newTestExecutor(registry)

	plan := pendingPlan(
		&PlanStep{ID: "s1", Tool: "flight_search", Input: map[string]any{}},
		&PlanStep{ID: "s2", Tool: "budget_estimate", Input: map[string]any{}, DependsOn: []string{"s1"}},
		&PlanStep{ID: "s3", Tool: "itinerary_builder", Input: map[string]any{}, DependsOn: []string{"s2"}},
	)

	results, err := ex.Run(context.Background(), "sess", "req", plan)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for _, id := range []string{"s2", "s3"} {
		if res := results[id]; res.Success || res.Error.Kind != kindDependencyFailed {
			t.Errorf("%s should cascade to dependency_failed, got %+v", id, res)
		}
	}
}

func TestExecutor_StepTimeout(t *testing.T) {
	registry := newTestRegistry(t,
		&stubTool{name: "destination_info", invoke: func(ctx context.Context, _ map[string]any) (string, *tools.ToolError) {
			<-ctx.Done()
			return "", &tools.ToolError{Kind: tools.ErrUpstreamUnavailable, Message: "interrupted"}
		}},
		&stubTool{name: "itinerary_builder"},
	)
	ex := newTestExecutor(registry)
	ex.StepTimeout = 20 * time.Millisecond

	plan := pendingPlan(
		&PlanStep{ID: "s1", Tool: "destination_info", Input: map[string]any{}},
		&PlanStep{ID: "s2", Tool: "itinerary_builder", Input: map[string]any{}, DependsOn: []string{"s1"}},
	)

	results, err := ex.Run(context.Background(), "sess", "req", plan)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res := results["s1"]; res.Success || res.Error.Kind != kindToolTimeout {
		t.Errorf("expected tool_timeout for s1, got %+v", res)
	}
	if res := results["s2"]; res.Success || res.Error.Kind != kindDependencyFailed {
		t.Errorf("step behind a timed-out dependency should be skipped, got %+v", res)
	}
}

func TestExecutor_PolicyDenialFailsStep(t *testing.T) {
	invoked := false
	registry := newTestRegistry(t,
		&stubTool{name: "flight_search", invoke: func(ctx context.Context, _ map[string]any) (string, *tools.ToolError) {
			invoked = true
			return `{"ok":true}`, nil
		}},
	)
	policy := governance.NewDefaultPolicyEngine()
	policy.DenyTool("flight_search")

	ex := newTestExecutor(registry)
	ex.Policy = policy

	plan := pendingPlan(&PlanStep{ID: "s1", Tool: "flight_search", Input: map[string]any{}})

	results, err := ex.Run(context.Background(), "sess", "req", plan)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if invoked {
		t.Error("denied tool must not be invoked")
	}
	if res := results["s1"]; res.Success || res.Error.Kind != string(tools.ErrInvalidInput) {
		t.Errorf("expected invalid_input from policy denial, got %+v", res)
	}
}

func TestExecutor_QueuedStepsStayPendingUntilAdmitted(t *testing.T) {
	// With one slot, the two ready steps run strictly one after the
	// other. Each tool records the other step's status at that moment:
	// the not-yet-admitted peer must still be pending, never running.
	var mu sync.Mutex
	observed := make(map[string]StepStatus)

	plan := pendingPlan(
		&PlanStep{ID: "s1", Tool: "flight_search", Input: map[string]any{}},
		&PlanStep{ID: "s2", Tool: "hotel_search", Input: map[string]any{}},
	)
	peer := map[string]*PlanStep{"s1": plan.Steps[1], "s2": plan.Steps[0]}

	watch := func(self string) func(ctx context.Context, _ map[string]any) (string, *tools.ToolError) {
		return func(ctx context.Context, _ map[string]any) (string, *tools.ToolError) {
			mu.Lock()
			observed[self] = peer[self].Status
			mu.Unlock()
			return `{"ok":true}`, nil
		}
	}

	registry := newTestRegistry(t,
		&stubTool{name: "flight_search", invoke: watch("s1")},
		&stubTool{name: "hotel_search", invoke: watch("s2")},
	)
	ex := newTestExecutor(registry)
	ex.MaxConcurrency = 1

	if _, err := ex.Run(context.Background(), "sess", "req", plan); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for id, status := range observed {
		if status == StatusRunning {
			t.Errorf("peer of %s reported running while waiting for a slot", id)
		}
	}
}

func TestExecutor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	registry := newTestRegistry(t, &stubTool{name: "flight_search"})
	ex := newTestExecutor(registry)

	plan := pendingPlan(&PlanStep{ID: "s1", Tool: "flight_search", Input: map[string]any{}})
	_, err := ex.Run(ctx, "sess", "req", plan)
	if KindOf(err) != ErrRequestCancelled {
		t.Fatalf("expected ErrRequestCancelled, got %v", err)
	}
}
