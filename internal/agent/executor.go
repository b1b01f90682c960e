package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rohan/voyager/internal/governance"
	"github.com/rohan/voyager/internal/observability"
	"github.com/rohan/voyager/internal/tools"
)

const (
	kindToolTimeout      = "tool_timeout"
	kindDependencyFailed = "dependency_failed"
)

// Executor runs an ExecutionPlan to completion, respecting dependencies.
// Ready steps run concurrently up to MaxConcurrency; a failure in one
// branch never aborts independent branches.
type Executor struct {
	Registry       *tools.Registry
	Policy         governance.PolicyEngine
	Logger         *observability.Logger
	MaxConcurrency int
	StepTimeout    time.Duration
}

// Run executes the plan and returns one ToolResult per step. The only
// error it returns is request cancellation; tool failures are recorded in
// the results instead.
func (e *Executor) Run(ctx context.Context, sessionID, requestID string, plan *ExecutionPlan) (map[string]*ToolResult, error) {
	results := make(map[string]*ToolResult, len(plan.Steps))
	var mu sync.Mutex

	maxInFlight := e.MaxConcurrency
	if maxInFlight <= 0 {
		maxInFlight = 4
	}

	for {
		if err := ctx.Err(); err != nil {
			return results, NewError(ErrRequestCancelled, "plan execution cancelled", err)
		}

		e.skipBlockedSteps(plan, results, sessionID, requestID)

		batch := readySteps(plan)
		if len(batch) == 0 {
			if pendingCount(plan) == 0 {
				return results, nil
			}
			// Validated plans always drain; guard against scheduling
			// stalls by skipping whatever remains.
			e.skipBlockedSteps(plan, results, sessionID, requestID)
			if pendingCount(plan) > 0 {
				for _, step := range plan.Steps {
					if step.Status == StatusPending {
						e.markSkipped(step, results, sessionID, requestID)
					}
				}
			}
			return results, nil
		}

		var g errgroup.Group
		g.SetLimit(maxInFlight)
		for _, step := range batch {
			g.Go(func() error {
				// A step only reports running once it holds a slot;
				// queued steps stay pending.
				step.Status = StatusRunning
				e.Logger.LogStep(sessionID, requestID, step.ID, step.Tool, string(StatusRunning))
				res := e.invoke(ctx, sessionID, requestID, step)
				mu.Lock()
				results[step.ID] = res
				if res.Success {
					step.Status = StatusSucceeded
				} else {
					step.Status = StatusFailed
				}
				mu.Unlock()
				e.Logger.LogToolResult(sessionID, requestID, step.Tool, res.Success, resultDetail(res))
				e.Logger.LogStep(sessionID, requestID, step.ID, step.Tool, string(step.Status))
				return nil
			})
		}
		_ = g.Wait()
	}
}

// readySteps returns pending steps whose dependencies have all succeeded.
// Order within a batch carries no guarantee.
func readySteps(plan *ExecutionPlan) []*PlanStep {
	byID := stepIndex(plan)
	var batch []*PlanStep
	for _, step := range plan.Steps {
		if step.Status != StatusPending {
			continue
		}
		ready := true
		for _, dep := range step.DependsOn {
			if d, ok := byID[dep]; !ok || d.Status != StatusSucceeded {
				ready = false
				break
			}
		}
		if ready {
			batch = append(batch, step)
		}
	}
	return batch
}

// skipBlockedSteps marks every pending step with a failed or skipped
// dependency as skipped, cascading until a fixed point.
func (e *Executor) skipBlockedSteps(plan *ExecutionPlan, results map[string]*ToolResult, sessionID, requestID string) {
	byID := stepIndex(plan)
	for {
		changed := false
		for _, step := range plan.Steps {
			if step.Status != StatusPending {
				continue
			}
			for _, dep := range step.DependsOn {
				d, ok := byID[dep]
				if ok && (d.Status == StatusFailed || d.Status == StatusSkipped) {
					e.markSkipped(step, results, sessionID, requestID)
					changed = true
					break
				}
			}
		}
		if !changed {
			return
		}
	}
}

func (e *Executor) markSkipped(step *PlanStep, results map[string]*ToolResult, sessionID, requestID string) {
	step.Status = StatusSkipped
	results[step.ID] = &ToolResult{
		StepID: step.ID,
		Error: &ResultError{
			Kind:    kindDependencyFailed,
			Message: fmt.Sprintf("step %q was not attempted because a dependency failed", step.ID),
		},
	}
	e.Logger.LogStep(sessionID, requestID, step.ID, step.Tool, string(StatusSkipped))
}

// resultDetail keeps tool payloads out of the step event stream past a
// sane cap; full payloads still reach the synthesizer and reply metadata.
func resultDetail(res *ToolResult) string {
	detail := res.Payload
	if res.Error != nil {
		detail = res.Error.Message
	}
	if len(detail) > 200 {
		detail = detail[:200] + "..."
	}
	return detail
}

func pendingCount(plan *ExecutionPlan) int {
	n := 0
	for _, step := range plan.Steps {
		if step.Status == StatusPending {
			n++
		}
	}
	return n
}

func stepIndex(plan *ExecutionPlan) map[string]*PlanStep {
	byID := make(map[string]*PlanStep, len(plan.Steps))
	for _, s := range plan.Steps {
		byID[s.ID] = s
	}
	return byID
}

// invoke runs a single step: policy check, then the time-bounded tool
// call. Timeouts mark the step failed without an engine-level retry.
func (e *Executor) invoke(ctx context.Context, sessionID, requestID string, step *PlanStep) *ToolResult {
	argsJSON, _ := json.Marshal(step.Input)

	if e.Policy != nil {
		verdict, err := e.Policy.Evaluate(ctx, governance.Request{
			Tool:      step.Tool,
			Arguments: string(argsJSON),
			SessionID: sessionID,
		})
		if err == nil {
			e.Logger.LogPolicyCheck(sessionID, requestID, step.Tool, string(verdict.Effect), verdict.Reason)
		}
		if err == nil && verdict.Effect == governance.EffectDeny {
			return &ToolResult{
				StepID: step.ID,
				Error: &ResultError{
					Kind:    string(tools.ErrInvalidInput),
					Message: verdict.Reason,
				},
			}
		}
	}

	tool, ok := e.Registry.Get(step.Tool)
	if !ok {
		// Validated plans never reach here; tolerate it anyway.
		return &ToolResult{
			StepID: step.ID,
			Error:  &ResultError{Kind: string(tools.ErrUnknown), Message: fmt.Sprintf("tool %q is not registered", step.Tool)},
		}
	}

	e.Logger.LogToolCall(sessionID, requestID, step.Tool, string(argsJSON))

	timeout := e.StepTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, terr := tool.Invoke(tctx, step.Input)
	if terr != nil {
		kind := string(terr.Kind)
		message := terr.Message
		if errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			kind = kindToolTimeout
			message = fmt.Sprintf("tool %s exceeded its %s time bound", step.Tool, timeout)
		}
		return &ToolResult{
			StepID: step.ID,
			Error:  &ResultError{Kind: kind, Message: message},
		}
	}
	if errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return &ToolResult{
			StepID: step.ID,
			Error: &ResultError{
				Kind:    kindToolTimeout,
				Message: fmt.Sprintf("tool %s exceeded its %s time bound", step.Tool, timeout),
			},
		}
	}

	return &ToolResult{StepID: step.ID, Success: true, Payload: payload}
}
