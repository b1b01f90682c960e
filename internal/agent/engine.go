package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rohan/voyager/internal/llm"
	"github.com/rohan/voyager/internal/observability"
	"github.com/rohan/voyager/internal/session"
)

// ReplyMetadata is the structured trace returned with every reply so the
// caller can inspect what the engine did.
type ReplyMetadata struct {
	SessionID   string                 `json:"session_id"`
	RequestID   string                 `json:"request_id"`
	Plan        *ExecutionPlan         `json:"plan"`
	ToolResults map[string]*ToolResult `json:"tool_results"`
	Provider    string                 `json:"provider"`
	Usage       llm.Usage              `json:"usage"`
}

// Reply is the engine's answer to one user request.
type Reply struct {
	Text     string        `json:"text"`
	Metadata ReplyMetadata `json:"metadata"`
}

// Engine is the orchestration core: context load, plan, execute,
// synthesize, persist. One Engine serves all sessions.
type Engine struct {
	Sessions    *session.Manager
	Planner     *Planner
	Executor    *Executor
	Synthesizer *Synthesizer
	Logger      *observability.Logger
}

// HandleRequest runs the full control flow for one user utterance.
// Requests for the same session are serialized; failures always surface
// as a typed *Error.
func (e *Engine) HandleRequest(ctx context.Context, sessionID, userText string) (*Reply, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	requestID := uuid.NewString()

	release := e.Sessions.Acquire(sessionID)
	defer release()
	defer observability.SetStatus(observability.PhaseIdle, "")

	sess, err := e.Sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, NewError(ErrSessionStoreUnavailable, fmt.Sprintf("cannot load session %s", sessionID), err)
	}

	observability.SetStatus(observability.PhasePlanning, userText)
	plan, err := e.Planner.Plan(ctx, sess, userText)
	if err != nil {
		return nil, asTyped(err)
	}
	e.Logger.LogPlan(sessionID, requestID, plan.Summary, plan.Confidence, len(plan.Steps))

	observability.SetStatus(observability.PhaseExecuting, plan.Summary)
	results, err := e.Executor.Run(ctx, sessionID, requestID, plan)
	if err != nil {
		return nil, asTyped(err)
	}

	observability.SetStatus(observability.PhaseSynthesizing, plan.Summary)
	agentTurn, err := e.Synthesizer.Synthesize(ctx, sess, userText, plan, results)
	if err != nil {
		return nil, asTyped(err)
	}

	meta := agentTurn.Metadata
	e.Logger.LogCost(sessionID, requestID, meta.PromptTokens, meta.CompletionTokens, meta.Provider)

	return &Reply{
		Text: agentTurn.Content,
		Metadata: ReplyMetadata{
			SessionID:   sessionID,
			RequestID:   requestID,
			Plan:        plan,
			ToolResults: results,
			Provider:    meta.Provider,
			Usage: llm.Usage{
				PromptTokens:     meta.PromptTokens,
				CompletionTokens: meta.CompletionTokens,
			},
		},
	}, nil
}

// asTyped guarantees the boundary contract: anything that escaped the
// components untyped becomes a ModelFailure.
func asTyped(err error) error {
	if KindOf(err) != "" {
		return err
	}
	return NewError(ErrModelFailure, "internal failure", err)
}
