package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/rohan/voyager/internal/llm"
	"github.com/rohan/voyager/internal/session"
	"github.com/rohan/voyager/internal/tools"
)

// ModelGateway is the slice of the model gateway the agent components use.
type ModelGateway interface {
	Invoke(ctx context.Context, req llm.Request) (llm.Response, error)
}

const defaultPlannerDirective = `You are the planning module of a travel assistant. Given the conversation and the
latest user request, produce an execution plan as a single JSON object:

{"summary": "<one-line restatement of the request>",
 "confidence": <0.0-1.0>,
 "reasoning": "<why these steps>",
 "steps": [{"id": "s1", "tool": "<tool name>", "input": {...}, "depends_on": []}]}

Rules:
- Only reference tools from the list below, with inputs matching their schemas.
- A step's depends_on may only name other step ids; the graph must be acyclic.
- Steps with no dependency between them will run concurrently.
- If the request needs no tool (small talk, opinions, recall), return "steps": [].
- Output only the JSON object.`

// Planner converts the latest user turn plus session context into an
// ExecutionPlan by prompting a reasoning model through the gateway.
type Planner struct {
	Gateway  ModelGateway
	Registry *tools.Registry
	Sessions *session.Manager
	Prompts  *PromptManager
}

// Plan produces a validated plan. A structurally invalid or unparseable
// model response triggers exactly one repair retry with an amended prompt
// before the request fails.
func (p *Planner) Plan(ctx context.Context, sess *session.Session, input string) (*ExecutionPlan, error) {
	prompt := p.buildPrompt(sess, input, "")

	plan, verr := p.planOnce(ctx, prompt)
	if verr == nil {
		return plan, nil
	}
	var typed *Error
	if !errors.As(verr, &typed) || !isRepairable(typed.Kind) {
		return nil, verr
	}

	log.Printf("plan for session %s rejected (%s), retrying with amended prompt", sess.ID, typed.Kind)
	prompt = p.buildPrompt(sess, input, typed.Message)
	plan, verr = p.planOnce(ctx, prompt)
	if verr != nil {
		return nil, verr
	}
	return plan, nil
}

func isRepairable(kind ErrorKind) bool {
	switch kind {
	case ErrUnknownTool, ErrDependencyCycle, ErrMalformedModelOutput:
		return true
	default:
		return false
	}
}

func (p *Planner) planOnce(ctx context.Context, prompt string) (*ExecutionPlan, error) {
	resp, err := p.Gateway.Invoke(ctx, llm.Request{
		Prompt: prompt,
		Params: llm.Params{Temperature: 0.2, MaxTokens: 1200},
	})
	if err != nil {
		return nil, mapGatewayErr(err, "plan generation")
	}

	plan, perr := parsePlan(resp.Text)
	if perr != nil {
		return nil, NewError(ErrMalformedModelOutput, perr.Error(), perr)
	}
	if verr := p.validate(plan); verr != nil {
		return nil, verr
	}
	return plan, nil
}

func (p *Planner) buildPrompt(sess *session.Session, input, violation string) string {
	directive := defaultPlannerDirective
	if p.Prompts != nil {
		if d, err := p.Prompts.GetPlannerPrompt(); err == nil {
			directive = d
		} else {
			log.Printf("Warning: Failed to load planner prompt: %v", err)
		}
	}

	var sb strings.Builder
	sb.WriteString(directive)

	sb.WriteString("\n\n## Available Tools:\n")
	for _, t := range p.Registry.List() {
		schema, _ := json.Marshal(t.Parameters())
		fmt.Fprintf(&sb, "- %s: %s\n  input schema: %s\n", t.Name(), t.Description(), schema)
	}

	summary, recent := p.Sessions.Window(sess)
	if summary != "" {
		fmt.Fprintf(&sb, "\n## Conversation Summary:\n%s\n", summary)
	}
	if len(recent) > 0 {
		sb.WriteString("\n## Recent Conversation:\n")
		for _, t := range recent {
			fmt.Fprintf(&sb, "%s: %s\n", t.Role, t.Content)
		}
	}
	if len(sess.Preferences) > 0 {
		sb.WriteString("\n## Known Preferences:\n")
		prefs, _ := json.Marshal(sess.Preferences)
		sb.Write(prefs)
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "\n## User Request:\n%s\n", input)

	if violation != "" {
		fmt.Fprintf(&sb, "\nYour previous plan was invalid: %s.\nProduce a corrected plan that fixes this violation.\n", violation)
	}

	return sb.String()
}

type planDoc struct {
	Summary    string        `json:"summary"`
	Confidence float64       `json:"confidence"`
	Reasoning  string        `json:"reasoning"`
	Steps      []planStepDoc `json:"steps"`
}

type planStepDoc struct {
	ID        string         `json:"id"`
	Tool      string         `json:"tool"`
	Input     map[string]any `json:"input"`
	DependsOn []string       `json:"depends_on"`
}

func parsePlan(text string) (*ExecutionPlan, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var doc planDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("plan is not valid JSON: %v", err)
	}

	plan := &ExecutionPlan{
		Summary:    doc.Summary,
		Confidence: clamp01(doc.Confidence),
		Reasoning:  doc.Reasoning,
	}
	for i, s := range doc.Steps {
		if s.ID == "" {
			return nil, fmt.Errorf("step %d is missing an id", i+1)
		}
		if s.Tool == "" {
			return nil, fmt.Errorf("step %q is missing a tool name", s.ID)
		}
		input := s.Input
		if input == nil {
			input = map[string]any{}
		}
		plan.Steps = append(plan.Steps, &PlanStep{
			ID:        s.ID,
			Tool:      s.Tool,
			Input:     input,
			DependsOn: s.DependsOn,
			Status:    StatusPending,
		})
	}
	return plan, nil
}

// extractJSON pulls the JSON object out of a model response, tolerating
// code fences and surrounding prose.
func extractJSON(text string) (string, error) {
	if idx := strings.Index(text, "```json"); idx >= 0 {
		rest := text[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			text = rest[:end]
		}
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			text = rest[:end]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object found in model response")
	}
	return text[start : end+1], nil
}

func (p *Planner) validate(plan *ExecutionPlan) error {
	for _, step := range plan.Steps {
		tool, ok := p.Registry.Get(step.Tool)
		if !ok {
			return NewError(ErrUnknownTool, fmt.Sprintf("step %q references unknown tool %q", step.ID, step.Tool), nil)
		}
		if err := tools.ValidateInput(tool.Parameters(), step.Input); err != nil {
			return NewError(ErrMalformedModelOutput,
				fmt.Sprintf("step %q input does not match the %s schema: %v", step.ID, step.Tool, err), nil)
		}
	}

	ordered, err := topoSort(plan.Steps)
	if err != nil {
		return NewError(ErrDependencyCycle, err.Error(), nil)
	}
	plan.Steps = ordered
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func mapGatewayErr(err error, op string) error {
	var ex *llm.ExhaustedError
	if errors.As(err, &ex) {
		return NewError(ErrAllProvidersExhausted, op+": all model providers exhausted", err)
	}
	if errors.Is(err, context.Canceled) {
		return NewError(ErrRequestCancelled, op+" cancelled", err)
	}
	return NewError(ErrModelFailure, op+": model invocation failed", err)
}
