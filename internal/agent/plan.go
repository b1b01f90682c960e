package agent

import "fmt"

// StepStatus tracks a plan step through its lifecycle.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusRunning   StepStatus = "running"
	StatusSucceeded StepStatus = "succeeded"
	StatusFailed    StepStatus = "failed"
	StatusSkipped   StepStatus = "skipped"
)

// PlanStep is one tool invocation within a plan.
type PlanStep struct {
	ID        string         `json:"id"`
	Tool      string         `json:"tool"`
	Input     map[string]any `json:"input"`
	DependsOn []string       `json:"depends_on,omitempty"`
	Status    StepStatus     `json:"status"`
}

// ExecutionPlan is the dependency-ordered set of tool invocations
// produced per request. Confidence is advisory only; it never gates
// execution.
type ExecutionPlan struct {
	Summary    string      `json:"summary"`
	Confidence float64     `json:"confidence"`
	Reasoning  string      `json:"reasoning"`
	Steps      []*PlanStep `json:"steps"`
}

// ResultError carries the failure kind and message of a step. Kind is
// either one of the tool contract kinds or an engine-level kind
// (tool_timeout, dependency_failed).
type ResultError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ToolResult is the outcome of one plan step.
type ToolResult struct {
	StepID  string       `json:"step_id"`
	Success bool         `json:"success"`
	Payload string       `json:"payload,omitempty"`
	Error   *ResultError `json:"error,omitempty"`
}

// topoSort orders steps so every step appears after all of its
// dependencies. It fails on unknown dependency ids and on cycles.
func topoSort(steps []*PlanStep) ([]*PlanStep, error) {
	byID := make(map[string]*PlanStep, len(steps))
	for _, s := range steps {
		if _, dup := byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate step id %q", s.ID)
		}
		byID[s.ID] = s
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(steps))
	ordered := make([]*PlanStep, 0, len(steps))

	var visit func(s *PlanStep) error
	visit = func(s *PlanStep) error {
		switch state[s.ID] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("dependency cycle through step %q", s.ID)
		}
		state[s.ID] = visiting
		for _, dep := range s.DependsOn {
			depStep, ok := byID[dep]
			if !ok {
				return fmt.Errorf("step %q depends on unknown step %q", s.ID, dep)
			}
			if err := visit(depStep); err != nil {
				return err
			}
		}
		state[s.ID] = done
		ordered = append(ordered, s)
		return nil
	}

	for _, s := range steps {
		if err := visit(s); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}
