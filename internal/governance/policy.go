package governance

import (
	"context"
	"fmt"
	"regexp"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request contains the context of a planned tool invocation.
type Request struct {
	Tool      string
	Arguments string
	SessionID string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates planned tool invocations against a rule set.
// The executor consults it before every step; a deny fails the step
// without invoking the tool.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// rule is one restriction. A rule with an empty tool applies to every
// tool; a rule with a nil pattern matches regardless of arguments.
type rule struct {
	name    string
	tool    string
	pattern *regexp.Regexp
}

func (r rule) matches(req Request) bool {
	if r.tool != "" && r.tool != req.Tool {
		return false
	}
	if r.pattern != nil && !r.pattern.MatchString(req.Arguments) {
		return false
	}
	return true
}

// DefaultPolicyEngine denies requests matching any of its rules, in the
// order they were added, and allows everything else.
type DefaultPolicyEngine struct {
	rules []rule
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{}
}

// DenyTool blocks a tool outright.
func (e *DefaultPolicyEngine) DenyTool(name string) {
	e.rules = append(e.rules, rule{
		name: fmt.Sprintf("deny-tool-%s", name),
		tool: name,
	})
}

// DenyArguments blocks any tool whose serialized arguments match pattern.
func (e *DefaultPolicyEngine) DenyArguments(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid policy pattern %q: %w", pattern, err)
	}
	e.rules = append(e.rules, rule{
		name:    fmt.Sprintf("deny-arguments-%d", len(e.rules)),
		pattern: re,
	})
	return nil
}

// DenyToolArguments blocks a single tool when its arguments match pattern.
func (e *DefaultPolicyEngine) DenyToolArguments(tool, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid policy pattern %q: %w", pattern, err)
	}
	e.rules = append(e.rules, rule{
		name:    fmt.Sprintf("deny-%s-arguments", tool),
		tool:    tool,
		pattern: re,
	})
	return nil
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	for _, r := range e.rules {
		if r.matches(req) {
			reason := fmt.Sprintf("blocked by policy rule %s", r.name)
			if r.pattern != nil {
				reason = fmt.Sprintf("blocked by policy rule %s: arguments match %s", r.name, r.pattern)
			}
			return Result{Effect: EffectDeny, Reason: reason}, nil
		}
	}
	return Result{Effect: EffectAllow, Reason: "no policy rule matched"}, nil
}
