package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rohan/voyager/internal/llm"
	"github.com/rohan/voyager/internal/session"
)

const defaultSynthesizerDirective = `You are a travel assistant talking to a user. Write the reply to the user's
latest request using the conversation context and the tool outcomes below.

Rules:
- Ground every claim in the tool outcomes; never invent data a tool did not return.
- If any step failed or was skipped, say plainly that that data source was
  unavailable and answer with what remains.
- Be concise and concrete.
- If the user stated a new lasting preference (budget, dates, dietary needs,
  favorite destinations), end your reply with one extra line:
  PREFERENCES: {"key": "value"}
  Otherwise do not emit that line.`

const preferencesPrefix = "PREFERENCES:"

// Synthesizer turns an executed plan into the final user-facing turn and
// persists both sides of the exchange.
type Synthesizer struct {
	Gateway  ModelGateway
	Sessions *session.Manager
	Prompts  *PromptManager
}

// Synthesize generates the reply, merges any extracted preferences, and
// appends the user and agent turns through the context manager. The
// returned turn carries the structured metadata for the reply.
func (s *Synthesizer) Synthesize(ctx context.Context, sess *session.Session, userText string, plan *ExecutionPlan, results map[string]*ToolResult) (session.Turn, error) {
	prompt := s.buildPrompt(sess, userText, plan, results)

	resp, err := s.Gateway.Invoke(ctx, llm.Request{
		Prompt: prompt,
		Params: llm.Params{Temperature: 0.7, MaxTokens: 1000},
	})
	if err != nil {
		return session.Turn{}, mapGatewayErr(err, "response synthesis")
	}

	replyText, prefs := splitPreferences(resp.Text)
	if len(prefs) > 0 {
		s.Sessions.MergePreferences(sess, prefs)
	}

	now := time.Now().UTC()
	userTurn := session.Turn{
		Role:      session.RoleUser,
		Content:   userText,
		Timestamp: now,
	}
	agentTurn := session.Turn{
		Role:      session.RoleAgent,
		Content:   replyText,
		Timestamp: now,
		Metadata: &session.TurnMetadata{
			Provider:         resp.Provider,
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			ToolsUsed:        toolsUsed(plan),
		},
	}

	if err := s.Sessions.AppendTurns(ctx, sess, userTurn, agentTurn); err != nil {
		return session.Turn{}, NewError(ErrSessionStoreUnavailable, "failed to persist conversation turn", err)
	}

	return agentTurn, nil
}

func (s *Synthesizer) buildPrompt(sess *session.Session, userText string, plan *ExecutionPlan, results map[string]*ToolResult) string {
	directive := defaultSynthesizerDirective
	if s.Prompts != nil {
		if d, err := s.Prompts.GetSynthesizerPrompt(); err == nil {
			directive = d
		} else {
			log.Printf("Warning: Failed to load synthesizer prompt: %v", err)
		}
	}

	var sb strings.Builder
	sb.WriteString(directive)

	summary, recent := s.Sessions.Window(sess)
	if summary != "" {
		fmt.Fprintf(&sb, "\n\n## Conversation Summary:\n%s\n", summary)
	}
	if len(recent) > 0 {
		sb.WriteString("\n## Recent Conversation:\n")
		for _, t := range recent {
			fmt.Fprintf(&sb, "%s: %s\n", t.Role, t.Content)
		}
	}
	if len(sess.Preferences) > 0 {
		prefs, _ := json.Marshal(sess.Preferences)
		fmt.Fprintf(&sb, "\n## Known Preferences:\n%s\n", prefs)
	}

	fmt.Fprintf(&sb, "\n## User Request:\n%s\n", userText)

	if len(plan.Steps) == 0 {
		sb.WriteString("\n## Tool Outcomes:\nNo tools were needed; answer from the conversation alone.\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "\n## Plan: %s\n\n## Tool Outcomes:\n", plan.Summary)
	for _, step := range plan.Steps {
		res := results[step.ID]
		switch {
		case res == nil:
			fmt.Fprintf(&sb, "- %s (%s): no result recorded\n", step.ID, step.Tool)
		case res.Success:
			fmt.Fprintf(&sb, "- %s (%s) succeeded: %s\n", step.ID, step.Tool, res.Payload)
		default:
			fmt.Fprintf(&sb, "- %s (%s) %s: %s (this data source was unavailable, acknowledge it)\n",
				step.ID, step.Tool, step.Status, res.Error.Message)
		}
	}

	return sb.String()
}

// splitPreferences strips the optional trailing preferences line from a
// model reply. An unparseable trailer is ignored rather than failing the
// request.
func splitPreferences(text string) (string, map[string]string) {
	trimmed := strings.TrimSpace(text)
	idx := strings.LastIndex(trimmed, preferencesPrefix)
	if idx < 0 {
		return trimmed, nil
	}

	trailer := strings.TrimSpace(trimmed[idx+len(preferencesPrefix):])
	var prefs map[string]string
	if err := json.Unmarshal([]byte(trailer), &prefs); err != nil {
		return trimmed, nil
	}
	return strings.TrimSpace(trimmed[:idx]), prefs
}

func toolsUsed(plan *ExecutionPlan) []string {
	seen := make(map[string]bool)
	var used []string
	for _, step := range plan.Steps {
		if step.Status == StatusSucceeded && !seen[step.Tool] {
			seen[step.Tool] = true
			used = append(used, step.Tool)
		}
	}
	return used
}
