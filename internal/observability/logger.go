package observability

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePlan        EventType = "plan"
	EventTypeStep        EventType = "step"
	EventTypeToolCall    EventType = "tool_call"
	EventTypeToolResult  EventType = "tool_result"
	EventTypePolicyCheck EventType = "policy_check"
	EventTypeCost        EventType = "cost"
	EventTypeHeartbeat   EventType = "heartbeat"
	EventTypeLLM         EventType = "llm"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging.
type Logger struct {
	llmLogPath string
	maxSize    int64
}

func NewLogger() *Logger {
	return &Logger{
		llmLogPath: filepath.Join("logs", "llm.jsonl"),
		maxSize:    10 * 1024 * 1024, // 10MB
	}
}

// Log emits a structured JSON event to stdout.
func (l *Logger) Log(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Printf("{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Println(string(data))

	if evt.Type == EventTypeLLM {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogPlan(sessionID, requestID, summary string, confidence float64, steps int) {
	l.Log(Event{
		Type:      EventTypePlan,
		SessionID: sessionID,
		RequestID: requestID,
		Data: map[string]any{
			"summary":    summary,
			"confidence": confidence,
			"steps":      steps,
		},
	})
}

func (l *Logger) LogStep(sessionID, requestID, stepID, tool, status string) {
	l.Log(Event{
		Type:      EventTypeStep,
		SessionID: sessionID,
		RequestID: requestID,
		Data: map[string]string{
			"step_id": stepID,
			"tool":    tool,
			"status":  status,
		},
	})
}

func (l *Logger) LogToolCall(sessionID, requestID, tool, args string) {
	l.Log(Event{
		Type:      EventTypeToolCall,
		SessionID: sessionID,
		RequestID: requestID,
		Data: map[string]string{
			"tool": tool,
			"args": args,
		},
	})
}

func (l *Logger) LogToolResult(sessionID, requestID, tool string, success bool, detail string) {
	l.Log(Event{
		Type:      EventTypeToolResult,
		SessionID: sessionID,
		RequestID: requestID,
		Data: map[string]any{
			"tool":    tool,
			"success": success,
			"detail":  detail,
		},
	})
}

func (l *Logger) LogPolicyCheck(sessionID, requestID, tool, effect, reason string) {
	l.Log(Event{
		Type:      EventTypePolicyCheck,
		SessionID: sessionID,
		RequestID: requestID,
		Data: map[string]string{
			"tool":   tool,
			"effect": effect,
			"reason": reason,
		},
	})
}

func (l *Logger) LogCost(sessionID, requestID string, promptTokens, completionTokens int, provider string) {
	l.Log(Event{
		Type:      EventTypeCost,
		SessionID: sessionID,
		RequestID: requestID,
		Data: map[string]any{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"total_tokens":      promptTokens + completionTokens,
			"provider":          provider,
		},
	})
}

func (l *Logger) LogLLM(sessionID, requestID string, prompt string, response string, provider string) {
	l.Log(Event{
		Type:      EventTypeLLM,
		SessionID: sessionID,
		RequestID: requestID,
		Data: map[string]any{
			"prompt":   prompt,
			"response": response,
			"provider": provider,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}
