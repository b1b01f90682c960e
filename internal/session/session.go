package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by a Store's Get for an unknown session id.
	ErrNotFound = errors.New("session not found")
	// ErrConflict is returned by a Store's Put when the stored version no
	// longer matches the caller's copy (a concurrent writer got there first).
	ErrConflict = errors.New("session version conflict")
)

// Role identifies who authored a turn.
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// TurnMetadata carries the structured trace of how an agent turn was
// produced. Nil for plain user turns.
type TurnMetadata struct {
	Provider         string   `json:"provider,omitempty"`
	PromptTokens     int      `json:"prompt_tokens,omitempty"`
	CompletionTokens int      `json:"completion_tokens,omitempty"`
	ToolsUsed        []string `json:"tools_used,omitempty"`
}

// Turn is one message in a session's history. Immutable once appended.
type Turn struct {
	Role      Role          `json:"role"`
	Content   string        `json:"content"`
	Timestamp time.Time     `json:"timestamp"`
	Metadata  *TurnMetadata `json:"metadata,omitempty"`
}

// Session is the persistent per-conversation state. Version is the
// store's optimistic-concurrency token; zero means never persisted.
type Session struct {
	ID           string            `json:"id"`
	Turns        []Turn            `json:"turns"`
	Preferences  map[string]string `json:"preferences"`
	Summary      string            `json:"summary,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	LastActiveAt time.Time         `json:"last_active_at"`
	Version      int64             `json:"-"`
}

// NewSession returns an empty session for the given id.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           id,
		Preferences:  make(map[string]string),
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// Store is the narrow persistence contract the manager depends on.
// Put must detect lost updates: it fails with the store's conflict error
// when the stored version no longer matches sess.Version, and bumps
// sess.Version on success.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, sess *Session) error
}
