package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rohan/voyager/internal/llm"
)

// ModelGateway is the slice of the model gateway the manager needs for
// folding old turns into the rolling summary.
type ModelGateway interface {
	Invoke(ctx context.Context, req llm.Request) (llm.Response, error)
}

const defaultSummaryPrompt = `Condense the following conversation excerpt into a short factual summary.
Keep names, places, dates, budgets, and stated preferences. Output only the summary.

Previous summary (may be empty):
%s

Conversation excerpt:
%s`

// Manager owns per-session conversation state: it loads sessions,
// appends turns through the store, merges preferences, and keeps the
// history window bounded. Concurrent requests for the same session are
// serialized through Acquire; different sessions are fully independent.
type Manager struct {
	store   Store
	gateway ModelGateway
	window  int

	// SummaryPrompt is a fmt template with two %s slots: previous summary
	// and the turns being folded.
	SummaryPrompt string

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is one session's request mutex plus a holder/waiter count,
// so the lock table stays bounded by the number of in-flight requests.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewManager(store Store, gateway ModelGateway, window int) *Manager {
	if window <= 0 {
		window = 12
	}
	return &Manager{
		store:         store,
		gateway:       gateway,
		window:        window,
		SummaryPrompt: defaultSummaryPrompt,
		locks:         make(map[string]*sessionLock),
	}
}

// Acquire takes the per-session mutex and returns its release func.
// Callers hold it for the full request so turns persist in completion
// order. The lock entry is dropped when the last holder releases.
func (m *Manager) Acquire(sessionID string) func() {
	m.mu.Lock()
	lock, ok := m.locks[sessionID]
	if !ok {
		lock = &sessionLock{}
		m.locks[sessionID] = lock
	}
	lock.refs++
	m.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		m.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(m.locks, sessionID)
		}
		m.mu.Unlock()
	}
}

// Load fetches a session by id, creating an empty one for unknown ids.
// It only fails when the backing store cannot be reached.
func (m *Manager) Load(ctx context.Context, id string) (*Session, error) {
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return NewSession(id), nil
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if sess.Preferences == nil {
		sess.Preferences = make(map[string]string)
	}
	return sess, nil
}

// AppendTurns appends turns, folds the history window, and persists the
// session before returning. On a version conflict it reloads the latest
// copy, replays the new turns and preferences onto it, and retries.
func (m *Manager) AppendTurns(ctx context.Context, sess *Session, turns ...Turn) error {
	sess.Turns = append(sess.Turns, turns...)
	sess.LastActiveAt = time.Now().UTC()
	m.foldHistory(ctx, sess)

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	return backoff.Retry(func() error {
		err := m.store.Put(ctx, sess)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return backoff.Permanent(fmt.Errorf("persist session %s: %w", sess.ID, err))
		}

		latest, getErr := m.store.Get(ctx, sess.ID)
		if getErr != nil {
			return backoff.Permanent(fmt.Errorf("reload session %s after conflict: %w", sess.ID, getErr))
		}
		replayOnto(latest, sess, len(turns))
		*sess = *latest
		return err
	}, policy)
}

// replayOnto applies the request's new turns and preference deltas to the
// freshly loaded copy.
func replayOnto(latest, local *Session, newTurns int) {
	if newTurns > len(local.Turns) {
		newTurns = len(local.Turns)
	}
	latest.Turns = append(latest.Turns, local.Turns[len(local.Turns)-newTurns:]...)
	if latest.Preferences == nil {
		latest.Preferences = make(map[string]string)
	}
	for k, v := range local.Preferences {
		latest.Preferences[k] = v
	}
	latest.LastActiveAt = local.LastActiveAt
}

// MergePreferences applies deltas last-write-wins per key. The change is
// persisted with the next AppendTurns call.
func (m *Manager) MergePreferences(sess *Session, deltas map[string]string) {
	if sess.Preferences == nil {
		sess.Preferences = make(map[string]string)
	}
	for k, v := range deltas {
		sess.Preferences[k] = v
	}
}

// Window returns the rolling summary and the most recent turns that fit
// the history window, for prompt assembly.
func (m *Manager) Window(sess *Session) (string, []Turn) {
	if len(sess.Turns) <= m.window {
		return sess.Summary, sess.Turns
	}
	return sess.Summary, sess.Turns[len(sess.Turns)-m.window:]
}

// foldHistory folds turns beyond the window into the rolling summary via
// a model call. On failure the oldest turns are truncated without a
// summary rather than blocking the request.
func (m *Manager) foldHistory(ctx context.Context, sess *Session) {
	if len(sess.Turns) <= m.window {
		return
	}
	overflow := sess.Turns[:len(sess.Turns)-m.window]
	sess.Turns = append([]Turn(nil), sess.Turns[len(sess.Turns)-m.window:]...)

	if m.gateway == nil {
		return
	}

	var sb strings.Builder
	for _, t := range overflow {
		fmt.Fprintf(&sb, "%s: %s\n", t.Role, t.Content)
	}

	resp, err := m.gateway.Invoke(ctx, llm.Request{
		Prompt: fmt.Sprintf(m.SummaryPrompt, sess.Summary, sb.String()),
		Params: llm.Params{Temperature: 0.2, MaxTokens: 400},
	})
	if err != nil {
		log.Printf("history summarization failed for session %s, truncating: %v", sess.ID, err)
		return
	}
	sess.Summary = strings.TrimSpace(resp.Text)
}
