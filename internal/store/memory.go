package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rohan/voyager/internal/session"
)

// MemoryStore keeps sessions in memory with the same versioning semantics
// as the SQLite store. Used for tests and "memory" configs.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
}

type memoryEntry struct {
	data    []byte
	version int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	var sess session.Session
	if err := json.Unmarshal(entry.data, &sess); err != nil {
		return nil, err
	}
	sess.Version = entry.version
	return &sess, nil
}

func (s *MemoryStore) Put(ctx context.Context, sess *session.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.sessions[sess.ID]
	if sess.Version == 0 {
		if exists {
			return session.ErrConflict
		}
		s.sessions[sess.ID] = memoryEntry{data: data, version: 1}
		sess.Version = 1
		return nil
	}
	if !exists || entry.version != sess.Version {
		return session.ErrConflict
	}
	s.sessions[sess.ID] = memoryEntry{data: data, version: sess.Version + 1}
	sess.Version++
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
