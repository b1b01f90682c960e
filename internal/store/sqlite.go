package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/rohan/voyager/internal/session"
)

// SQLiteStore persists sessions as JSON documents with an integer version
// column for optimistic concurrency.
type SQLiteStore struct {
	DB *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	schema := `CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		version INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}

	return &SQLiteStore{DB: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*session.Session, error) {
	var data string
	var version int64
	row := s.DB.QueryRowContext(ctx, `SELECT data, version FROM sessions WHERE id = ?`, id)
	if err := row.Scan(&data, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}

	var sess session.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", id, err)
	}
	sess.Version = version
	return &sess, nil
}

func (s *SQLiteStore) Put(ctx context.Context, sess *session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	if sess.Version == 0 {
		_, err := s.DB.ExecContext(ctx,
			`INSERT INTO sessions (id, data, version, created_at, updated_at) VALUES (?, ?, 1, ?, ?)`,
			sess.ID, string(data), now, now)
		if err != nil {
			// A concurrent writer may have created the row first.
			if _, getErr := s.Get(ctx, sess.ID); getErr == nil {
				return session.ErrConflict
			}
			return err
		}
		sess.Version = 1
		return nil
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE sessions SET data = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		string(data), now, sess.ID, sess.Version)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return session.ErrConflict
	}
	sess.Version++
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.DB.Close()
}
