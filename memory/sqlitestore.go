package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/tailored-agentic-units/spicy/core/protocol"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	document      TEXT NOT NULL,
	id            TEXT NOT NULL,
	title         TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL,
	message_count INTEGER NOT NULL,
	messages      TEXT NOT NULL,
	PRIMARY KEY (document, id)
)`

// SQLiteStore keeps every document's sessions in one SQLite table. The
// transcript is stored as the JSON encoding of its messages.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

// NewSQLiteStore opens (creating if needed) the database at path and ensures
// the schema exists.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, opts: newOptions(opts)}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, document string, session protocol.SessionData) error {
	if err := validateID(session.ID); err != nil {
		return err
	}

	messages, err := json.Marshal(session.Messages)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, session.ID, err)
	}
	now := Timestamp(s.opts.now())

	const query = `
INSERT INTO chat_sessions (document, id, title, created_at, updated_at, message_count, messages)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (document, id) DO UPDATE SET
	title = excluded.title,
	updated_at = excluded.updated_at,
	message_count = excluded.message_count,
	messages = excluded.messages`

	_, err = s.db.ExecContext(ctx, query,
		document, session.ID, session.Title, now, now, len(session.Messages), string(messages))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, session.ID, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, document string) ([]protocol.SessionMeta, error) {
	const query = `
SELECT id, title, created_at, updated_at, message_count
FROM chat_sessions
WHERE document = ?
ORDER BY CAST(updated_at AS INTEGER) DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, document)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	defer rows.Close()

	sessions := []protocol.SessionMeta{}
	for rows.Next() {
		var meta protocol.SessionMeta
		if err := rows.Scan(&meta.ID, &meta.Title, &meta.CreatedAt, &meta.UpdatedAt, &meta.MessageCount); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrLoadFailed, err)
		}
		sessions = append(sessions, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	return sessions, nil
}

func (s *SQLiteStore) Load(ctx context.Context, document, sessionID string) (protocol.SessionData, error) {
	const query = `SELECT title, messages FROM chat_sessions WHERE document = ? AND id = ?`

	var title, messages string
	err := s.db.QueryRowContext(ctx, query, document, sessionID).Scan(&title, &messages)
	if errors.Is(err, sql.ErrNoRows) {
		return protocol.SessionData{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return protocol.SessionData{}, fmt.Errorf("%w: %s: %v", ErrLoadFailed, sessionID, err)
	}

	session := protocol.SessionData{ID: sessionID, Title: title}
	if err := json.Unmarshal([]byte(messages), &session.Messages); err != nil {
		return protocol.SessionData{}, fmt.Errorf("%w: %s: %v", ErrLoadFailed, sessionID, err)
	}
	return session, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, document, sessionID string) error {
	const query = `DELETE FROM chat_sessions WHERE document = ? AND id = ?`

	if _, err := s.db.ExecContext(ctx, query, document, sessionID); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDeleteFailed, sessionID, err)
	}
	return nil
}
