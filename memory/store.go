// Package memory is the persistence gateway of the chat core. It stores the
// conversations of each document as a session index plus one transcript per
// session, behind a pluggable Store with file, SQLite, and Redis backends.
package memory

import (
	"context"

	"github.com/tailored-agentic-units/spicy/core/protocol"
)

// Store persists the sessions of documents. Implementations are stateless
// with respect to the chat core: they perform I/O on each call without
// caching, and must tolerate concurrent calls.
type Store interface {
	// Save writes a transcript, creating its index row or refreshing the
	// title, updated_at and message_count of an existing one.
	Save(ctx context.Context, document string, session protocol.SessionData) error
	// List returns the session index of a document, newest first. A document
	// without sessions yields an empty slice.
	List(ctx context.Context, document string) ([]protocol.SessionMeta, error)
	// Load returns the full transcript of one session.
	Load(ctx context.Context, document, sessionID string) (protocol.SessionData, error)
	// Delete removes a session and its index row. Missing sessions are ignored.
	Delete(ctx context.Context, document, sessionID string) error
}
