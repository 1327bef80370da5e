package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tailored-agentic-units/spicy/core/protocol"
)

const (
	chatsDir  = ".spicy/chats"
	indexFile = "sessions.json"
)

type fileStore struct {
	root string
	opts options
	mu   sync.Mutex
}

// NewFileStore creates a Store that keeps each document's sessions under
// <root>/.spicy/chats/<sanitized document>/: an index in sessions.json and
// one <id>.json transcript per session. Writes are atomic.
func NewFileStore(root string, opts ...Option) Store {
	return &fileStore{root: root, opts: newOptions(opts)}
}

func (s *fileStore) dir(document string) string {
	return filepath.Join(s.root, filepath.FromSlash(chatsDir), SanitizeDocument(document))
}

func (s *fileStore) Save(_ context.Context, document string, session protocol.SessionData) error {
	if err := validateID(session.ID); err != nil {
		return err
	}

	dir := s.dir(document)
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, session.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(dir, session.ID+".json", data); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, session.ID, err)
	}

	index := upsertMeta(s.readIndex(dir), session, Timestamp(s.opts.now()))
	if err := s.writeIndex(dir, index); err != nil {
		return fmt.Errorf("%w: index: %v", ErrSaveFailed, err)
	}
	return nil
}

func (s *fileStore) List(_ context.Context, document string) ([]protocol.SessionMeta, error) {
	s.mu.Lock()
	index := s.readIndex(s.dir(document))
	s.mu.Unlock()

	sortNewestFirst(index)
	return index, nil
}

func (s *fileStore) Load(_ context.Context, document, sessionID string) (protocol.SessionData, error) {
	if err := validateID(sessionID); err != nil {
		return protocol.SessionData{}, err
	}

	path := filepath.Join(s.dir(document), sessionID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return protocol.SessionData{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return protocol.SessionData{}, fmt.Errorf("%w: %s: %v", ErrLoadFailed, sessionID, err)
	}

	var session protocol.SessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return protocol.SessionData{}, fmt.Errorf("%w: %s: %v", ErrLoadFailed, sessionID, err)
	}
	return session, nil
}

func (s *fileStore) Delete(_ context.Context, document, sessionID string) error {
	if err := validateID(sessionID); err != nil {
		return err
	}

	dir := s.dir(document)

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(dir, sessionID+".json")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %s: %v", ErrDeleteFailed, sessionID, err)
	}

	index := s.readIndex(dir)
	if len(index) == 0 {
		return nil
	}
	if err := s.writeIndex(dir, removeMeta(index, sessionID)); err != nil {
		return fmt.Errorf("%w: index: %v", ErrDeleteFailed, err)
	}
	return nil
}

// readIndex treats a missing or unreadable index as empty.
func (s *fileStore) readIndex(dir string) []protocol.SessionMeta {
	data, err := os.ReadFile(filepath.Join(dir, indexFile))
	if err != nil {
		return []protocol.SessionMeta{}
	}

	var index protocol.SessionIndex
	if err := json.Unmarshal(data, &index); err != nil || index.Sessions == nil {
		return []protocol.SessionMeta{}
	}
	return index.Sessions
}

func (s *fileStore) writeIndex(dir string, sessions []protocol.SessionMeta) error {
	data, err := json.MarshalIndent(protocol.SessionIndex{Sessions: sessions}, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(dir, indexFile, data)
}

func writeAtomic(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		return errors.Join(err, os.Remove(tmpName))
	}
	return nil
}
