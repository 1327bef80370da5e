package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tailored-agentic-units/spicy/core/protocol"
)

const defaultRedisPrefix = "spicy:chats"

// RedisStore keeps sessions in Redis. Per document it maintains a sorted set
// of session ids scored by updated_at, a hash of index rows, and one string
// key per transcript.
type RedisStore struct {
	client *redis.Client
	prefix string
	opts   options
}

// NewRedisStore connects to addr and verifies the connection with PING.
func NewRedisStore(ctx context.Context, addr, prefix string, opts ...Option) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return NewRedisStoreWithClient(client, prefix, opts...), nil
}

// NewRedisStoreWithClient wraps an existing client. An empty prefix uses
// "spicy:chats".
func NewRedisStoreWithClient(client *redis.Client, prefix string, opts ...Option) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{
		client: client,
		prefix: strings.TrimSuffix(prefix, ":"),
		opts:   newOptions(opts),
	}
}

// Close releases the client's connections.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) indexKey(document string) string {
	return s.prefix + ":" + SanitizeDocument(document) + ":index"
}

func (s *RedisStore) metaKey(document string) string {
	return s.prefix + ":" + SanitizeDocument(document) + ":meta"
}

func (s *RedisStore) sessionKey(document, id string) string {
	return s.prefix + ":" + SanitizeDocument(document) + ":session:" + id
}

func (s *RedisStore) Save(ctx context.Context, document string, session protocol.SessionData) error {
	if err := validateID(session.ID); err != nil {
		return err
	}

	now := s.opts.now()
	stamp := Timestamp(now)

	meta := protocol.SessionMeta{
		ID:           session.ID,
		Title:        session.Title,
		CreatedAt:    stamp,
		UpdatedAt:    stamp,
		MessageCount: len(session.Messages),
	}

	existing, err := s.client.HGet(ctx, s.metaKey(document), session.ID).Result()
	switch {
	case err == nil:
		var prior protocol.SessionMeta
		if json.Unmarshal([]byte(existing), &prior) == nil && prior.CreatedAt != "" {
			meta.CreatedAt = prior.CreatedAt
		}
	case !errors.Is(err, redis.Nil):
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, session.ID, err)
	}

	sessionData, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, session.ID, err)
	}
	metaData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, session.ID, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.sessionKey(document, session.ID), sessionData, 0)
		pipe.HSet(ctx, s.metaKey(document), session.ID, metaData)
		pipe.ZAdd(ctx, s.indexKey(document), redis.Z{Score: float64(now.UnixMilli()), Member: session.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, session.ID, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, document string) ([]protocol.SessionMeta, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(document), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	sessions := []protocol.SessionMeta{}
	if len(ids) == 0 {
		return sessions, nil
	}

	values, err := s.client.HMGet(ctx, s.metaKey(document), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var meta protocol.SessionMeta
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			continue
		}
		sessions = append(sessions, meta)
	}
	return sessions, nil
}

func (s *RedisStore) Load(ctx context.Context, document, sessionID string) (protocol.SessionData, error) {
	data, err := s.client.Get(ctx, s.sessionKey(document, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return protocol.SessionData{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return protocol.SessionData{}, fmt.Errorf("%w: %s: %v", ErrLoadFailed, sessionID, err)
	}

	var session protocol.SessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return protocol.SessionData{}, fmt.Errorf("%w: %s: %v", ErrLoadFailed, sessionID, err)
	}
	return session, nil
}

func (s *RedisStore) Delete(ctx context.Context, document, sessionID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.sessionKey(document, sessionID))
		pipe.HDel(ctx, s.metaKey(document), sessionID)
		pipe.ZRem(ctx, s.indexKey(document), sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDeleteFailed, sessionID, err)
	}
	return nil
}
