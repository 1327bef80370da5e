package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Supported Store drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

const defaultSQLiteFile = ".spicy/chats.db"

// Config holds persistence gateway initialization parameters.
type Config struct {
	Driver      string `json:"driver,omitempty"`       // file (default), sqlite, or redis.
	Path        string `json:"path,omitempty"`         // SQLite database file; defaults under the working directory.
	RedisAddr   string `json:"redis_addr,omitempty"`   // host:port of the Redis server.
	RedisPrefix string `json:"redis_prefix,omitempty"` // Key prefix; defaults to "spicy:chats".
}

// DefaultConfig returns the default memory configuration (file driver).
func DefaultConfig() Config {
	return Config{Driver: DriverFile}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Driver != "" {
		c.Driver = source.Driver
	}
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.RedisAddr != "" {
		c.RedisAddr = source.RedisAddr
	}
	if source.RedisPrefix != "" {
		c.RedisPrefix = source.RedisPrefix
	}
}

// NewStore creates the configured Store rooted at the working directory
// workdir. SQLite and Redis stores implement io.Closer.
func NewStore(ctx context.Context, cfg *Config, workdir string, opts ...Option) (Store, error) {
	switch cfg.Driver {
	case "", DriverFile:
		return NewFileStore(workdir, opts...), nil
	case DriverSQLite:
		path := cfg.Path
		if path == "" {
			path = filepath.Join(workdir, filepath.FromSlash(defaultSQLiteFile))
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		store, err := NewSQLiteStore(path, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis driver requires redis_addr")
		}
		store, err := NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPrefix, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown memory driver: %s", cfg.Driver)
	}
}
