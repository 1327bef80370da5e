package kernel

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailored-agentic-units/spicy/agent"
	"github.com/tailored-agentic-units/spicy/memory"
	"github.com/tailored-agentic-units/spicy/server"
	"github.com/tailored-agentic-units/spicy/session"
)

const defaultObserver = "slog"

// Config holds initialization parameters for all subsystems.
// Each subsystem section delegates to that subsystem's config-driven constructor.
type Config struct {
	Agent            agent.Config   `json:"agent"`
	Session          session.Config `json:"session"`
	Memory           memory.Config  `json:"memory"`
	Server           server.Config  `json:"server"`
	WorkingDirectory string         `json:"working_directory,omitempty"`
	Observer         string         `json:"observer,omitempty"` // Registered observer name.
}

// DefaultConfig returns a Config with defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Agent:    agent.DefaultConfig(),
		Session:  session.DefaultConfig(),
		Memory:   memory.DefaultConfig(),
		Server:   server.DefaultConfig(),
		Observer: defaultObserver,
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Agent.Merge(&source.Agent)
	c.Session.Merge(&source.Session)
	c.Memory.Merge(&source.Memory)
	c.Server.Merge(&source.Server)

	if source.WorkingDirectory != "" {
		c.WorkingDirectory = source.WorkingDirectory
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// LoadConfig reads a JSON config file, merges it with defaults, and returns
// the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
