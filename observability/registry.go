package observability

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

var (
	observers = map[string]Observer{
		"noop": NoOpObserver{},
		"slog": NewSlogObserver(slog.Default()),
	}
	mutex sync.RWMutex
)

// GetObserver returns a registered observer by name. A comma-separated list
// such as "slog,zap" returns the named observers combined with Multi.
// Pre-registered observers: "noop" and "slog" (default logger). The CLI
// registers "zap" and replaces "slog" once its loggers are built.
func GetObserver(name string) (Observer, error) {
	mutex.RLock()
	defer mutex.RUnlock()

	names := strings.Split(name, ",")
	found := make([]Observer, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		obs, exists := observers[n]
		if !exists {
			return nil, fmt.Errorf("unknown observer: %s", n)
		}
		found = append(found, obs)
	}

	if len(found) == 1 {
		return found[0], nil
	}
	return Multi(found...), nil
}

// RegisterObserver adds or replaces a named observer in the global registry.
func RegisterObserver(name string, observer Observer) {
	mutex.Lock()
	defer mutex.Unlock()

	observers[name] = observer
}
