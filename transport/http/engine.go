package http

import (
	"errors"
	"fmt"
	"sync"
)

// DefaultEngine is the engine New builds when no other is selected.
const DefaultEngine = "gin"

// ErrEngineNotFound is returned by New when no factory is registered
// under the selected engine name.
var ErrEngineNotFound = errors.New("http: engine not registered")

// EngineFactory builds the underlying server from the forwarded config.
type EngineFactory func(cfg Config) (Engine, error)

var (
	engines   = make(map[string]EngineFactory)
	enginesMu sync.RWMutex
)

// RegisterEngine registers an engine factory under name.
func RegisterEngine(name string, factory EngineFactory) {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	engines[name] = factory
}

func getEngine(name string) (EngineFactory, error) {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	factory, ok := engines[name]
	if !ok || factory == nil {
		return nil, fmt.Errorf("%w: %q", ErrEngineNotFound, name)
	}
	return factory, nil
}
