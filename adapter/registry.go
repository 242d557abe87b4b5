package adapter

import (
	"fmt"
	"sync"

	"github.com/sqlectron/sqlectron-core/dialect"
)

// Factory constructs a fresh, unconnected Adapter for one dialect.
type Factory func() Adapter

var (
	registryMu sync.RWMutex
	registry   = map[dialect.Key]Factory{}
)

// Register adds factory under key to the process-wide adapter registry.
// Called once per dialect package from an init func, per the spec's
// "process singleton, initialized once, never reassigned" design note.
// Registering the same key twice panics — it signals a programming error,
// not a runtime condition.
func Register(key dialect.Key, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[key]; exists {
		panic(fmt.Sprintf("adapter: dialect %q registered twice", key))
	}
	registry[key] = factory
}

// New looks up key in the registry and constructs a fresh Adapter. It
// returns an error rather than panicking since the key usually originates
// from caller-supplied, possibly-invalid descriptor data.
func New(key dialect.Key) (Adapter, error) {
	registryMu.RLock()
	factory, ok := registry[key]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("adapter: no adapter registered for dialect %q", key)
	}
	return factory(), nil
}

// Registered reports whether key has a registered adapter factory.
func Registered(key dialect.Key) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[key]
	return ok
}
