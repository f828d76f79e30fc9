package engine

import (
	"context"
	"sort"
	"sync"
)

// Factory loads an engine instance. Loading may be slow (a native module
// is instantiated), so it receives the caller's context.
type Factory func(ctx context.Context) (Engine, error)

// registry holds registered engines.
var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for engine selection (first available wins).
	// A native binding registered as "manifold" outranks the software engine.
	enginePriority = []string{EngineManifold, EngineBSP}
)

// Engine name constants.
const (
	// EngineManifold is the name reserved for a binding to the Manifold library.
	EngineManifold = "manifold"
	// EngineBSP is the name of the pure Go software engine.
	EngineBSP = "bsp"
)

// Register registers an engine factory with the given name.
// This is typically called from init() functions in engine packages.
// If an engine with the same name is already registered, it is replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes an engine from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered engine names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if an engine with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// lookup returns the factory for name, or the best available one by
// priority when name is empty.
func lookup(name string) (Factory, string, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if name != "" {
		f, ok := factories[name]
		return f, name, ok
	}
	for _, n := range enginePriority {
		if f, ok := factories[n]; ok {
			return f, n, true
		}
	}
	// Fallback: first registered in name order for determinism.
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	if len(names) == 0 {
		return nil, "", false
	}
	sort.Strings(names)
	return factories[names[0]], names[0], true
}
