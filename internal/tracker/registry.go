package tracker

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a provider client from a credential configuration.
type Factory func(creds *Credentials) (Client, error)

// Registry manages registered tracker provider factories.
// Providers register themselves at init time, and the registry provides
// access to them by name.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// globalRegistry is the default registry used by Register and New.
var globalRegistry = &Registry{
	factories: make(map[string]Factory),
}

// Register adds a provider factory to the global registry.
// Typically called from provider init() functions. The name should be
// lowercase (e.g. "jira", "teamwork").
func Register(name string, factory Factory) {
	globalRegistry.Register(name, factory)
}

// New creates a client for the named provider from the global registry.
func New(name string, creds *Credentials) (Client, error) {
	return globalRegistry.New(name, creds)
}

// Providers returns the names of all registered providers.
func Providers() []string {
	return globalRegistry.Providers()
}

// Register adds a provider factory to this registry.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// New creates a client for the named provider.
// The credentials are validated before the factory runs.
func (r *Registry) New(name string, creds *Credentials) (Client, error) {
	r.mu.RLock()
	factory := r.factories[name]
	r.mu.RUnlock()

	if factory == nil {
		return nil, fmt.Errorf("unknown tracker %q (available: %v)", name, r.Providers())
	}
	if creds == nil {
		return nil, fmt.Errorf("tracker %q: credentials not configured", name)
	}
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("tracker %q: %w", name, err)
	}
	return factory(creds)
}

// Providers returns the registered provider names, sorted alphabetically.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks whether a provider with the given name is registered.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}
