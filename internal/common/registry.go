package common

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a T from configuration parameters
type Factory[T any] func(params map[string]any) (T, error)

// Registry manages named factories, e.g. camera devices or face detectors
type Registry[T any] struct {
	mu        sync.RWMutex
	kind      string
	factories map[string]Factory[T]
}

// NewRegistry creates an empty registry. kind is only used in error messages.
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{
		kind:      kind,
		factories: make(map[string]Factory[T]),
	}
}

// Register adds a factory to the registry
func (r *Registry[T]) Register(name string, factory Factory[T]) error {
	if name == "" {
		return fmt.Errorf("%s name cannot be empty", r.kind)
	}
	if factory == nil {
		return fmt.Errorf("%s factory cannot be nil", r.kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%s %s is already registered", r.kind, name)
	}
	r.factories[name] = factory
	return nil
}

// Create instantiates a registered entry by name with the given parameters
func (r *Registry[T]) Create(name string, params map[string]any) (T, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()
	if !exists {
		var zero T
		return zero, fmt.Errorf("unknown %s: %s", r.kind, name)
	}

	created, err := factory(params)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to create %s %s: %w", r.kind, name, err)
	}
	return created, nil
}

// IsRegistered checks if a factory with the given name is registered
func (r *Registry[T]) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[name]
	return exists
}

// GetRegisteredNames returns all registered names in sorted order
func (r *Registry[T]) GetRegisteredNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
