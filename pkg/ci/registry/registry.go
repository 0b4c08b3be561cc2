// Package registry is the thread-safe platform registry and the auto-
// detection manager that resolves a CI adapter for the current
// repository, per spec §4.M.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/merlya/merlya-core/pkg/ci/adapters"
)

// Factory constructs an Adapter from a Config. Registered alongside a
// platform name so the registry can build adapters without importing
// every concrete adapter package.
type Factory func(cfg adapters.Config) (adapters.Adapter, error)

// Registry is a thread-safe name→factory map with a per-(name,cacheKey)
// adapter instance cache, matching the teacher's double-checked-init
// singleton idiom (§9 "class-level singletons").
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	instances map[string]adapters.Adapter
	order     []string // registration order, for List
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide singleton registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = New()
	})
	return defaultReg
}

// New creates an empty registry. Most callers want Default().
func New() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]adapters.Adapter),
	}
}

// Register adds name's factory. Re-registering the same name overwrites
// the factory but does not evict cached instances built from the prior one.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; !exists {
		r.order = append(r.order, name)
	}
	r.factories[name] = factory
}

// GetCached returns the adapter instance for (name, cacheKey), constructing
// it via the registered factory on first access. Construction happens
// outside the registry lock, per spec §5 ("adapters are constructed
// outside the lock").
func (r *Registry) GetCached(name, cacheKey string, cfg adapters.Config) (adapters.Adapter, error) {
	key := name + "/" + cacheKey

	r.mu.Lock()
	if inst, ok := r.instances[key]; ok {
		r.mu.Unlock()
		return inst, nil
	}
	factory, ok := r.factories[name]
	r.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("ci registry: unknown platform %q", name)
	}

	inst, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("ci registry: construct adapter %q: %w", name, err)
	}

	r.mu.Lock()
	if existing, ok := r.instances[key]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	r.instances[key] = inst
	r.mu.Unlock()
	return inst, nil
}

// List returns every registered platform name in registration order.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ListSorted returns every registered platform name sorted alphabetically,
// for display contexts where registration order isn't meaningful.
func (r *Registry) ListSorted() []string {
	out := r.List()
	sort.Strings(out)
	return out
}

// ResetInstance clears every cached adapter instance. Test-only, per spec
// §5's "Test code uses explicit reset_instance() hooks".
func (r *Registry) ResetInstance() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances = make(map[string]adapters.Adapter)
}
