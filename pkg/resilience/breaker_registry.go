package resilience

import "sync"

// BreakerRegistry maps a key (conventionally "module.function") to its
// CircuitBreaker, created lazily on first use. It is a process-wide
// singleton in production; tests construct their own via NewBreakerRegistry.
type BreakerRegistry struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	cfg      BreakerConfig
}

// NewBreakerRegistry creates a registry whose lazily-created breakers share cfg.
func NewBreakerRegistry(cfg BreakerConfig) *BreakerRegistry {
	return &BreakerRegistry{
		breakers: make(map[string]*CircuitBreaker),
		cfg:      cfg.withDefaults(),
	}
}

// Get returns the breaker for key, creating it under the registry's default
// config if it doesn't yet exist.
func (r *BreakerRegistry) Get(key string) *CircuitBreaker {
	r.mu.RLock()
	b, ok := r.breakers[key]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[key]; ok {
		return b
	}
	b = NewCircuitBreaker(key, r.cfg)
	r.breakers[key] = b
	return b
}

// GetWithConfig returns the breaker for key, creating it with cfg if it
// doesn't yet exist. Existing breakers keep their original config.
func (r *BreakerRegistry) GetWithConfig(key string, cfg BreakerConfig) *CircuitBreaker {
	r.mu.RLock()
	b, ok := r.breakers[key]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[key]; ok {
		return b
	}
	b = NewCircuitBreaker(key, cfg)
	r.breakers[key] = b
	return b
}

// Snapshot returns the state of every known breaker, keyed by name.
func (r *BreakerRegistry) Snapshot() map[string]State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]State, len(r.breakers))
	for k, b := range r.breakers {
		out[k] = b.State()
	}
	return out
}

var (
	defaultRegistry     *BreakerRegistry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide breaker registry, initialized on first use.
func Default() *BreakerRegistry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewBreakerRegistry(DefaultBreakerConfig())
	})
	return defaultRegistry
}

// ResetDefault replaces the process-wide registry. Test-only.
func ResetDefault() {
	defaultRegistry = NewBreakerRegistry(DefaultBreakerConfig())
	defaultRegistryOnce = sync.Once{}
}
