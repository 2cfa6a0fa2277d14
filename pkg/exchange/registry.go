package exchange

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// Factory builds a fresh client for one venue.
type Factory func() (Exchange, error)

// Registry maps venue names to factories. Every Lookup and ListAll builds
// new clients, so callers never share instances through it. It is safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	logger    zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		logger:    logger,
	}
}

// Register adds a venue. Registering a name twice keeps the first factory;
// entries are never replaced or removed.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		r.logger.Warn().Str("exchange", name).Msg("exchange already registered")
		return
	}
	r.factories[name] = factory
}

// Lookup builds a client for name. Unknown names, and factories that fail,
// report false.
func (r *Registry) Lookup(name string) (Exchange, bool) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, false
	}

	ex, err := factory()
	if err != nil {
		r.logger.Error().Err(err).Str("exchange", name).Msg("create exchange")
		return nil, false
	}
	return ex, true
}

// ListAll builds one client per registered venue.
func (r *Registry) ListAll() map[string]Exchange {
	out := make(map[string]Exchange)
	for _, name := range r.Names() {
		if ex, ok := r.Lookup(name); ok {
			out[name] = ex
		}
	}
	return out
}

// Names returns the registered venue names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Exists checks whether a venue with the given name is registered.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[name]
	return exists
}
