package ai

import "slices"

// Registry holds named adapters in registration order.
type Registry struct {
	order    []string
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds or replaces the adapter under key. A replaced adapter keeps
// its original position.
func (r *Registry) Register(key string, a Adapter) {
	if _, ok := r.adapters[key]; !ok {
		r.order = append(r.order, key)
	}
	r.adapters[key] = a
}

// Get returns the adapter under key.
func (r *Registry) Get(key string) (Adapter, bool) {
	a, ok := r.adapters[key]
	return a, ok
}

// Default returns the first enabled adapter, or the first registered one when
// none is enabled. ok is false only for an empty registry.
func (r *Registry) Default() (Adapter, bool) {
	for _, key := range r.order {
		if a := r.adapters[key]; IsEnabled(a) {
			return a, true
		}
	}
	if len(r.order) == 0 {
		return nil, false
	}
	return r.adapters[r.order[0]], true
}

// Keys returns the registered keys in order.
func (r *Registry) Keys() []string { return slices.Clone(r.order) }
