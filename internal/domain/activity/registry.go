package activity

import "sync"

// Registry holds the activities rendered on the current page, in the order
// they were registered. It is populated once per page; sites that insert
// activity markup later call Register themselves.
type Registry struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Descriptor)}
}

// Register adds or replaces the descriptor for d.ID. Re-registering keeps the
// original position and takes the latest title and target.
func (r *Registry) Register(d Descriptor) error {
	if d.ID == "" {
		return ErrInvalidID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[d.ID]; !ok {
		r.order = append(r.order, d.ID)
	}
	r.byID[d.ID] = d
	return nil
}

// RegisterAll registers each descriptor, skipping ones without an id.
func (r *Registry) RegisterAll(descriptors []Descriptor) int {
	n := 0
	for _, d := range descriptors {
		if r.Register(d) == nil {
			n++
		}
	}
	return n
}

// Resolve looks up an activity by id.
func (r *Registry) Resolve(id string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	return d, ok
}

// All returns the registered activities in insertion order.
func (r *Registry) All() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Len reports how many activities are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
