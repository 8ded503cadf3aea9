package rangetrack

import (
	"sync"

	"github.com/google/uuid"
)

// Registry maps session ids to live trackers. Undo records only keep the id,
// so a disposed tracker is simply not found and its records do nothing.
type Registry struct {
	mu   sync.Mutex
	live map[uuid.UUID]*Tracker
}

func NewRegistry() *Registry {
	return &Registry{live: make(map[uuid.UUID]*Tracker)}
}

func (r *Registry) register(t *Tracker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[t.id] = t
}

func (r *Registry) unregister(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, id)
}

// Lookup returns the live tracker registered under id.
func (r *Registry) Lookup(id uuid.UUID) (*Tracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.live[id]
	return t, ok
}

// Len returns the number of live trackers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}
