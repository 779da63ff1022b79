package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

type entry struct {
	ctrl    *Controller
	owner   int64
	touched time.Time
}

// Registry tracks live controllers per student. Removing or sweeping a
// controller closes it.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	idle    time.Duration
	now     func() time.Time
}

// NewRegistry creates a registry that sweeps controllers idle for longer
// than idle.
func NewRegistry(idle time.Duration) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		idle:    idle,
		now:     time.Now,
	}
}

// Add registers a controller and returns its id.
func (r *Registry) Add(owner int64, c *Controller) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.entries[id] = &entry{ctrl: c, owner: owner, touched: r.now()}
	r.mu.Unlock()
	return id
}

// Get returns the owner's controller and marks it active.
func (r *Registry) Get(owner int64, id string) (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.owner != owner {
		return nil, ErrSessionNotFound
	}
	e.touched = r.now()
	return e.ctrl, nil
}

// Remove closes and forgets a controller.
func (r *Registry) Remove(owner int64, id string) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok || e.owner != owner {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(r.entries, id)
	r.mu.Unlock()

	e.ctrl.Close()
	return nil
}

// Sweep closes controllers that are finished or idle and returns how many
// were removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var stale []*Controller
	for id, e := range r.entries {
		finished := false
		select {
		case <-e.ctrl.Done():
			finished = true
		default:
		}
		if finished || e.touched.Before(cutoff) {
			stale = append(stale, e.ctrl)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, c := range stale {
		c.Close()
	}
	return len(stale)
}

// Len reports how many controllers are registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Owners reports which students have a registered controller.
func (r *Registry) Owners() map[int64]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	owners := make(map[int64]bool, len(r.entries))
	for _, e := range r.entries {
		owners[e.owner] = true
	}
	return owners
}

// Idle is how long a controller may go untouched before Sweep drops it.
func (r *Registry) Idle() time.Duration {
	return r.idle
}

// CloseAll closes every controller, used at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		e.ctrl.Close()
	}
}
