package server

import (
	"sync"
	"time"

	"resumegenius/internal/controller"
	"resumegenius/internal/errors"
	"resumegenius/internal/plan"
)

// Registry keeps one controller per session and evicts idle ones
type Registry struct {
	mu       sync.Mutex
	entries  map[string]*registryEntry
	factory  func(initial plan.Plan) *controller.Controller
	idle     time.Duration
	done     chan struct{}
	stopOnce sync.Once
	logger   *errors.Logger
	now      func() time.Time
}

type registryEntry struct {
	ctrl     *controller.Controller
	lastSeen time.Time
}

// NewRegistry creates a registry. A non-positive idle timeout disables eviction.
func NewRegistry(idle time.Duration, factory func(initial plan.Plan) *controller.Controller, logger *errors.Logger) *Registry {
	r := &Registry{
		entries: make(map[string]*registryEntry),
		factory: factory,
		idle:    idle,
		done:    make(chan struct{}),
		logger:  logger,
		now:     time.Now,
	}
	if idle > 0 {
		go r.cleanupRoutine(cleanupInterval(idle))
	}
	return r
}

func cleanupInterval(idle time.Duration) time.Duration {
	if idle < 2*time.Minute {
		return idle / 2
	}
	return time.Minute
}

// Get returns the controller for id and refreshes its idle clock
func (r *Registry) Get(id string) (*controller.Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.ctrl, true
}

// GetOrCreate returns the controller for id, creating one on the initial
// plan when absent. created reports whether a new controller was made.
func (r *Registry) GetOrCreate(id string, initial plan.Plan) (ctrl *controller.Controller, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		e.lastSeen = r.now()
		return e.ctrl, false
	}
	ctrl = r.factory(initial)
	r.entries[id] = &registryEntry{ctrl: ctrl, lastSeen: r.now()}
	return ctrl, true
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.evictIdle()
		case <-r.done:
			return
		}
	}
}

// evictIdle drops sessions unseen for longer than the idle timeout
func (r *Registry) evictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idle)
	evicted := 0
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			delete(r.entries, id)
			evicted++
		}
	}
	if evicted > 0 && r.logger != nil {
		r.logger.Debug("Evicted idle sessions", "evicted", evicted, "remaining", len(r.entries))
	}
	return evicted
}

// Close stops the eviction goroutine
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.done) })
}
