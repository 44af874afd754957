// Package hooks holds the before-fork and after-fork callback lists that a
// worker registers while booting.
//
// Each list fires at most once: running it invokes the callbacks in
// registration order and then clears it, so a second supervisor start never
// replays stale callbacks.
package hooks

import (
	"fmt"
	"sync"
)

// Hook is a lifecycle callback.
type Hook func() error

// Phase names a hook list.
type Phase string

// Hook phases.
const (
	BeforeFork Phase = "before_fork"
	AfterFork  Phase = "after_fork"
)

// Registry is a pair of fire-once hook lists. The zero value is ready to use.
type Registry struct {
	mu    sync.Mutex
	hooks map[Phase][]Hook
}

// Default is a process-wide registry for callers that do not inject their own.
var Default = New()

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

// BeforeFork queues a callback that runs in the supervisor before any worker
// is launched.
func (r *Registry) BeforeFork(h Hook) {
	r.register(BeforeFork, h)
}

// AfterFork queues a callback that runs inside every worker right after it
// is created.
func (r *Registry) AfterFork(h Hook) {
	r.register(AfterFork, h)
}

// RunBeforeFork fires and clears the before-fork list.
func (r *Registry) RunBeforeFork() error {
	return r.run(BeforeFork)
}

// RunAfterFork fires and clears the after-fork list.
func (r *Registry) RunAfterFork() error {
	return r.run(AfterFork)
}

// Discard clears a list without firing it.
func (r *Registry) Discard(phase Phase) {
	r.mu.Lock()
	delete(r.hooks, phase)
	r.mu.Unlock()
}

// Reset clears both lists.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.hooks = nil
	r.mu.Unlock()
}

// Len reports how many callbacks are queued for phase.
func (r *Registry) Len(phase Phase) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hooks[phase])
}

func (r *Registry) register(phase Phase, h Hook) {
	if h == nil {
		return
	}
	r.mu.Lock()
	if r.hooks == nil {
		r.hooks = make(map[Phase][]Hook)
	}
	r.hooks[phase] = append(r.hooks[phase], h)
	r.mu.Unlock()
}

// run detaches the list before invoking it so callbacks may register new
// hooks without deadlocking. The first failure stops the list; the remaining
// callbacks are dropped along with it.
func (r *Registry) run(phase Phase) error {
	r.mu.Lock()
	list := r.hooks[phase]
	delete(r.hooks, phase)
	r.mu.Unlock()

	for i, h := range list {
		if err := h(); err != nil {
			return fmt.Errorf("%s hook %d: %w", phase, i+1, err)
		}
	}
	return nil
}
