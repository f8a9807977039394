package service

import (
	"context"
	"sync"
	"time"
)

type sessionEntry struct {
	ctrl     *Controller
	lastSeen time.Time
}

// SessionRegistry keeps one Controller per browser session in memory.
// Sessions idle longer than the TTL are dropped by Sweep; nothing is persisted.
type SessionRegistry struct {
	ttl      time.Duration
	factory  func() *Controller
	now      func() time.Time
	onChange func(active int)

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

// NewSessionRegistry creates a registry that builds controllers with factory.
func NewSessionRegistry(ttl time.Duration, factory func() *Controller) *SessionRegistry {
	return &SessionRegistry{
		ttl:      ttl,
		factory:  factory,
		now:      time.Now,
		sessions: make(map[string]*sessionEntry),
	}
}

// OnChange registers a callback receiving the session count after every change.
func (r *SessionRegistry) OnChange(fn func(active int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// Controller returns the session's controller, creating it on first use.
func (r *SessionRegistry) Controller(id string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		e = &sessionEntry{ctrl: r.factory()}
		r.sessions[id] = e
		r.changedLocked()
	}
	e.lastSeen = r.now()
	return e.ctrl
}

// Lookup returns the controller without creating one.
func (r *SessionRegistry) Lookup(id string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.ctrl, true
}

// Discard forgets a session and its form state.
func (r *SessionRegistry) Discard(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; ok {
		delete(r.sessions, id)
		r.changedLocked()
	}
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle since before now-TTL and returns how many.
func (r *SessionRegistry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-r.ttl)
	removed := 0
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		r.changedLocked()
	}
	return removed
}

// Run sweeps on every tick until ctx is cancelled.
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			r.Sweep(t)
		}
	}
}

func (r *SessionRegistry) changedLocked() {
	if r.onChange != nil {
		r.onChange(len(r.sessions))
	}
}
