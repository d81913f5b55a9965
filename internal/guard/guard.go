// Package guard deduplicates callback processing across re-entrant
// invocations. A page reload re-running the same callback URL must not redeem
// the same authorization code twice.
package guard

import "sync"

// ProcessingGuard is an attempt-keyed idempotency store. At most one active
// record exists per attempt at any time.
type ProcessingGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// New creates an empty guard
func New() *ProcessingGuard {
	return &ProcessingGuard{active: make(map[string]struct{})}
}

// Begin atomically creates the processing record for an attempt. It returns
// false if a record already exists, in which case the caller must not perform
// any side-effecting step.
func (g *ProcessingGuard) Begin(attemptID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.active[attemptID]; exists {
		return false
	}
	g.active[attemptID] = struct{}{}
	return true
}

// End removes the processing record unconditionally. It must run on every
// exit path of the guarded section, exceptions included.
func (g *ProcessingGuard) End(attemptID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, attemptID)
}

// ActiveCount returns the number of live processing records
func (g *ProcessingGuard) ActiveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}
