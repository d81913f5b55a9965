package storage

import (
	"context"
	"sync"
	"time"
)

var _ PendingStore = (*MemoryPendingStore)(nil)

// MemoryPendingStore keeps pending authorizations in process memory. Suitable
// for single-instance deployments and tests.
type MemoryPendingStore struct {
	mu      sync.Mutex
	pending map[string]PendingAuthorization
}

// NewMemoryPendingStore creates an empty in-memory store
func NewMemoryPendingStore() *MemoryPendingStore {
	return &MemoryPendingStore{pending: make(map[string]PendingAuthorization)}
}

// Put stores the record keyed by attempt ID
func (s *MemoryPendingStore) Put(_ context.Context, rec PendingAuthorization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[rec.AttemptID] = rec
	return nil
}

// Take retrieves and removes the record in one step
func (s *MemoryPendingStore) Take(_ context.Context, attemptID string) (PendingAuthorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.pending[attemptID]
	if !ok {
		return PendingAuthorization{}, ErrPendingNotFound
	}
	delete(s.pending, attemptID)

	if rec.Expired(time.Now()) {
		return PendingAuthorization{}, ErrPendingNotFound
	}
	return rec, nil
}

// Delete removes the record if present
func (s *MemoryPendingStore) Delete(_ context.Context, attemptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, attemptID)
	return nil
}

// CleanupExpired removes all expired records
func (s *MemoryPendingStore) CleanupExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	count := 0
	for id, rec := range s.pending {
		if rec.Expired(now) {
			delete(s.pending, id)
			count++
		}
	}
	return count, nil
}

// Len returns the number of live records
func (s *MemoryPendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
