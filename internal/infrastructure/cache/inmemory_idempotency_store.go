package cache

import (
	"context"
	"sync"
	"time"

	"github.com/netesim/backend/internal/domain/shared"
)

type entry struct {
	expiresAt time.Time
}

// InMemoryIdempotencyStore tracks processed webhook delivery IDs in a map.
// Suitable for single-instance deployments and testing; dedup state is not
// shared across processes.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	entries   map[string]entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates an in-memory store and starts a
// background goroutine that evicts expired delivery IDs.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// MarkProcessed records a delivery ID with a TTL.
// Returns true if the delivery was newly marked, false if it was already seen.
func (s *InMemoryIdempotencyStore) MarkProcessed(ctx context.Context, deliveryID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[deliveryID]; exists {
		if time.Now().Before(e.expiresAt) {
			return false, nil
		}
		// expired, overwrite below
	}

	s.entries[deliveryID] = entry{
		expiresAt: time.Now().Add(ttl),
	}

	return true, nil
}

// IsProcessed checks whether a delivery ID has already been seen.
func (s *InMemoryIdempotencyStore) IsProcessed(ctx context.Context, deliveryID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[deliveryID]
	if !exists {
		return false, nil
	}

	if time.Now().After(e.expiresAt) {
		return false, nil
	}

	return true, nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for deliveryID, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, deliveryID)
		}
	}
}

// Size returns the number of tracked delivery IDs (for testing/monitoring).
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
