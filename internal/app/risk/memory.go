package risk

import (
	"context"
	"sync"
	"time"
)

// ReputationStore interface implementation
var _ ReputationStore = (*MemoryReputationStore)(nil)

// MemoryReputationStore is a single-process ReputationStore used in tests and
// local development. Expiry is checked lazily on read.
type MemoryReputationStore struct {
	mu       sync.Mutex
	flags    map[string]time.Time
	attempts map[string]memoryCounter
}

type memoryCounter struct {
	count     int
	expiresAt time.Time
}

func NewMemoryReputationStore() *MemoryReputationStore {
	return &MemoryReputationStore{
		flags:    make(map[string]time.Time),
		attempts: make(map[string]memoryCounter),
	}
}

func (s *MemoryReputationStore) FlagSuspicious(_ context.Context, ip string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[ip] = time.Now().Add(ttl)
	return nil
}

func (s *MemoryReputationStore) IsSuspicious(_ context.Context, ip string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.flags[ip]
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		delete(s.flags, ip)
		return false, nil
	}
	return true, nil
}

func (s *MemoryReputationStore) RecordAttempt(_ context.Context, ip, userID string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ip + ":" + userID
	c, ok := s.attempts[key]
	if !ok || time.Now().After(c.expiresAt) {
		c = memoryCounter{expiresAt: time.Now().Add(window)}
	}
	c.count++
	s.attempts[key] = c

	return c.count, nil
}
