package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// DefaultSweepInterval is how often writes evict expired entries.
const DefaultSweepInterval = time.Minute

type expiring[T any] struct {
	value     T
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the Store interface.
// Reads ignore expired entries; writes sweep them out at most once per
// sweep interval.
type MemoryStore struct {
	attempts          map[string]expiring[ports.Attempt]
	invalidatedTokens map[string]time.Time
	now               func() time.Time
	sweepInterval     time.Duration
	lastSweep         time.Time
	mu                sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock creates an in-memory store that reads time from now
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		attempts:          make(map[string]expiring[ports.Attempt]),
		invalidatedTokens: make(map[string]time.Time),
		now:               now,
		sweepInterval:     DefaultSweepInterval,
		lastSweep:         now(),
	}
}

// Len returns the number of attempts and revoked tokens held, expired or not.
func (s *MemoryStore) Len() (attempts, tokens int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attempts), len(s.invalidatedTokens)
}

// sweep drops expired entries. Callers hold the write lock.
func (s *MemoryStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < s.sweepInterval {
		return
	}
	s.lastSweep = now

	for id, entry := range s.attempts {
		if !now.Before(entry.expiresAt) {
			delete(s.attempts, id)
		}
	}
	for id, expiresAt := range s.invalidatedTokens {
		if now.After(expiresAt) {
			delete(s.invalidatedTokens, id)
		}
	}
}

// SaveAttempt stores or replaces an attempt
func (s *MemoryStore) SaveAttempt(ctx context.Context, attempt ports.Attempt, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	attempt.Transcript = append(core.Transcript(nil), attempt.Transcript...)
	s.attempts[attempt.ID] = expiring[ports.Attempt]{value: attempt, expiresAt: now.Add(ttl)}
	return nil
}

// TakeAttempt removes and returns a live attempt
func (s *MemoryStore) TakeAttempt(ctx context.Context, attemptID string) (ports.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.attempts[attemptID]
	if !ok {
		return ports.Attempt{}, core.ErrUnknownAttempt
	}
	delete(s.attempts, attemptID)

	if !s.now().Before(entry.expiresAt) {
		return ports.Attempt{}, core.ErrUnknownAttempt
	}
	return entry.value, nil
}

// InvalidateToken marks a token as invalidated
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	s.invalidatedTokens[tokenID] = now.Add(expiry)
	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiryTime, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}

	// Check if the token invalidation has expired
	if s.now().After(expiryTime) {
		return false, nil
	}

	return true, nil
}

var _ ports.Store = (*MemoryStore)(nil)
