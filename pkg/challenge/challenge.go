// Package challenge manages single-use authentication challenges.
package challenge

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veeringman/KeyCortex/pkg/types"
)

// Consume outcomes callers branch on
var (
	ErrNotFound    = errors.New("challenge not found")
	ErrAlreadyUsed = errors.New("challenge already used")
	ErrExpired     = errors.New("challenge expired")
)

const defaultTTL = 300 * time.Second

// Store manages single-use auth challenges in memory. Challenges move
// from unused to used exactly once; the decision happens atomically
// under the write lock so concurrent verifies cannot both win.
type Store struct {
	challenges map[string]*types.ChallengeRecord
	mu         sync.RWMutex
	ttl        time.Duration
}

// NewStore creates a challenge store with the given lifetime per
// challenge
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{
		challenges: make(map[string]*types.ChallengeRecord),
		ttl:        ttl,
	}
}

// TTLSeconds returns the configured challenge lifetime in whole seconds
func (s *Store) TTLSeconds() int64 {
	return int64(s.ttl / time.Second)
}

// Issue creates a new single-use challenge and opportunistically prunes
// used and expired entries while it holds the write lock
func (s *Store) Issue() *types.ChallengeRecord {
	now := time.Now().UnixMilli()

	record := &types.ChallengeRecord{
		Challenge:       uuid.New().String(),
		IssuedAtEpochMs: now,
		ExpiresAtEpoch:  now + s.ttl.Milliseconds(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for challenge, rec := range s.challenges {
		if rec.Used || rec.ExpiresAtEpoch <= now {
			delete(s.challenges, challenge)
		}
	}

	s.challenges[record.Challenge] = record
	return record
}

// Consume marks a challenge used. Exactly one caller can succeed per
// challenge; every other path returns a distinct error. An expired
// challenge is marked used as it is observed, so it cannot be retried.
func (s *Store) Consume(challenge string) error {
	now := time.Now().UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.challenges[challenge]
	if !exists {
		return ErrNotFound
	}

	if record.Used {
		return ErrAlreadyUsed
	}

	if now > record.ExpiresAtEpoch {
		record.Used = true
		record.UsedAtEpochMs = now
		return ErrExpired
	}

	record.Used = true
	record.UsedAtEpochMs = now
	return nil
}

// Len returns the number of tracked challenges, used or not
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.challenges)
}
