package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/scriptgate/scriptgate/internal/clock"
	"github.com/scriptgate/scriptgate/internal/model"
)

// MemoryKeyStore is a mutex-guarded in-memory KeyStore.
// The duplicate-user scan on issuance and the lazy eviction on validation
// run under the same lock, so they always observe a consistent snapshot.
type MemoryKeyStore struct {
	mu    sync.RWMutex
	clock clock.Clock
	keys  map[string]*model.Key
}

// NewMemoryKeyStore creates an empty in-memory key store.
func NewMemoryKeyStore(clk clock.Clock) *MemoryKeyStore {
	return &MemoryKeyStore{
		clock: clk,
		keys:  make(map[string]*model.Key),
	}
}

// IssueFreeKey mints a free-tier key bound to the user.
func (s *MemoryKeyStore) IssueFreeKey(ctx context.Context, userID, plan string) (*model.Key, error) {
	duration, ok := model.PlanDuration(plan)
	if !ok {
		return nil, ErrUnknownPlan
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// One free key per user, ever. Expired keys still count.
	for _, k := range s.keys {
		if k.UserID == userID {
			return nil, ErrDuplicateUserKey
		}
	}

	now := s.clock.Now()
	key := &model.Key{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(duration),
		IsPaid:    false,
		CreatedAt: now,
	}
	s.keys[key.ID] = key

	copied := *key
	return &copied, nil
}

// Validate looks up a key and evicts it if expired.
func (s *MemoryKeyStore) Validate(ctx context.Context, id string) (*model.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[id]
	if !ok {
		return nil, ErrKeyInvalid
	}
	if key.IsExpired(s.clock.Now()) {
		delete(s.keys, id)
		return nil, ErrKeyInvalid
	}

	copied := *key
	return &copied, nil
}

// Get returns the stored key without expiry handling.
func (s *MemoryKeyStore) Get(ctx context.Context, id string) (*model.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[id]
	if !ok {
		return nil, ErrKeyNotFound
	}

	copied := *key
	return &copied, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryKeyStore) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of stored keys. Intended for tests.
func (s *MemoryKeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}
