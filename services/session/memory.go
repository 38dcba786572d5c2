package sessionsvc

import (
	"context"
	"sync"
	"time"

	"github.com/aurorarobotics/aurora/core"
)

// MemoryStore is a SessionStore for tests and single instance development setups.
type MemoryStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time // token id: expiry
	nowFunc func() time.Time
}

var _ core.SessionStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{revoked: make(map[string]time.Time), nowFunc: time.Now}
}

func (s *MemoryStore) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	for id, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[tokenID] = now.Add(ttl)
	return nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.revoked[tokenID]
	return ok && exp.After(s.nowFunc()), nil
}
