package repository

import (
	"context"
	"sync"

	profiledomain "staff-dashboard/internal/profile/domain"
)

// MemoryStore is an in-process Store. Nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	token   string
	profile *profiledomain.Profile
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) GetToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *MemoryStore) GetCachedProfile(ctx context.Context) (*profiledomain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, token string, p *profiledomain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.profile = p.Clone()
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.profile = nil
	return nil
}
