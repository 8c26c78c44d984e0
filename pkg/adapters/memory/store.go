package memory

import (
	"context"
	"sync"

	"github.com/aretw0/davinci/pkg/domain"
)

// Store implements ports.TokenStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.User
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.User),
	}
}

// Save persists the user in memory.
func (s *Store) Save(ctx context.Context, key string, user *domain.User) error {
	copied := user.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = copied
	return nil
}

// Load retrieves the user from memory. The caller receives a copy.
func (s *Store) Load(ctx context.Context, key string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.data[key]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return user.Clone(), nil
}

// Delete removes the user.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// List returns the keys holding a user.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}
