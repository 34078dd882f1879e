package memory

import (
	"context"
	"sync"

	"github.com/mamadbah2/dairy/internal/repository"
)

// Store keeps blobs in process memory. Contents are lost on restart.
type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

// Read returns a copy of the blob stored under key.
func (s *Store) Read(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Write replaces the blob stored under key.
func (s *Store) Write(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	return nil
}
