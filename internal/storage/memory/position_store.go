package memory

import (
	"context"
	"sort"
	"sync"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
// Used by tests and dry runs without a database.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Position // keyed by token mint
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[string]*domain.Position),
	}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// Insert adds a new position. Returns ErrDuplicateKey if the mint exists.
func (s *PositionStore) Insert(_ context.Context, p *domain.Position) error {
	if p == nil || p.TokenMint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.TokenMint]; exists {
		return storage.ErrDuplicateKey
	}

	clone := *p
	s.data[p.TokenMint] = &clone
	return nil
}

// Remove deletes the position for a token mint.
func (s *PositionStore) Remove(_ context.Context, tokenMint string) error {
	if tokenMint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[tokenMint]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, tokenMint)
	return nil
}

// GetByMint retrieves the position for a token mint.
func (s *PositionStore) GetByMint(_ context.Context, tokenMint string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[tokenMint]
	if !exists {
		return nil, storage.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

// GetAll retrieves all open positions ordered by buy time ascending.
func (s *PositionStore) GetAll(_ context.Context) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Position, 0, len(s.data))
	for _, p := range s.data {
		clone := *p
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Time < result[j].Time
	})
	return result, nil
}
