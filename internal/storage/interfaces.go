package storage

import (
	"context"

	"solana-pool-sniper/internal/domain"
)

// PositionStore provides access to the persistent holdings store.
//
// Insert and Remove are each individually atomic. The pipeline never has more
// than one event in flight, so no read-modify-write coordination is needed on
// top of that.
type PositionStore interface {
	// Insert adds a new position. Returns ErrDuplicateKey if a position for
	// the same token mint already exists.
	Insert(ctx context.Context, p *domain.Position) error

	// Remove deletes the position for a token mint. Returns ErrNotFound if
	// no such position exists.
	Remove(ctx context.Context, tokenMint string) error

	// GetByMint retrieves the position for a token mint. Returns ErrNotFound
	// if not exists.
	GetByMint(ctx context.Context, tokenMint string) (*domain.Position, error)

	// GetAll retrieves all open positions ordered by buy time ascending.
	GetAll(ctx context.Context) ([]*domain.Position, error)
}
