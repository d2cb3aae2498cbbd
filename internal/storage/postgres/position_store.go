package postgres

import (
	"context"
	"fmt"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// Insert adds a new position. Returns ErrDuplicateKey if the mint exists.
func (s *PositionStore) Insert(ctx context.Context, p *domain.Position) error {
	if p == nil || p.TokenMint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO positions (
			buy_time, token_mint, token_name, balance,
			sol_paid, sol_fee_paid, sol_paid_usd, sol_fee_paid_usd,
			per_token_paid_usd, slot, source_program
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		p.Time, p.TokenMint, p.TokenName, p.Balance,
		p.SolPaid, p.SolFeePaid, p.SolPaidUSD, p.SolFeePaidUSD,
		p.PerTokenPaidUSD, p.Slot, p.SourceProgram,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// Remove deletes the position for a token mint.
func (s *PositionStore) Remove(ctx context.Context, tokenMint string) error {
	if tokenMint == "" {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM positions WHERE token_mint = $1`, tokenMint)
	if err != nil {
		return fmt.Errorf("remove position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByMint retrieves the position for a token mint.
func (s *PositionStore) GetByMint(ctx context.Context, tokenMint string) (*domain.Position, error) {
	query := `
		SELECT buy_time, token_mint, token_name, balance,
		       sol_paid, sol_fee_paid, sol_paid_usd, sol_fee_paid_usd,
		       per_token_paid_usd, slot, source_program
		FROM positions
		WHERE token_mint = $1
	`

	var p domain.Position
	err := s.pool.QueryRow(ctx, query, tokenMint).Scan(
		&p.Time, &p.TokenMint, &p.TokenName, &p.Balance,
		&p.SolPaid, &p.SolFeePaid, &p.SolPaidUSD, &p.SolFeePaidUSD,
		&p.PerTokenPaidUSD, &p.Slot, &p.SourceProgram,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position: %w", err)
	}
	return &p, nil
}

// GetAll retrieves all open positions ordered by buy time ascending.
func (s *PositionStore) GetAll(ctx context.Context) ([]*domain.Position, error) {
	query := `
		SELECT buy_time, token_mint, token_name, balance,
		       sol_paid, sol_fee_paid, sol_paid_usd, sol_fee_paid_usd,
		       per_token_paid_usd, slot, source_program
		FROM positions
		ORDER BY buy_time ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var result []*domain.Position
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(
			&p.Time, &p.TokenMint, &p.TokenName, &p.Balance,
			&p.SolPaid, &p.SolFeePaid, &p.SolPaidUSD, &p.SolFeePaidUSD,
			&p.PerTokenPaidUSD, &p.Slot, &p.SourceProgram,
		); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate positions: %w", err)
	}
	return result, nil
}
