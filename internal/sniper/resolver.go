package sniper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-pool-sniper/internal/chaindata"
	"solana-pool-sniper/internal/observability"
	"solana-pool-sniper/internal/retry"
)

var (
	// ErrResolutionTimeout means the transaction detail never became
	// available within the fetch budget.
	ErrResolutionTimeout = errors.New("transaction detail not available in time")
	// ErrResolutionFailed means the detail lookup failed outright.
	ErrResolutionFailed = errors.New("transaction detail lookup failed")
	// ErrNotLiquidityEvent means the transaction matched the log marker but
	// is not a pool initialization of the tracked program. Expected and
	// frequent, not a fault.
	ErrNotLiquidityEvent = errors.New("not a liquidity pool event")
)

// Account positions of the two pool mints inside the AMM program's
// initialize instruction. This is a structural assumption about that one
// instruction layout, not a general decoder; a program upgrade that reorders
// accounts breaks it, which is why the extraction is isolated here.
const (
	mintAccountIndexA = 8
	mintAccountIndexB = 9
)

// Resolver turns a matched signature into the new pool's mints.
type Resolver struct {
	txAPI     *chaindata.Client
	programID string
	quoteMint string
	policy    retry.Policy
	logger    *log.Logger
}

// NewResolver builds a resolver fetching under a deadline-based retry policy:
// freshly confirmed transactions take a few seconds to appear in the detail
// API, so "no data yet" is retried while transport errors fail fast.
func NewResolver(txAPI *chaindata.Client, programID, quoteMint string, fetchInterval, fetchTimeout time.Duration, logger *log.Logger) *Resolver {
	return &Resolver{
		txAPI:     txAPI,
		programID: programID,
		quoteMint: quoteMint,
		policy: retry.Policy{
			Deadline: fetchTimeout,
			Delay:    fetchInterval,
			Retryable: func(err error) bool {
				if errors.Is(err, chaindata.ErrNoData) {
					observability.RecordRetry("tx_fetch")
					return true
				}
				return false
			},
		},
		logger: logger,
	}
}

// Resolve fetches the transaction behind signature and extracts the pool
// mints from its initialize instruction.
func (r *Resolver) Resolve(ctx context.Context, signature string) (*PoolMints, error) {
	tx, err := retry.Do(ctx, r.policy, func(ctx context.Context) (*chaindata.Transaction, error) {
		return r.txAPI.GetTransaction(ctx, signature)
	})
	if err != nil {
		if errors.Is(err, retry.ErrBudgetExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrResolutionTimeout, signature)
		}
		return nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}

	mints, err := r.extractMints(tx)
	if err != nil {
		return nil, err
	}

	r.logger.Printf("resolved pool: base=%s quote=%s sig=%s", mints.BaseMint, mints.QuoteMint, signature)
	return mints, nil
}

// extractMints reads the two mint accounts out of the initialize
// instruction's account list. Whichever of the two equals the configured
// quote mint is the quote side; the other is the token being launched.
func (r *Resolver) extractMints(tx *chaindata.Transaction) (*PoolMints, error) {
	for _, ins := range tx.Instructions {
		if ins.ProgramID != r.programID {
			continue
		}
		if len(ins.Accounts) <= mintAccountIndexB {
			return nil, fmt.Errorf("%w: instruction has %d accounts", ErrNotLiquidityEvent, len(ins.Accounts))
		}

		a, b := ins.Accounts[mintAccountIndexA], ins.Accounts[mintAccountIndexB]
		switch r.quoteMint {
		case a:
			return &PoolMints{QuoteMint: a, BaseMint: b}, nil
		case b:
			return &PoolMints{QuoteMint: b, BaseMint: a}, nil
		default:
			return nil, fmt.Errorf("%w: neither mint account is the quote mint", ErrNotLiquidityEvent)
		}
	}
	return nil, fmt.Errorf("%w: no instruction from program %s", ErrNotLiquidityEvent, r.programID)
}
