package sniper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-pool-sniper/internal/jupiter"
	"solana-pool-sniper/internal/observability"
	"solana-pool-sniper/internal/retry"
	"solana-pool-sniper/internal/storage"
)

// BuyParams tune the buy side of the orchestrator.
type BuyParams struct {
	// AmountLamports is the fixed quote-side input amount.
	AmountLamports string
	SlippageBps    int
	// QuoteRetries bounds retries on the aggregator's "token not tradable"
	// rejection, which is normal for a pool created moments ago. Every retry
	// requests a fresh quote.
	QuoteRetries    int
	QuoteRetryDelay time.Duration
	PriorityFee     jupiter.PriorityFee
}

// SellParams tune the sell side.
type SellParams struct {
	SlippageBps         int
	PriorityFee         jupiter.PriorityFee
	ConfirmPollInterval time.Duration
}

// Swapper obtains quotes and swap transactions from the aggregator. The buy
// path stops at the built payload; the sell path signs, submits and confirms
// through the executor, then releases the stored position.
type Swapper struct {
	jup       *jupiter.Client
	executor  Executor
	positions storage.PositionStore
	buy       BuyParams
	sell      SellParams
	logger    *log.Logger
}

// NewSwapper builds a swap orchestrator.
func NewSwapper(jup *jupiter.Client, executor Executor, positions storage.PositionStore, buy BuyParams, sell SellParams, logger *log.Logger) *Swapper {
	return &Swapper{
		jup:       jup,
		executor:  executor,
		positions: positions,
		buy:       buy,
		sell:      sell,
		logger:    logger,
	}
}

// Buy quotes quoteMint→baseMint for the configured amount and asks the
// aggregator to build the swap transaction. It returns the base64 payload;
// signing and submission are the executor's job, not this stage's.
func (s *Swapper) Buy(ctx context.Context, quoteMint, baseMint string) (string, error) {
	policy := retry.Policy{
		MaxAttempts: s.buy.QuoteRetries,
		Delay:       s.buy.QuoteRetryDelay,
		Retryable: func(err error) bool {
			if errors.Is(err, jupiter.ErrTokenNotTradable) {
				observability.RecordRetry("quote")
				return true
			}
			return false
		},
	}

	quote, err := retry.Do(ctx, policy, func(ctx context.Context) (jupiter.Quote, error) {
		return s.jup.GetQuote(ctx, jupiter.QuoteParams{
			InputMint:   quoteMint,
			OutputMint:  baseMint,
			Amount:      s.buy.AmountLamports,
			SlippageBps: s.buy.SlippageBps,
		})
	})
	if err != nil {
		return "", fmt.Errorf("buy quote: %w", err)
	}

	payload, err := s.jup.BuildSwap(ctx, quote, s.executor.PublicKey(), s.buy.PriorityFee)
	if err != nil {
		return "", fmt.Errorf("buy swap build: %w", err)
	}

	s.logger.Printf("buy swap built: %s -> %s amount=%s", quoteMint, baseMint, s.buy.AmountLamports)
	return payload, nil
}

// Sell quotes tokenMint→quoteMint for the given raw amount, builds the swap,
// signs and submits it, and waits for confirmation. On confirmed success the
// stored position is removed; a removal failure is logged only, because the
// trade itself already went through.
func (s *Swapper) Sell(ctx context.Context, quoteMint, tokenMint, amount string) (string, error) {
	quote, err := s.jup.GetQuote(ctx, jupiter.QuoteParams{
		InputMint:   tokenMint,
		OutputMint:  quoteMint,
		Amount:      amount,
		SlippageBps: s.sell.SlippageBps,
	})
	if err != nil {
		return "", fmt.Errorf("sell quote: %w", err)
	}

	payload, err := s.jup.BuildSwap(ctx, quote, s.executor.PublicKey(), s.sell.PriorityFee)
	if err != nil {
		return "", fmt.Errorf("sell swap build: %w", err)
	}

	signature, err := s.executor.Execute(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("sell execute: %w", err)
	}
	observability.RecordSellConfirmed()

	if err := s.positions.Remove(ctx, tokenMint); err != nil {
		s.logger.Printf("WARNING: sold %s (sig %s) but failed to remove position: %v", tokenMint, signature, err)
	} else if all, err := s.positions.GetAll(ctx); err == nil {
		observability.SetOpenPositions(len(all))
	}

	s.logger.Printf("sell confirmed: %s amount=%s sig=%s", tokenMint, amount, signature)
	return signature, nil
}
