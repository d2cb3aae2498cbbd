package sniper

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"solana-pool-sniper/internal/solana"
	"solana-pool-sniper/internal/wallet"
)

// Executor turns a built swap payload into a confirmed on-chain transaction.
// The pipeline never touches keys or the wire format itself.
type Executor interface {
	// PublicKey is the fee payer the aggregator builds transactions for.
	PublicKey() string
	// Execute signs, submits and confirms the base64 payload, returning the
	// transaction signature.
	Execute(ctx context.Context, txBase64 string) (string, error)
}

// defaultConfirmTimeout approximates blockhash expiry: a transaction that
// has not landed by then never will.
const defaultConfirmTimeout = 90 * time.Second

// WalletExecutor signs an aggregator-built swap transaction with the held
// keypair, submits it and waits for on-chain confirmation.
type WalletExecutor struct {
	wallet         *wallet.Wallet
	rpc            *solana.HTTPClient
	pollInterval   time.Duration
	confirmTimeout time.Duration
	logger         *log.Logger
}

var _ Executor = (*WalletExecutor)(nil)

// NewWalletExecutor builds an executor around the given wallet and RPC node.
// confirmTimeout bounds the confirmation poll; zero selects the default.
func NewWalletExecutor(w *wallet.Wallet, rpc *solana.HTTPClient, pollInterval, confirmTimeout time.Duration, logger *log.Logger) *WalletExecutor {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if confirmTimeout <= 0 {
		confirmTimeout = defaultConfirmTimeout
	}
	return &WalletExecutor{
		wallet:         w,
		rpc:            rpc,
		pollInterval:   pollInterval,
		confirmTimeout: confirmTimeout,
		logger:         logger,
	}
}

// PublicKey returns the fee payer's base58 public key.
func (e *WalletExecutor) PublicKey() string {
	return e.wallet.PublicKey()
}

// Execute signs and submits the base64-serialized transaction and blocks
// until its status is confirmed. Preflight is skipped: a swap against a
// seconds-old pool routinely fails simulation against a stale snapshot while
// succeeding on-chain. A transaction that confirms with an on-chain error is
// a failure.
func (e *WalletExecutor) Execute(ctx context.Context, txBase64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return "", fmt.Errorf("decode transaction: %w", err)
	}

	signed, err := e.wallet.SignTransaction(raw)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	signature, err := e.rpc.SendTransaction(ctx, base64.StdEncoding.EncodeToString(signed), solana.SendOpts{
		SkipPreflight: true,
		MaxRetries:    2,
	})
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	e.logger.Printf("transaction submitted: %s", signature)

	// The poll itself has no bound; a transaction that never lands must not
	// block the pipeline past blockhash expiry.
	confirmCtx, cancel := context.WithTimeout(ctx, e.confirmTimeout)
	defer cancel()

	status, err := e.rpc.WaitForConfirmation(confirmCtx, signature, e.pollInterval)
	if err != nil {
		return "", fmt.Errorf("confirm %s: %w", signature, err)
	}
	if status.Err != nil {
		return "", fmt.Errorf("transaction %s failed on-chain: %v", signature, status.Err)
	}

	return signature, nil
}
