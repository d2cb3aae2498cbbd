package sniper

import (
	"context"
	"fmt"
	"log"

	"solana-pool-sniper/internal/chaindata"
	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/jupiter"
	"solana-pool-sniper/internal/observability"
	"solana-pool-sniper/internal/solana"
	"solana-pool-sniper/internal/storage"
)

// unknownValue stands in for metadata the chain could not provide. A token
// minted minutes ago often has no indexed name yet.
const unknownValue = "N/A"

const lamportsPerSol = 1e9

// Recorder reconstructs the economics of a confirmed buy and persists the
// position. Every lookup here is a single attempt: a recording failure never
// undoes the trade, it only costs the operator a row.
type Recorder struct {
	txAPI     *chaindata.Client
	jup       *jupiter.Client
	rpc       *solana.HTTPClient
	positions storage.PositionStore
	quoteMint string
	logger    *log.Logger
}

// NewRecorder builds a position recorder pricing against quoteMint.
func NewRecorder(txAPI *chaindata.Client, jup *jupiter.Client, rpc *solana.HTTPClient, positions storage.PositionStore, quoteMint string, logger *log.Logger) *Recorder {
	return &Recorder{
		txAPI:     txAPI,
		jup:       jup,
		rpc:       rpc,
		positions: positions,
		quoteMint: quoteMint,
		logger:    logger,
	}
}

// Record fetches the swap transaction behind signature, derives what was paid
// and received, and inserts the position. Any failed lookup aborts the whole
// operation; no partial record is ever written.
func (r *Recorder) Record(ctx context.Context, signature string) error {
	tx, err := r.txAPI.GetTransaction(ctx, signature)
	if err != nil {
		return fmt.Errorf("fetch swap detail: %w", err)
	}

	swap, err := firstInnerSwap(tx)
	if err != nil {
		return err
	}

	solPrice, err := r.jup.GetPrice(ctx, r.quoteMint)
	if err != nil {
		return fmt.Errorf("fetch quote asset price: %w", err)
	}

	paid := swap.TokenInputs[0].TokenAmount
	received := swap.TokenOutputs[0]
	if received.TokenAmount == 0 {
		return fmt.Errorf("swap %s produced zero output", signature)
	}

	paidUSD := paid * solPrice
	feeUSD := float64(tx.Fee) / lamportsPerSol * solPrice

	name, err := r.rpc.GetAssetName(ctx, received.Mint)
	if err != nil || name == "" {
		name = unknownValue
	}

	source := unknownValue
	if swap.ProgramInfo != nil && swap.ProgramInfo.Source != "" {
		source = swap.ProgramInfo.Source
	}

	position := &domain.Position{
		Time:            tx.Timestamp,
		TokenMint:       received.Mint,
		TokenName:       name,
		Balance:         received.TokenAmount,
		SolPaid:         paid,
		SolFeePaid:      tx.Fee,
		SolPaidUSD:      paidUSD,
		SolFeePaidUSD:   feeUSD,
		PerTokenPaidUSD: paidUSD / received.TokenAmount,
		Slot:            tx.Slot,
		SourceProgram:   source,
	}

	if err := r.positions.Insert(ctx, position); err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	if all, err := r.positions.GetAll(ctx); err == nil {
		observability.SetOpenPositions(len(all))
	}

	r.logger.Printf("position recorded: token=%s (%s) balance=%f paidUSD=%f", position.TokenMint, position.TokenName, position.Balance, position.SolPaidUSD)
	return nil
}

// firstInnerSwap returns the first routed hop of the transaction's swap
// event, which is the hop that spent the quote asset.
func firstInnerSwap(tx *chaindata.Transaction) (*chaindata.InnerSwap, error) {
	if tx.Events == nil || tx.Events.Swap == nil || len(tx.Events.Swap.InnerSwaps) == 0 {
		return nil, fmt.Errorf("transaction has no swap event")
	}
	swap := &tx.Events.Swap.InnerSwaps[0]
	if len(swap.TokenInputs) == 0 || len(swap.TokenOutputs) == 0 {
		return nil, fmt.Errorf("swap event missing token transfers")
	}
	return swap, nil
}
