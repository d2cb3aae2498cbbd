package domain

// Position is one recorded holding created by a confirmed buy swap.
// Inserted by the position recorder, removed by mint after a confirmed sell.
type Position struct {
	// Time is the unix timestamp (seconds) of the buy transaction.
	Time int64
	// TokenMint identifies the held token.
	TokenMint string
	// TokenName is the human-readable name, or "N/A" when metadata was
	// unavailable at recording time.
	TokenName string
	// Balance is the token amount received by the buy.
	Balance float64
	// SolPaid is the SOL amount spent on the buy.
	SolPaid float64
	// SolFeePaid is the transaction fee in lamports.
	SolFeePaid int64
	// SolPaidUSD is SolPaid at the SOL/USD price observed when recording.
	SolPaidUSD float64
	// SolFeePaidUSD is the fee at the same price.
	SolFeePaidUSD float64
	// PerTokenPaidUSD is the effective USD entry price per token.
	PerTokenPaidUSD float64
	// Slot is the slot of the buy transaction.
	Slot int64
	// SourceProgram is the DEX program the swap routed through, or "N/A".
	SourceProgram string
}
