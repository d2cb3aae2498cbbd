// Package chaindata is a client for the enhanced transaction-detail API.
// It serves both the pool resolver (instruction accounts of the pool
// initialization) and the position recorder (economic details of a swap).
package chaindata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNoData means the API has not indexed the transaction yet. Callers retry
// this under the fetch policy; everything else fails fast.
var ErrNoData = errors.New("no transaction data yet")

// Instruction is one top-level instruction of an enhanced transaction.
type Instruction struct {
	ProgramID string   `json:"programId"`
	Accounts  []string `json:"accounts"`
}

// TokenTransfer is a token movement within a swap.
type TokenTransfer struct {
	Mint        string  `json:"mint"`
	TokenAmount float64 `json:"tokenAmount"`
}

// ProgramInfo identifies the program an inner swap routed through.
type ProgramInfo struct {
	Source string `json:"source"`
}

// InnerSwap is one hop of a routed swap.
type InnerSwap struct {
	ProgramInfo  *ProgramInfo    `json:"programInfo"`
	TokenInputs  []TokenTransfer `json:"tokenInputs"`
	TokenOutputs []TokenTransfer `json:"tokenOutputs"`
}

// SwapEvent groups the parsed swap hops of a transaction.
type SwapEvent struct {
	InnerSwaps []InnerSwap `json:"innerSwaps"`
}

// Events holds the parsed event section of an enhanced transaction.
type Events struct {
	Swap *SwapEvent `json:"swap"`
}

// Transaction is one enhanced transaction as returned by the API.
type Transaction struct {
	Instructions []Instruction `json:"instructions"`
	Events       *Events       `json:"events"`
	Fee          int64         `json:"fee"`
	Slot         int64         `json:"slot"`
	Timestamp    int64         `json:"timestamp"`
	Description  string        `json:"description"`
}

// Client calls the enhanced transactions endpoint.
type Client struct {
	endpoint string
	client   *http.Client
}

// New creates a chaindata client with the given per-request timeout.
func New(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// GetTransaction fetches the enhanced view of one transaction.
// Returns ErrNoData when the API responds with an empty set, which happens
// routinely for signatures the indexer has not caught up to.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	body, err := json.Marshal(map[string][]string{"transactions": {signature}})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, respBody)
	}

	var transactions []*Transaction
	if err := json.Unmarshal(respBody, &transactions); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(transactions) == 0 || transactions[0] == nil {
		return nil, ErrNoData
	}

	return transactions[0], nil
}
