// Package jupiter is a client for the swap aggregator: price quotes, swap
// transaction building, and the quote-asset price feed.
package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrTokenNotTradable is the aggregator's rejection for tokens whose pool is
// too fresh to route through. It is the only quote failure worth retrying.
var ErrTokenNotTradable = errors.New("token not yet tradable")

// Quote is a priced route. Opaque to the pipeline: it is passed back to the
// swap-build call unmodified and must not outlive the swap attempt that
// requested it.
type Quote json.RawMessage

// QuoteParams are the inputs of a quote request.
type QuoteParams struct {
	InputMint   string
	OutputMint  string
	Amount      string
	SlippageBps int
}

// PriorityFee configures the prioritization fee attached to a built swap.
type PriorityFee struct {
	MaxLamports int64
	Level       string
}

// Client calls the aggregator endpoints.
type Client struct {
	quoteURL string
	swapURL  string
	priceURL string
	client   *http.Client
	verbose  bool
	logger   *log.Logger
}

// New creates an aggregator client with the given per-request timeout.
func New(quoteURL, swapURL, priceURL string, timeout time.Duration, logger *log.Logger) *Client {
	return &Client{
		quoteURL: quoteURL,
		swapURL:  swapURL,
		priceURL: priceURL,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// SetVerbose enables logging of raw quote and swap responses.
func (c *Client) SetVerbose(v bool) {
	c.verbose = v
}

// GetQuote fetches a priced route for the given swap. A 400 with the
// TOKEN_NOT_TRADABLE error code maps to ErrTokenNotTradable; any other
// failure is terminal for the attempt.
func (c *Client) GetQuote(ctx context.Context, p QuoteParams) (Quote, error) {
	q := url.Values{}
	q.Set("inputMint", p.InputMint)
	q.Set("outputMint", p.OutputMint)
	q.Set("amount", p.Amount)
	q.Set("slippageBps", strconv.Itoa(p.SlippageBps))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.quoteURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusBadRequest {
		var apiErr struct {
			ErrorCode string `json:"errorCode"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.ErrorCode == "TOKEN_NOT_TRADABLE" {
			return nil, ErrTokenNotTradable
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty quote response")
	}

	if c.verbose {
		c.logger.Printf("quote response: %s", body)
	}

	return Quote(body), nil
}

// BuildSwap submits a quote and returns the serialized transaction built for
// the given wallet. Single attempt: a stale quote cannot be rescued by
// retrying the build.
func (c *Client) BuildSwap(ctx context.Context, quote Quote, userPublicKey string, fee PriorityFee) (string, error) {
	payload := map[string]interface{}{
		"quoteResponse":    json.RawMessage(quote),
		"userPublicKey":    userPublicKey,
		"wrapAndUnwrapSol": true,
		"dynamicSlippage":  map[string]int{"maxBps": 300},
		"prioritizationFeeLamports": map[string]interface{}{
			"priorityLevelWithMaxLamports": map[string]interface{}{
				"maxLamports":   fee.MaxLamports,
				"priorityLevel": fee.Level,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.swapURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, respBody)
	}

	if c.verbose {
		c.logger.Printf("swap response: %s", respBody)
	}

	var swapResp struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	if err := json.Unmarshal(respBody, &swapResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if swapResp.SwapTransaction == "" {
		return "", fmt.Errorf("no swapTransaction in response")
	}

	return swapResp.SwapTransaction, nil
}

// GetPrice fetches the current USD price of a mint.
func (c *Client) GetPrice(ctx context.Context, mint string) (float64, error) {
	q := url.Values{}
	q.Set("ids", mint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.priceURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	// Price arrives as a number or a numeric string depending on API version.
	var priceResp struct {
		Data map[string]struct {
			Price json.RawMessage `json:"price"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &priceResp); err != nil {
		return 0, fmt.Errorf("unmarshal response: %w", err)
	}

	entry, ok := priceResp.Data[mint]
	if !ok || len(entry.Price) == 0 {
		return 0, fmt.Errorf("no price for mint %s", mint)
	}
	price, err := strconv.ParseFloat(string(bytes.Trim(entry.Price, `"`)), 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("invalid price %s for mint %s", entry.Price, mint)
	}
	return price, nil
}
