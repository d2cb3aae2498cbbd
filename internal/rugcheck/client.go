// Package rugcheck fetches token risk reports and applies the pre-trade
// pass/fail policy.
package rugcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Risk is one named finding in a report. Value is percentage-like for the
// numeric categories ("30%", "12.5%") and informational for the rest.
type Risk struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Report is the risk summary for one token. Fetched fresh per evaluation,
// never cached.
type Report struct {
	Risks []Risk `json:"risks"`
}

// Client fetches risk report summaries.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a rugcheck client with the given per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// GetReport fetches the report summary for a token mint. Single attempt: the
// caller treats any failure as a rejection.
func (c *Client) GetReport(ctx context.Context, mint string) (*Report, error) {
	url := fmt.Sprintf("%s/%s/report/summary", c.baseURL, mint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
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
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var report Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}

	return &report, nil
}
