package rugcheck

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"solana-pool-sniper/internal/observability"
)

// Named risks carrying a percentage value that is compared against a
// configured ceiling.
const (
	riskSingleHolder = "Single holder ownership"
	riskLowLiquidity = "Low Liquidity"
)

// Thresholds configures the gate. All fields are required; config validation
// rejects zero values before a gate is ever built.
type Thresholds struct {
	// MaxSingleHolderPct is the ownership-concentration ceiling.
	MaxSingleHolderPct float64
	// MaxLowLiquidityPct is the low-liquidity ceiling.
	MaxLowLiquidityPct float64
	// Denylist rejects any report containing a risk with one of these names.
	Denylist []string
}

// Gate fetches a token's risk report and decides pass/fail.
type Gate struct {
	client     *Client
	thresholds Thresholds
	logger     *log.Logger
}

// NewGate creates a risk gate.
func NewGate(client *Client, thresholds Thresholds, logger *log.Logger) *Gate {
	return &Gate{client: client, thresholds: thresholds, logger: logger}
}

// Check fetches the report and evaluates it. Fail-closed: any fetch or parse
// failure rejects the token. Acceptance requires every rule to pass; a named
// risk absent from the report passes that rule.
func (g *Gate) Check(ctx context.Context, mint string) bool {
	report, err := g.client.GetReport(ctx, mint)
	if err != nil {
		g.logger.Printf("report fetch failed for %s, rejecting: %v", mint, err)
		observability.RecordRiskRejection("fetch_failed")
		return false
	}

	if reason := Evaluate(report, g.thresholds); reason != "" {
		g.logger.Printf("token %s rejected: %s", mint, reason)
		observability.RecordRiskRejection("policy")
		return false
	}
	return true
}

// Evaluate applies the policy to a fetched report. Returns the failure
// reason, or empty string when the report passes.
func Evaluate(report *Report, t Thresholds) string {
	for _, risk := range report.Risks {
		switch risk.Name {
		case riskSingleHolder:
			if pct, err := parsePercent(risk.Value); err == nil && pct > t.MaxSingleHolderPct {
				return fmt.Sprintf("%s %.1f%% exceeds %.1f%%", riskSingleHolder, pct, t.MaxSingleHolderPct)
			}
		case riskLowLiquidity:
			if pct, err := parsePercent(risk.Value); err == nil && pct > t.MaxLowLiquidityPct {
				return fmt.Sprintf("%s %.1f%% exceeds %.1f%%", riskLowLiquidity, pct, t.MaxLowLiquidityPct)
			}
		}

		for _, denied := range t.Denylist {
			if risk.Name == denied {
				return fmt.Sprintf("denylisted risk %q present", risk.Name)
			}
		}
	}
	return ""
}

func parsePercent(value string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(value), "%"), 64)
}
