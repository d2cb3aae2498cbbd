package sniper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/jupiter"
	"solana-pool-sniper/internal/observability"
	"solana-pool-sniper/internal/storage"
	"solana-pool-sniper/internal/storage/memory"
)

type fakeExecutor struct {
	signature string
	err       error
	executed  atomic.Int32
	payload   string
}

func (f *fakeExecutor) PublicKey() string { return "TestWa11et111111111111111111111111111111111" }

func (f *fakeExecutor) Execute(ctx context.Context, txBase64 string) (string, error) {
	f.executed.Add(1)
	f.payload = txBase64
	if f.err != nil {
		return "", f.err
	}
	return f.signature, nil
}

func testBuyParams() BuyParams {
	return BuyParams{
		AmountLamports:  "100000000",
		SlippageBps:     200,
		QuoteRetries:    3,
		QuoteRetryDelay: time.Millisecond,
		PriorityFee:     jupiter.PriorityFee{MaxLamports: 1000000, Level: "veryHigh"},
	}
}

func testSellParams() SellParams {
	return SellParams{
		SlippageBps:         500,
		PriorityFee:         jupiter.PriorityFee{MaxLamports: 1000000, Level: "veryHigh"},
		ConfirmPollInterval: time.Millisecond,
	}
}

// newSwapperServer wires a Swapper against a fake aggregator. quoteHandler
// serves GET /quote, swap-build always returns swapTX.
func newSwapperServer(t *testing.T, quoteHandler http.HandlerFunc, executor *fakeExecutor, positions storage.PositionStore) *Swapper {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/quote", quoteHandler)
	mux.HandleFunc("/swap", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"swapTransaction":"c2lnbmVkdHg="}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	jup := jupiter.New(server.URL+"/quote", server.URL+"/swap", server.URL+"/price", time.Second, testLogger())
	return NewSwapper(jup, executor, positions, testBuyParams(), testSellParams(), testLogger())
}

func TestSwapper_BuyReturnsPayload(t *testing.T) {
	swapper := newSwapperServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"outAmount":"123"}`)
	}, &fakeExecutor{}, memory.NewPositionStore())

	payload, err := swapper.Buy(context.Background(), testQuoteMint, testBaseMint)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload != "c2lnbmVkdHg=" {
		t.Errorf("payload = %q", payload)
	}
}

func TestSwapper_BuyRetriesNotTradableWithFreshQuote(t *testing.T) {
	var quoteCalls atomic.Int32
	swapper := newSwapperServer(t, func(w http.ResponseWriter, r *http.Request) {
		if quoteCalls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"errorCode":"TOKEN_NOT_TRADABLE"}`)
			return
		}
		fmt.Fprint(w, `{"outAmount":"123"}`)
	}, &fakeExecutor{}, memory.NewPositionStore())

	if _, err := swapper.Buy(context.Background(), testQuoteMint, testBaseMint); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := quoteCalls.Load(); got != 3 {
		t.Errorf("quote requested %d times, want 3 (fresh quote per retry)", got)
	}
}

func TestSwapper_BuyAbortsOnOtherQuoteError(t *testing.T) {
	var quoteCalls atomic.Int32
	swapper := newSwapperServer(t, func(w http.ResponseWriter, r *http.Request) {
		quoteCalls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"errorCode":"ROUTE_PLAN_DOES_NOT_CONSUME_ALL_THE_AMOUNT"}`)
	}, &fakeExecutor{}, memory.NewPositionStore())

	if _, err := swapper.Buy(context.Background(), testQuoteMint, testBaseMint); err == nil {
		t.Fatal("expected error")
	}
	if got := quoteCalls.Load(); got != 1 {
		t.Errorf("quote requested %d times, want 1", got)
	}
}

func TestSwapper_BuyExhaustsQuoteRetries(t *testing.T) {
	var quoteCalls atomic.Int32
	swapper := newSwapperServer(t, func(w http.ResponseWriter, r *http.Request) {
		quoteCalls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"errorCode":"TOKEN_NOT_TRADABLE"}`)
	}, &fakeExecutor{}, memory.NewPositionStore())

	_, err := swapper.Buy(context.Background(), testQuoteMint, testBaseMint)
	if !errors.Is(err, jupiter.ErrTokenNotTradable) {
		t.Fatalf("error = %v, want wrapped ErrTokenNotTradable", err)
	}
	if got := quoteCalls.Load(); got != 3 {
		t.Errorf("quote requested %d times, want 3", got)
	}
}

func TestSwapper_SellRemovesPosition(t *testing.T) {
	positions := memory.NewPositionStore()
	ctx := context.Background()
	if err := positions.Insert(ctx, &domain.Position{TokenMint: testBaseMint, Time: 1}); err != nil {
		t.Fatal(err)
	}

	executor := &fakeExecutor{signature: "SELLSIG1"}
	swapper := newSwapperServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("inputMint"); got != testBaseMint {
			t.Errorf("sell quote inputMint = %s, want %s (reverse direction)", got, testBaseMint)
		}
		fmt.Fprint(w, `{"outAmount":"99"}`)
	}, executor, positions)

	sig, err := swapper.Sell(ctx, testQuoteMint, testBaseMint, "5000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig != "SELLSIG1" {
		t.Errorf("signature = %q", sig)
	}

	if _, err := positions.GetByMint(ctx, testBaseMint); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("position still present after confirmed sell: %v", err)
	}
	if got := promtest.ToFloat64(observability.DefaultMetrics.OpenPositions); got != 0 {
		t.Errorf("open positions gauge = %v, want 0", got)
	}
}

func TestSwapper_SellFailureKeepsPosition(t *testing.T) {
	positions := memory.NewPositionStore()
	ctx := context.Background()
	if err := positions.Insert(ctx, &domain.Position{TokenMint: testBaseMint, Time: 1}); err != nil {
		t.Fatal(err)
	}

	executor := &fakeExecutor{err: fmt.Errorf("transaction SELLSIG1 failed on-chain: InstructionError")}
	swapper := newSwapperServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"outAmount":"99"}`)
	}, executor, positions)

	if _, err := swapper.Sell(ctx, testQuoteMint, testBaseMint, "5000000"); err == nil {
		t.Fatal("expected error")
	}

	if _, err := positions.GetByMint(ctx, testBaseMint); err != nil {
		t.Errorf("position should survive a failed sell: %v", err)
	}
}

func TestSwapper_SellMissingPositionLoggedOnly(t *testing.T) {
	executor := &fakeExecutor{signature: "SELLSIG1"}
	swapper := newSwapperServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"outAmount":"99"}`)
	}, executor, memory.NewPositionStore())

	// The trade succeeded; a missing stored position must not fail the sell.
	sig, err := swapper.Sell(context.Background(), testQuoteMint, testBaseMint, "5000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig != "SELLSIG1" {
		t.Errorf("signature = %q", sig)
	}
}
