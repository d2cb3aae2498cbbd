package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	logger := log.New(os.Stderr, "[jupiter] ", log.LstdFlags)
	return New(server.URL+"/quote", server.URL+"/swap", server.URL+"/price", time.Second, logger)
}

func TestGetQuote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("inputMint") != "SOL" || q.Get("outputMint") != "TOKEN" {
			t.Errorf("mints = %s/%s", q.Get("inputMint"), q.Get("outputMint"))
		}
		if q.Get("amount") != "100000000" || q.Get("slippageBps") != "200" {
			t.Errorf("amount/slippage = %s/%s", q.Get("amount"), q.Get("slippageBps"))
		}
		w.Write([]byte(`{"inAmount":"100000000","outAmount":"5"}`))
	})

	quote, err := client.GetQuote(context.Background(), QuoteParams{
		InputMint: "SOL", OutputMint: "TOKEN", Amount: "100000000", SlippageBps: 200,
	})
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if !json.Valid(quote) {
		t.Error("quote is not valid JSON")
	}
}

func TestGetQuote_TokenNotTradable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errorCode":"TOKEN_NOT_TRADABLE","error":"..."}`))
	})

	_, err := client.GetQuote(context.Background(), QuoteParams{SlippageBps: 200})
	if !errors.Is(err, ErrTokenNotTradable) {
		t.Fatalf("err = %v, want ErrTokenNotTradable", err)
	}
}

func TestGetQuote_OtherBadRequestNotRetryable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errorCode":"CIRCULAR_ARBITRAGE_IS_DISABLED"}`))
	})

	_, err := client.GetQuote(context.Background(), QuoteParams{SlippageBps: 200})
	if err == nil || errors.Is(err, ErrTokenNotTradable) {
		t.Fatalf("err = %v, want generic failure", err)
	}
}

func TestBuildSwap_RequestShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/swap" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["userPublicKey"] != "WALLET1" {
			t.Errorf("userPublicKey = %v", body["userPublicKey"])
		}
		if body["wrapAndUnwrapSol"] != true {
			t.Errorf("wrapAndUnwrapSol = %v", body["wrapAndUnwrapSol"])
		}
		ds := body["dynamicSlippage"].(map[string]interface{})
		if ds["maxBps"] != float64(300) {
			t.Errorf("dynamicSlippage.maxBps = %v", ds["maxBps"])
		}
		prio := body["prioritizationFeeLamports"].(map[string]interface{})["priorityLevelWithMaxLamports"].(map[string]interface{})
		if prio["maxLamports"] != float64(1000000) || prio["priorityLevel"] != "veryHigh" {
			t.Errorf("priority fee = %v", prio)
		}
		if _, ok := body["quoteResponse"].(map[string]interface{}); !ok {
			t.Errorf("quoteResponse not embedded as object: %v", body["quoteResponse"])
		}
		json.NewEncoder(w).Encode(map[string]string{"swapTransaction": "c2lnbmVk"})
	})

	tx, err := client.BuildSwap(context.Background(), Quote(`{"inAmount":"1"}`), "WALLET1",
		PriorityFee{MaxLamports: 1000000, Level: "veryHigh"})
	if err != nil {
		t.Fatalf("BuildSwap: %v", err)
	}
	if tx != "c2lnbmVk" {
		t.Errorf("swapTransaction = %s", tx)
	}
}

func TestBuildSwap_EmptyTransaction(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	_, err := client.BuildSwap(context.Background(), Quote(`{}`), "WALLET1", PriorityFee{MaxLamports: 1, Level: "high"})
	if err == nil {
		t.Fatal("expected error for missing swapTransaction")
	}
}

func TestGetPrice(t *testing.T) {
	const wsol = "So11111111111111111111111111111111111111112"

	cases := []struct {
		name string
		body string
		want float64
	}{
		{"numeric price", `{"data":{"` + wsol + `":{"price":153.42}}}`, 153.42},
		{"string price", `{"data":{"` + wsol + `":{"price":"153.42"}}}`, 153.42},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("ids") != wsol {
					t.Errorf("ids = %s", r.URL.Query().Get("ids"))
				}
				w.Write([]byte(tc.body))
			})

			price, err := client.GetPrice(context.Background(), wsol)
			if err != nil {
				t.Fatalf("GetPrice: %v", err)
			}
			if price != tc.want {
				t.Errorf("price = %v, want %v", price, tc.want)
			}
		})
	}
}

func TestGetPrice_MissingMint(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	})

	if _, err := client.GetPrice(context.Background(), "MINT1"); err == nil {
		t.Fatal("expected error for missing mint")
	}
}
