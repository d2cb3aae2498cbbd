package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solana-pool-sniper/internal/chaindata"
	"solana-pool-sniper/internal/config"
	"solana-pool-sniper/internal/jupiter"
	"solana-pool-sniper/internal/observability"
	"solana-pool-sniper/internal/rugcheck"
	"solana-pool-sniper/internal/sniper"
	"solana-pool-sniper/internal/solana"
	"solana-pool-sniper/internal/storage"
	"solana-pool-sniper/internal/storage/memory"
	"solana-pool-sniper/internal/storage/migrations"
	pgstore "solana-pool-sniper/internal/storage/postgres"
	"solana-pool-sniper/internal/wallet"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory position storage even when a postgres DSN is set")
	flag.Parse()

	logger := log.New(os.Stdout, "[sniper] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()

		sig = <-sigCh
		logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
		os.Exit(1)
	}()

	if err := run(ctx, logger, cfg, *useMemory); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Config, useMemory bool) error {
	w, err := wallet.New(cfg.Endpoints.WalletSecretKey)
	if err != nil {
		return err
	}
	logger.Printf("Wallet: %s", w.PublicKey())

	positions, cleanup, err := openPositionStore(ctx, logger, cfg, useMemory)
	if err != nil {
		return err
	}
	defer cleanup()

	callTimeout := cfg.Tx.CallTimeout
	rpc := solana.NewHTTPClient(cfg.Endpoints.RPCURL, solana.WithTimeout(callTimeout))
	txAPI := chaindata.New(cfg.Endpoints.TxAPIURL, callTimeout)

	jup := jupiter.New(cfg.Endpoints.QuoteAPIURL, cfg.Endpoints.SwapAPIURL, cfg.Endpoints.PriceAPIURL,
		callTimeout, log.New(os.Stdout, "[jupiter] ", log.LstdFlags))
	jup.SetVerbose(cfg.Swap.VerboseLog)

	gate := rugcheck.NewGate(
		rugcheck.NewClient(cfg.Endpoints.RugCheckAPIURL, callTimeout),
		rugcheck.Thresholds{
			MaxSingleHolderPct: cfg.RugCheck.MaxSingleHolderPct,
			MaxLowLiquidityPct: cfg.RugCheck.MaxLowLiquidityPct,
			Denylist:           cfg.RugCheck.Denylist,
		},
		log.New(os.Stdout, "[rugcheck] ", log.LstdFlags),
	)

	executor := sniper.NewWalletExecutor(w, rpc, time.Second, 0, logger)

	resolver := sniper.NewResolver(txAPI, cfg.Pool.ProgramID, cfg.Pool.QuoteMint,
		cfg.Tx.FetchInterval, cfg.Tx.FetchTimeout, logger)

	swapper := sniper.NewSwapper(jup, executor, positions,
		sniper.BuyParams{
			AmountLamports:  cfg.Swap.AmountLamports,
			SlippageBps:     cfg.Swap.SlippageBps,
			QuoteRetries:    cfg.Swap.TokenNotTradableRetries,
			QuoteRetryDelay: cfg.Swap.TokenNotTradableDelay,
			PriorityFee:     jupiter.PriorityFee{MaxLamports: cfg.Swap.PrioFeeMaxLamports, Level: cfg.Swap.PrioLevel},
		},
		sniper.SellParams{
			SlippageBps:         cfg.Sell.SlippageBps,
			PriorityFee:         jupiter.PriorityFee{MaxLamports: cfg.Sell.PrioFeeMaxLamports, Level: cfg.Sell.PrioLevel},
			ConfirmPollInterval: time.Second,
		},
		logger,
	)

	recorder := sniper.NewRecorder(txAPI, jup, rpc, positions, cfg.Pool.QuoteMint, logger)

	controller := sniper.NewController(
		sniper.ControllerConfig{
			WebsocketURL:     cfg.Endpoints.WebsocketURL,
			ProgramID:        cfg.Pool.ProgramID,
			Commitment:       cfg.Subscription.Commitment,
			ReconnectDelay:   cfg.Subscription.ReconnectDelay,
			IgnorePumpSuffix: cfg.Filters.IgnorePumpFun,
		},
		resolver, gate, swapper, executor, recorder, logger,
	)

	return controller.Run(ctx)
}

// openPositionStore selects postgres when a DSN is configured, otherwise the
// in-memory store. The returned cleanup is safe to call once.
func openPositionStore(ctx context.Context, logger *log.Logger, cfg *config.Config, useMemory bool) (storage.PositionStore, func(), error) {
	if useMemory || cfg.Endpoints.PostgresDSN == "" {
		logger.Println("Using in-memory position storage (positions are lost on restart)")
		return memory.NewPositionStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Endpoints.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Println("Using PostgreSQL position storage")
	return pgstore.NewPositionStore(pool), pool.Close, nil
}
