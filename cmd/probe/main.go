// Command probe exercises single pipeline stages against live endpoints, one
// at a time. It exists for poking at real services while tuning
// configuration; nothing here runs in production.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"solana-pool-sniper/internal/chaindata"
	"solana-pool-sniper/internal/config"
	"solana-pool-sniper/internal/jupiter"
	"solana-pool-sniper/internal/rugcheck"
	"solana-pool-sniper/internal/sniper"
	"solana-pool-sniper/internal/solana"
	"solana-pool-sniper/internal/storage/memory"
	"solana-pool-sniper/internal/wallet"
)

const usage = `Usage: probe -config <file> <stage> [args]

Stages:
  resolve <signature>         resolve pool mints from a transaction
  rugcheck <mint>             run the risk gate against a token
  quote <in> <out> <amount>   fetch a swap quote
  buy <quoteMint> <baseMint>  build (not submit) a buy swap
  sell <tokenMint> <amount>   quote, build, sign, submit and confirm a sell
  price <mint>                fetch the USD price of a mint
  asset <mint>                fetch token metadata name
  record <signature>          run the position recorder against a buy
`

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	timeout := flag.Duration("timeout", 60*time.Second, "Overall probe timeout")
	flag.Parse()

	logger := log.New(os.Stdout, "[probe] ", log.LstdFlags)

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := runStage(ctx, logger, cfg, args[0], args[1:]); err != nil {
		logger.Fatalf("Error: %v", err)
	}
}

func runStage(ctx context.Context, logger *log.Logger, cfg *config.Config, stage string, args []string) error {
	callTimeout := cfg.Tx.CallTimeout
	rpc := solana.NewHTTPClient(cfg.Endpoints.RPCURL, solana.WithTimeout(callTimeout))
	txAPI := chaindata.New(cfg.Endpoints.TxAPIURL, callTimeout)
	jup := jupiter.New(cfg.Endpoints.QuoteAPIURL, cfg.Endpoints.SwapAPIURL, cfg.Endpoints.PriceAPIURL, callTimeout, logger)
	jup.SetVerbose(true)

	switch stage {
	case "resolve":
		if len(args) != 1 {
			return fmt.Errorf("resolve needs a signature")
		}
		resolver := sniper.NewResolver(txAPI, cfg.Pool.ProgramID, cfg.Pool.QuoteMint,
			cfg.Tx.FetchInterval, cfg.Tx.FetchTimeout, logger)
		mints, err := resolver.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		logger.Printf("base=%s quote=%s", mints.BaseMint, mints.QuoteMint)
		return nil

	case "rugcheck":
		if len(args) != 1 {
			return fmt.Errorf("rugcheck needs a mint")
		}
		gate := rugcheck.NewGate(
			rugcheck.NewClient(cfg.Endpoints.RugCheckAPIURL, callTimeout),
			rugcheck.Thresholds{
				MaxSingleHolderPct: cfg.RugCheck.MaxSingleHolderPct,
				MaxLowLiquidityPct: cfg.RugCheck.MaxLowLiquidityPct,
				Denylist:           cfg.RugCheck.Denylist,
			},
			logger,
		)
		logger.Printf("pass=%v", gate.Check(ctx, args[0]))
		return nil

	case "quote":
		if len(args) != 3 {
			return fmt.Errorf("quote needs <inputMint> <outputMint> <amount>")
		}
		quote, err := jup.GetQuote(ctx, jupiter.QuoteParams{
			InputMint:   args[0],
			OutputMint:  args[1],
			Amount:      args[2],
			SlippageBps: cfg.Swap.SlippageBps,
		})
		if err != nil {
			return err
		}
		logger.Printf("quote: %s", string(quote))
		return nil

	case "buy":
		if len(args) != 2 {
			return fmt.Errorf("buy needs <quoteMint> <baseMint>")
		}
		swapper, _, err := buildSwapper(cfg, rpc, jup, logger)
		if err != nil {
			return err
		}
		payload, err := swapper.Buy(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		logger.Printf("swap payload (%d bytes base64, NOT submitted): %.64s...", len(payload), payload)
		return nil

	case "sell":
		if len(args) != 2 {
			return fmt.Errorf("sell needs <tokenMint> <amount>")
		}
		swapper, _, err := buildSwapper(cfg, rpc, jup, logger)
		if err != nil {
			return err
		}
		sig, err := swapper.Sell(ctx, cfg.Pool.QuoteMint, args[0], args[1])
		if err != nil {
			return err
		}
		logger.Printf("sell confirmed: %s", sig)
		return nil

	case "price":
		if len(args) != 1 {
			return fmt.Errorf("price needs a mint")
		}
		price, err := jup.GetPrice(ctx, args[0])
		if err != nil {
			return err
		}
		logger.Printf("price: %f USD", price)
		return nil

	case "asset":
		if len(args) != 1 {
			return fmt.Errorf("asset needs a mint")
		}
		name, err := rpc.GetAssetName(ctx, args[0])
		if err != nil {
			return err
		}
		logger.Printf("name: %q", name)
		return nil

	case "record":
		if len(args) != 1 {
			return fmt.Errorf("record needs a signature")
		}
		positions := memory.NewPositionStore()
		recorder := sniper.NewRecorder(txAPI, jup, rpc, positions, cfg.Pool.QuoteMint, logger)
		if err := recorder.Record(ctx, args[0]); err != nil {
			return err
		}
		all, err := positions.GetAll(ctx)
		if err != nil {
			return err
		}
		for _, p := range all {
			logger.Printf("position: %+v", *p)
		}
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown stage %q", stage)
	}
}

func buildSwapper(cfg *config.Config, rpc *solana.HTTPClient, jup *jupiter.Client, logger *log.Logger) (*sniper.Swapper, *sniper.WalletExecutor, error) {
	w, err := wallet.New(cfg.Endpoints.WalletSecretKey)
	if err != nil {
		return nil, nil, err
	}
	executor := sniper.NewWalletExecutor(w, rpc, time.Second, 0, logger)

	swapper := sniper.NewSwapper(jup, executor, memory.NewPositionStore(),
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
	return swapper, executor, nil
}
