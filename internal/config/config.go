package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
//
// Tuning values come from a YAML file (env-overridable); endpoints and the
// wallet secret come from the process environment, optionally seeded from a
// .env file. The original deployment of this bot spelled the pool section key
// two different ways; here there is exactly one canonical namespace.
type Config struct {
	Pool         PoolConfig         `mapstructure:"pool"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	Tx           TxConfig           `mapstructure:"tx"`
	Swap         SwapConfig         `mapstructure:"swap"`
	Sell         SellConfig         `mapstructure:"sell"`
	RugCheck     RugCheckConfig     `mapstructure:"rugcheck"`
	Filters      FiltersConfig      `mapstructure:"filters"`

	Endpoints Endpoints `mapstructure:"-"`
}

// PoolConfig identifies the AMM program whose pool initializations we react to.
type PoolConfig struct {
	// ProgramID is the AMM program whose initialize instruction creates pools.
	ProgramID string `mapstructure:"program_id"`
	// QuoteMint is the mint treated as the quote side of every new pool (WSOL).
	QuoteMint string `mapstructure:"quote_mint"`
}

// SubscriptionConfig controls the logsSubscribe stream.
type SubscriptionConfig struct {
	Commitment     string        `mapstructure:"commitment"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

// TxConfig controls transaction-detail fetching.
type TxConfig struct {
	// FetchInterval is the spacing between transaction-detail retries.
	FetchInterval time.Duration `mapstructure:"fetch_interval"`
	// FetchTimeout is the total wall-clock budget for transaction-detail retries.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	// CallTimeout is the per-request HTTP timeout for all outbound calls.
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// SwapConfig controls the buy swap.
type SwapConfig struct {
	// AmountLamports is the fixed input amount, as the aggregator expects it.
	AmountLamports string `mapstructure:"amount_lamports"`
	SlippageBps    int    `mapstructure:"slippage_bps"`
	// TokenNotTradableRetries bounds retries on the aggregator's
	// TOKEN_NOT_TRADABLE rejection for freshly created pools.
	TokenNotTradableRetries int           `mapstructure:"token_not_tradable_retries"`
	TokenNotTradableDelay   time.Duration `mapstructure:"token_not_tradable_delay"`
	PrioFeeMaxLamports      int64         `mapstructure:"prio_fee_max_lamports"`
	PrioLevel               string        `mapstructure:"prio_level"`
	VerboseLog              bool          `mapstructure:"verbose_log"`
}

// SellConfig controls the sell swap. No defaults: a sell with the wrong
// slippage or priority fee loses money, so every field must be set explicitly.
type SellConfig struct {
	SlippageBps        int    `mapstructure:"slippage_bps"`
	PrioFeeMaxLamports int64  `mapstructure:"prio_fee_max_lamports"`
	PrioLevel          string `mapstructure:"prio_level"`
}

// RugCheckConfig controls the pre-trade risk gate.
type RugCheckConfig struct {
	MaxSingleHolderPct float64 `mapstructure:"max_single_holder_pct"`
	// MaxLowLiquidityPct has no safe default; the gate silently no-ops
	// without it, so it is required.
	MaxLowLiquidityPct float64  `mapstructure:"max_low_liquidity_pct"`
	Denylist           []string `mapstructure:"denylist"`
}

// FiltersConfig holds pre-gate token filters.
type FiltersConfig struct {
	// IgnorePumpFun skips tokens whose mint ends in the pump.fun suffix.
	IgnorePumpFun bool `mapstructure:"ignore_pump_fun"`
}

// Endpoints holds external service URLs and secrets, sourced from the
// environment rather than the config file.
type Endpoints struct {
	WebsocketURL    string // SNIPER_WS_URL
	TxAPIURL        string // SNIPER_TX_API_URL (enhanced transactions endpoint)
	RPCURL          string // SNIPER_RPC_URL
	QuoteAPIURL     string // SNIPER_QUOTE_API_URL
	SwapAPIURL      string // SNIPER_SWAP_API_URL
	PriceAPIURL     string // SNIPER_PRICE_API_URL
	RugCheckAPIURL  string // SNIPER_RUGCHECK_API_URL
	WalletSecretKey string // SNIPER_WALLET_PRIVATE_KEY (base58)
	PostgresDSN     string // SNIPER_POSTGRES_DSN (empty selects memory store)
}

// Load reads configuration from the given file plus the environment.
// A .env file in the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	// Missing .env is fine; explicit environment wins either way.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix("SNIPER")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Endpoints = Endpoints{
		WebsocketURL:    os.Getenv("SNIPER_WS_URL"),
		TxAPIURL:        os.Getenv("SNIPER_TX_API_URL"),
		RPCURL:          os.Getenv("SNIPER_RPC_URL"),
		QuoteAPIURL:     os.Getenv("SNIPER_QUOTE_API_URL"),
		SwapAPIURL:      os.Getenv("SNIPER_SWAP_API_URL"),
		PriceAPIURL:     os.Getenv("SNIPER_PRICE_API_URL"),
		RugCheckAPIURL:  os.Getenv("SNIPER_RUGCHECK_API_URL"),
		WalletSecretKey: os.Getenv("SNIPER_WALLET_PRIVATE_KEY"),
		PostgresDSN:     os.Getenv("SNIPER_POSTGRES_DSN"),
	}

	return &cfg, nil
}

// setDefaults configures defaults for values that have a safe one.
// Fields that can silently disable a safety check get none.
func setDefaults(v *viper.Viper) {
	v.SetDefault("pool.program_id", "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	v.SetDefault("pool.quote_mint", "So11111111111111111111111111111111111111112")

	v.SetDefault("subscription.commitment", "processed")
	v.SetDefault("subscription.reconnect_delay", "5s")

	v.SetDefault("tx.fetch_interval", "750ms")
	v.SetDefault("tx.fetch_timeout", "20s")
	v.SetDefault("tx.call_timeout", "10s")

	v.SetDefault("swap.amount_lamports", "100000000")
	v.SetDefault("swap.slippage_bps", 200)
	v.SetDefault("swap.verbose_log", false)

	v.SetDefault("rugcheck.max_single_holder_pct", 30.0)
	v.SetDefault("rugcheck.denylist", []string{
		"Freeze Authority still enabled",
		"Large Amount of LP Unlocked",
		"Copycat token",
	})

	v.SetDefault("filters.ignore_pump_fun", true)
}

// Validate checks the configuration and fails fast on anything missing or
// out of range. Called once at startup before any connection is opened.
func (c *Config) Validate() error {
	if c.Pool.ProgramID == "" {
		return fmt.Errorf("pool.program_id is required")
	}
	if c.Pool.QuoteMint == "" {
		return fmt.Errorf("pool.quote_mint is required")
	}
	if c.Subscription.Commitment == "" {
		return fmt.Errorf("subscription.commitment is required")
	}
	if c.Subscription.ReconnectDelay <= 0 {
		return fmt.Errorf("subscription.reconnect_delay must be positive")
	}

	if c.Tx.FetchInterval <= 0 {
		return fmt.Errorf("tx.fetch_interval must be positive")
	}
	if c.Tx.FetchTimeout <= c.Tx.FetchInterval {
		return fmt.Errorf("tx.fetch_timeout must exceed tx.fetch_interval")
	}
	if c.Tx.CallTimeout <= 0 {
		return fmt.Errorf("tx.call_timeout must be positive")
	}

	if c.Swap.AmountLamports == "" {
		return fmt.Errorf("swap.amount_lamports is required")
	}
	if c.Swap.SlippageBps <= 0 {
		return fmt.Errorf("swap.slippage_bps must be positive")
	}
	if c.Swap.TokenNotTradableRetries <= 0 {
		return fmt.Errorf("swap.token_not_tradable_retries is required")
	}
	if c.Swap.TokenNotTradableDelay <= 0 {
		return fmt.Errorf("swap.token_not_tradable_delay is required")
	}
	if c.Swap.PrioFeeMaxLamports <= 0 {
		return fmt.Errorf("swap.prio_fee_max_lamports is required")
	}
	if c.Swap.PrioLevel == "" {
		return fmt.Errorf("swap.prio_level is required")
	}

	if c.Sell.SlippageBps <= 0 {
		return fmt.Errorf("sell.slippage_bps is required")
	}
	if c.Sell.PrioFeeMaxLamports <= 0 {
		return fmt.Errorf("sell.prio_fee_max_lamports is required")
	}
	if c.Sell.PrioLevel == "" {
		return fmt.Errorf("sell.prio_level is required")
	}

	if c.RugCheck.MaxSingleHolderPct <= 0 || c.RugCheck.MaxSingleHolderPct > 100 {
		return fmt.Errorf("rugcheck.max_single_holder_pct must be in (0, 100]")
	}
	if c.RugCheck.MaxLowLiquidityPct <= 0 || c.RugCheck.MaxLowLiquidityPct > 100 {
		return fmt.Errorf("rugcheck.max_low_liquidity_pct is required and must be in (0, 100]")
	}

	return c.Endpoints.validate()
}

func (e *Endpoints) validate() error {
	required := []struct {
		name, val string
	}{
		{"SNIPER_WS_URL", e.WebsocketURL},
		{"SNIPER_TX_API_URL", e.TxAPIURL},
		{"SNIPER_RPC_URL", e.RPCURL},
		{"SNIPER_QUOTE_API_URL", e.QuoteAPIURL},
		{"SNIPER_SWAP_API_URL", e.SwapAPIURL},
		{"SNIPER_PRICE_API_URL", e.PriceAPIURL},
		{"SNIPER_RUGCHECK_API_URL", e.RugCheckAPIURL},
		{"SNIPER_WALLET_PRIVATE_KEY", e.WalletSecretKey},
	}
	for _, r := range required {
		if r.val == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}
	return nil
}
