// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	RPCURL       string             `mapstructure:"rpc_url"`
	DebugLogging bool               `mapstructure:"debug_logging"`
	LogFile      string             `mapstructure:"log_file"`
	TradeAPI     TradeAPIConfig     `mapstructure:"trade_api"`
	Feed         FeedConfig         `mapstructure:"feed"`
	Fiat         FiatConfig         `mapstructure:"fiat"`
	Confirmation ConfirmationConfig `mapstructure:"confirmation"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Paths        PathsConfig        `mapstructure:"paths"`
	Ledger       LedgerConfig       `mapstructure:"ledger"`
	Recorder     RecorderConfig     `mapstructure:"recorder"`
	Events       EventsConfig       `mapstructure:"events"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Discovery    DiscoveryConfig    `mapstructure:"discovery"`
	Alerts       AlertsConfig       `mapstructure:"alerts"`
}

type TradeAPIConfig struct {
	URL           string        `mapstructure:"url"`
	MetadataURL   string        `mapstructure:"metadata_url"`
	Slippage      int           `mapstructure:"slippage"`
	PriorityFee   float64       `mapstructure:"priority_fee"`
	Pool          string        `mapstructure:"pool"`
	Retries       int           `mapstructure:"retries"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	Timeout       time.Duration `mapstructure:"timeout"`
	SkipPreflight bool          `mapstructure:"skip_preflight"`
}

type FeedConfig struct {
	URL               string        `mapstructure:"url"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	MaxReconnectDelay time.Duration `mapstructure:"max_reconnect_delay"`
}

type FiatConfig struct {
	URL               string        `mapstructure:"url"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

type ConfirmationConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Interval time.Duration `mapstructure:"interval"`
}

type OrchestratorConfig struct {
	WalletDelay time.Duration `mapstructure:"wallet_delay"`
	Jitter      time.Duration `mapstructure:"jitter"`
	MiniAmount  float64       `mapstructure:"mini_amount"`
	MiniDelay   time.Duration `mapstructure:"mini_delay"`
}

type PathsConfig struct {
	WalletsConfig     string `mapstructure:"wallets_config"`
	WalletsAdditional string `mapstructure:"wallets_additional"`
	WalletsMini       string `mapstructure:"wallets_mini"`
	TokenList         string `mapstructure:"token_list"`
	Ledger            string `mapstructure:"ledger"`
	TokenConfig       string `mapstructure:"token_config"`
	ParsedTokens      string `mapstructure:"parsed_tokens"`
	RankedTokens      string `mapstructure:"ranked_tokens"`
}

type LedgerConfig struct {
	Backend     string `mapstructure:"backend"`
	PostgresURL string `mapstructure:"postgres_url"`
}

type RecorderConfig struct {
	SQLitePath string `mapstructure:"sqlite_path"`
}

type EventsConfig struct {
	NATSURL       string `mapstructure:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

type DiscoveryConfig struct {
	RankURL      string  `mapstructure:"rank_url"`
	TokensURL    string  `mapstructure:"tokens_url"`
	MinMarketCap float64 `mapstructure:"min_market_cap"`
	MaxMarketCap float64 `mapstructure:"max_market_cap"`
	Filter       string  `mapstructure:"filter"`
	Schedule     string  `mapstructure:"schedule"`
}

// AlertsConfig – пороги алертов монитора, 0 отключает алерт.
type AlertsConfig struct {
	ProfitTargetPercent float64       `mapstructure:"profit_target_percent"`
	LossLimitPercent    float64       `mapstructure:"loss_limit_percent"`
	LargeTradeSol       float64       `mapstructure:"large_trade_sol"`
	Cooldown            time.Duration `mapstructure:"cooldown"`
}

const (
	LedgerBackendJSON     = "json"
	LedgerBackendPostgres = "postgres"

	DefaultConfirmationAttempts = 5
	DefaultConfirmationInterval = 2 * time.Second
	DefaultReconnectDelay       = time.Second
	DefaultMaxReconnectDelay    = 30 * time.Second
	DefaultSlippage             = 10
	DefaultPriorityFee          = 0.00001
	DefaultPool                 = "pump"
	DefaultRetries              = 3
	DefaultRetryDelay           = time.Second
	DefaultMiniAmount           = 0.01
	DefaultMiniDelay            = 2 * time.Second
)

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"rpc_url":                   "https://api.mainnet-beta.solana.com",
		"log_file":                  "pumpfleet.log",
		"trade_api.url":             "https://pumpportal.fun",
		"trade_api.metadata_url":    "https://pump.fun/api/ipfs",
		"trade_api.slippage":        DefaultSlippage,
		"trade_api.priority_fee":    DefaultPriorityFee,
		"trade_api.pool":            DefaultPool,
		"trade_api.retries":         DefaultRetries,
		"trade_api.retry_delay":     DefaultRetryDelay,
		"trade_api.timeout":         30 * time.Second,
		"feed.url":                  "wss://pumpportal.fun/api/data",
		"feed.reconnect_delay":      DefaultReconnectDelay,
		"feed.max_reconnect_delay":  DefaultMaxReconnectDelay,
		"fiat.url":                  "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd",
		"fiat.requests_per_second":  0.5,
		"fiat.cache_ttl":            30 * time.Second,
		"confirmation.attempts":     DefaultConfirmationAttempts,
		"confirmation.interval":     DefaultConfirmationInterval,
		"orchestrator.wallet_delay": time.Duration(0),
		"orchestrator.jitter":       time.Duration(0),
		"orchestrator.mini_amount":  DefaultMiniAmount,
		"orchestrator.mini_delay":   DefaultMiniDelay,
		"paths.wallets_config":      "config/wallets_config.json",
		"paths.wallets_additional":  "config/wallets_additional.json",
		"paths.wallets_mini":        "config/wallets_mini.json",
		"paths.token_list":          "data/token_list.json",
		"paths.ledger":              "data/purchases.json",
		"paths.token_config":        "config/token_config.yaml",
		"paths.parsed_tokens":       "data/parsed_tokens.json",
		"paths.ranked_tokens":       "data/gmgn_tokens.json",
		"ledger.backend":            LedgerBackendJSON,
		"events.subject_prefix":     "pumpfleet",
		"discovery.rank_url":        "https://gmgn.ai/defi/quotation/v1/rank/sol/pump",
		"discovery.tokens_url":      "https://pumpportal.fun/api/tokens",
		"discovery.min_market_cap":  50000,
		"discovery.max_market_cap":  100000,
		"alerts.cooldown":           5 * time.Minute,
	}
}

// LoadConfig reads path (yaml/json) and overlays PUMPFLEET_* env vars.
// An empty path loads defaults plus env only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	loadEnvironmentVariables(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if err := validateURLWithCache(cfg.RPCURL, "http"); err != nil {
		return errors.New("invalid rpc_url")
	}
	if err := validateURLWithCache(cfg.TradeAPI.URL, "http"); err != nil {
		return errors.New("invalid trade_api.url")
	}
	if err := validateURLWithCache(cfg.Feed.URL, "ws"); err != nil {
		return errors.New("invalid WebSocket URL protocol")
	}
	if cfg.Fiat.URL != "" {
		if err := validateURLWithCache(cfg.Fiat.URL, "http"); err != nil {
			return errors.New("invalid fiat.url")
		}
	}
	switch cfg.Ledger.Backend {
	case LedgerBackendJSON:
	case LedgerBackendPostgres:
		if cfg.Ledger.PostgresURL == "" {
			return errors.New("ledger.postgres_url is required for postgres backend")
		}
	default:
		return fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.Confirmation.Attempts <= 0 {
		return errors.New("invalid confirmation.attempts")
	}
	if cfg.Confirmation.Interval <= 0 {
		return errors.New("invalid confirmation.interval")
	}
	if cfg.Feed.ReconnectDelay <= 0 {
		return errors.New("invalid feed.reconnect_delay")
	}
	if cfg.Feed.MaxReconnectDelay < cfg.Feed.ReconnectDelay {
		return errors.New("feed.max_reconnect_delay must be >= feed.reconnect_delay")
	}
	if cfg.TradeAPI.Slippage < 0 || cfg.TradeAPI.Slippage > 100 {
		return errors.New("invalid trade_api.slippage")
	}
	if cfg.TradeAPI.PriorityFee < 0 {
		return errors.New("invalid trade_api.priority_fee")
	}
	if cfg.TradeAPI.Retries < 1 {
		return errors.New("invalid trade_api.retries")
	}
	if cfg.Orchestrator.WalletDelay < 0 || cfg.Orchestrator.Jitter < 0 || cfg.Orchestrator.MiniDelay < 0 {
		return errors.New("orchestrator delays must not be negative")
	}
	if cfg.Orchestrator.MiniAmount <= 0 {
		return errors.New("invalid orchestrator.mini_amount")
	}
	if cfg.Discovery.MinMarketCap > cfg.Discovery.MaxMarketCap {
		return errors.New("discovery.min_market_cap exceeds max_market_cap")
	}
	if cfg.Alerts.ProfitTargetPercent < 0 || cfg.Alerts.LossLimitPercent < 0 || cfg.Alerts.LargeTradeSol < 0 {
		return errors.New("alert thresholds must not be negative")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper) {
	v.SetEnvPrefix("PUMPFLEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}
