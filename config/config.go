package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rustyeddy/cowtrader/market"
	"gopkg.in/yaml.v3"
)

// Config is the complete bot configuration.
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Pair     PairConfig     `json:"pair" yaml:"pair"`
	Feed     FeedConfig     `json:"feed" yaml:"feed"`
	Decision DecisionConfig `json:"decision" yaml:"decision"`
	Trading  TradingConfig  `json:"trading" yaml:"trading"`
	State    StateConfig    `json:"state" yaml:"state"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
	Server   ServerConfig   `json:"server" yaml:"server"`
}

// AccountConfig identifies the trading account and its collaborators.
type AccountConfig struct {
	Address   string `json:"address" yaml:"address"`
	CowAPIURL string `json:"cow_api_url" yaml:"cow_api_url"`
	RPCURL    string `json:"rpc_url" yaml:"rpc_url"`
	SignerURL string `json:"signer_url" yaml:"signer_url"`
}

// PairConfig selects the traded pair by token symbol.
type PairConfig struct {
	Base  string `json:"base" yaml:"base"`
	Quote string `json:"quote" yaml:"quote"`
}

// FeedConfig tunes the price feed.
type FeedConfig struct {
	Stream          bool     `json:"stream" yaml:"stream"`
	StreamURL       string   `json:"stream_url,omitempty" yaml:"stream_url,omitempty"`
	StreamStaleness Duration `json:"stream_staleness,omitempty" yaml:"stream_staleness,omitempty"`
}

// DecisionConfig configures the AI decision backends.
type DecisionConfig struct {
	APIURL  string   `json:"api_url" yaml:"api_url"`
	APIKey  string   `json:"-" yaml:"-"` // from OPENROUTER_API_KEY
	Models  []string `json:"models" yaml:"models"`
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// TradingConfig holds the hard trading constraints and cycle cadence.
// Prices and sizes are denominated in the quote currency.
type TradingConfig struct {
	Interval           Duration `json:"interval" yaml:"interval"`
	MinProfitMargin    float64  `json:"min_profit_margin" yaml:"min_profit_margin"`
	MaxConcentration   float64  `json:"max_concentration" yaml:"max_concentration"`
	LowConcentration   float64  `json:"low_concentration" yaml:"low_concentration"`
	MinOrderSize       float64  `json:"min_order_size" yaml:"min_order_size"`
	FallbackMaxBuy     float64  `json:"fallback_max_buy" yaml:"fallback_max_buy"`
	FallbackFraction   float64  `json:"fallback_fraction" yaml:"fallback_fraction"`
	FallbackOffset     float64  `json:"fallback_offset" yaml:"fallback_offset"`
	DuplicateThreshold float64  `json:"duplicate_threshold" yaml:"duplicate_threshold"`
	MaxOrderDistance   float64  `json:"max_order_distance" yaml:"max_order_distance"`
	OrderValidity      Duration `json:"order_validity" yaml:"order_validity"`
}

// StateConfig locates the persisted state document.
type StateConfig struct {
	File string `json:"file" yaml:"file"`
}

// JournalConfig selects fill/decision journaling.
type JournalConfig struct {
	Type          string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	FillsFile     string `json:"fills_file,omitempty" yaml:"fills_file,omitempty"`
	DecisionsFile string `json:"decisions_file,omitempty" yaml:"decisions_file,omitempty"`
	DBPath        string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// TelegramConfig configures the optional notification sink.
type TelegramConfig struct {
	Token  string `json:"-" yaml:"-"` // from TELEGRAM_BOT_TOKEN
	ChatID string `json:"-" yaml:"-"` // from TELEGRAM_CHAT_ID
}

// ServerConfig configures the health/metrics HTTP server.
type ServerConfig struct {
	Port int `json:"port" yaml:"port"`
}

// LoadFromFile loads configuration from a file (YAML or JSON based on
// content), applies environment overrides and validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.FromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// FromEnv fills secrets and endpoint overrides from the environment. Secrets
// never live in the config file.
func (c *Config) FromEnv() {
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		c.Decision.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("SIGNER_URL"); v != "" {
		c.Account.SignerURL = v
	}
	if v := os.Getenv("RPC_URL"); v != "" {
		c.Account.RPCURL = v
	}
}

// Validate checks the configuration. A failure here is fatal at startup: the
// bot must never start a cycle with incomplete required settings.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Account.Address, "0x") || len(c.Account.Address) != 42 {
		return fmt.Errorf("account.address must be a 0x-prefixed 20-byte address")
	}
	if c.Account.CowAPIURL == "" {
		return fmt.Errorf("account.cow_api_url is required")
	}
	if c.Account.RPCURL == "" {
		return fmt.Errorf("account.rpc_url is required")
	}
	if c.Account.SignerURL == "" {
		return fmt.Errorf("account.signer_url is required (set SIGNER_URL)")
	}
	if _, err := market.NewPair(c.Pair.Base, c.Pair.Quote); err != nil {
		return err
	}
	if c.Decision.APIKey == "" {
		return fmt.Errorf("decision API key is required (set OPENROUTER_API_KEY)")
	}
	if len(c.Decision.Models) == 0 {
		return fmt.Errorf("decision.models must list at least one model")
	}
	if c.Trading.Interval <= 0 {
		return fmt.Errorf("trading.interval must be positive")
	}
	if c.Trading.MinProfitMargin < 0 {
		return fmt.Errorf("trading.min_profit_margin must be non-negative")
	}
	if c.Trading.MaxConcentration <= 0 || c.Trading.MaxConcentration > 1 {
		return fmt.Errorf("trading.max_concentration must be in (0,1]")
	}
	if c.Trading.LowConcentration < 0 || c.Trading.LowConcentration >= c.Trading.MaxConcentration {
		return fmt.Errorf("trading.low_concentration must be in [0, max_concentration)")
	}
	if c.Trading.MinOrderSize <= 0 {
		return fmt.Errorf("trading.min_order_size must be positive")
	}
	if c.Trading.DuplicateThreshold <= 0 {
		return fmt.Errorf("trading.duplicate_threshold must be positive")
	}
	if c.Trading.MaxOrderDistance <= 0 {
		return fmt.Errorf("trading.max_order_distance must be positive")
	}
	if c.Trading.OrderValidity <= 0 {
		return fmt.Errorf("trading.order_validity must be positive")
	}
	if c.State.File == "" {
		return fmt.Errorf("state.file is required")
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.FillsFile == "" || c.Journal.DecisionsFile == "" {
			return fmt.Errorf("journal fills_file and decisions_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port")
	}
	return nil
}

// SaveToFile writes the configuration as YAML. Secrets carry `yaml:"-"` tags
// and are never written.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Default returns a configuration with sensible defaults. Secrets and the
// account address still have to be supplied.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			CowAPIURL: "https://api.cow.fi/base/api/v1",
			RPCURL:    "https://mainnet.base.org",
		},
		Pair: PairConfig{Base: "WETH", Quote: "USDC"},
		Feed: FeedConfig{
			Stream:          false,
			StreamStaleness: Duration(30 * time.Second),
		},
		Decision: DecisionConfig{
			APIURL: "https://openrouter.ai/api/v1/chat/completions",
			Models: []string{
				"mistralai/mistral-7b-instruct",
				"meta-llama/llama-3.1-8b-instruct",
			},
			Timeout: Duration(15 * time.Second),
		},
		Trading: TradingConfig{
			Interval:           Duration(5 * time.Minute),
			MinProfitMargin:    50,
			MaxConcentration:   0.8,
			LowConcentration:   0.3,
			MinOrderSize:       100,
			FallbackMaxBuy:     500,
			FallbackFraction:   0.3,
			FallbackOffset:     50,
			DuplicateThreshold: 10,
			MaxOrderDistance:   200,
			OrderValidity:      Duration(24 * time.Hour),
		},
		State:   StateConfig{File: "./cowtrader-state.json"},
		Journal: JournalConfig{Type: "none"},
		Server:  ServerConfig{Port: 9130},
	}
}
