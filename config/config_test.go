package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Account.Address = "0x1111111111111111111111111111111111111111"
	cfg.Account.SignerURL = "http://localhost:8300"
	cfg.Decision.APIKey = "sk-test"
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing address", func(c *Config) { c.Account.Address = "" }},
		{"short address", func(c *Config) { c.Account.Address = "0x1234" }},
		{"missing api url", func(c *Config) { c.Account.CowAPIURL = "" }},
		{"missing signer", func(c *Config) { c.Account.SignerURL = "" }},
		{"unknown token", func(c *Config) { c.Pair.Base = "DOGE" }},
		{"missing api key", func(c *Config) { c.Decision.APIKey = "" }},
		{"no models", func(c *Config) { c.Decision.Models = nil }},
		{"zero interval", func(c *Config) { c.Trading.Interval = 0 }},
		{"bad concentration", func(c *Config) { c.Trading.MaxConcentration = 1.5 }},
		{"low above max", func(c *Config) { c.Trading.LowConcentration = 0.9 }},
		{"zero min order", func(c *Config) { c.Trading.MinOrderSize = 0 }},
		{"zero dup threshold", func(c *Config) { c.Trading.DuplicateThreshold = 0 }},
		{"zero max distance", func(c *Config) { c.Trading.MaxOrderDistance = 0 }},
		{"missing state file", func(c *Config) { c.State.File = "" }},
		{"csv without files", func(c *Config) { c.Journal.Type = "csv" }},
		{"sqlite without path", func(c *Config) { c.Journal.Type = "sqlite" }},
		{"unknown journal", func(c *Config) { c.Journal.Type = "parquet" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromFile_YAML(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-env")
	t.Setenv("SIGNER_URL", "http://signer:8300")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
account:
  address: "0x1111111111111111111111111111111111111111"
pair:
  base: WETH
  quote: USDC
trading:
  interval: 10m
  min_profit_margin: 75
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, Duration(10*time.Minute), cfg.Trading.Interval)
	assert.InDelta(t, 75.0, cfg.Trading.MinProfitMargin, 1e-12)
	// Unset fields keep their defaults.
	assert.InDelta(t, 0.8, cfg.Trading.MaxConcentration, 1e-12)
	// Secrets come from the environment.
	assert.Equal(t, "sk-env", cfg.Decision.APIKey)
	assert.Equal(t, "http://signer:8300", cfg.Account.SignerURL)
}

func TestLoadFromFile_JSON(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-env")
	t.Setenv("SIGNER_URL", "http://signer:8300")

	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"account":{"address":"0x1111111111111111111111111111111111111111"}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", cfg.Account.Address)
}

func TestLoadFromFile_InvalidConfigRejected(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("SIGNER_URL", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`pair: {base: WETH, quote: USDC}`), 0o644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestSaveToFile_OmitsSecrets(t *testing.T) {
	cfg := validConfig()
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-test")
}
