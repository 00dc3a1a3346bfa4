package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
market:
  symbols: ["btc/usdt", "ETHUSDT"]
`

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", minimalConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Market.Symbols)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "paper", cfg.Trading.Mode)
	assert.Equal(t, 1000.0, cfg.Trading.DefaultPositionUSD)
	assert.Equal(t, -2000.0, cfg.Risk.DailyLossFloorUSD)
	assert.Equal(t, ":8085", cfg.Ops.HTTPAddr)
	assert.Equal(t, "1m", cfg.Market.HistoryInterval)
}

func TestLoadMergesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "secrets.yaml", `
binance:
  api_key: key-from-secrets
  api_secret: secret-from-secrets
`)
	path := writeConfig(t, dir, "config.yaml", `
include:
  - secrets.yaml
market:
  symbols: ["BTCUSDT"]
binance:
  rest_base_url: https://testnet.example
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// The including file wins on overlap; the include fills the rest.
	assert.Equal(t, "https://testnet.example", cfg.Binance.RESTBaseURL)
	assert.Equal(t, "key-from-secrets", cfg.Binance.APIKey)
	assert.Equal(t, "secret-from-secrets", cfg.Binance.APISecret)
}

func TestLoadMissingIncludeFails(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
include: [absent.yaml]
market:
  symbols: ["BTCUSDT"]
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidation(t *testing.T) {
	t.Run("symbols required", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "config.yaml", "app:\n  env: dev\n")
		_, err := Load(path)
		assert.ErrorContains(t, err, "symbols")
	})

	t.Run("bad trading mode", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "config.yaml", minimalConfig+`
trading:
  mode: dry-run
`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "trading.mode")
	})

	t.Run("live mode requires credentials", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "config.yaml", minimalConfig+`
trading:
  mode: live
ops:
  emergency_auth_code: shutdown-now
`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "api_key")
	})

	t.Run("telegram enabled requires token", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "config.yaml", minimalConfig+`
notify:
  telegram:
    enabled: true
`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "telegram")
	})
}
