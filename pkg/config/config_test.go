package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `
environment: test
backend:
  type: clickhouse
exchange:
  symbols: [BTCUSDT, ETHUSDT]
`

func TestLoadAppliesEngineDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.Engine.Runner.Interval)
	assert.Equal(t, 730, cfg.Engine.Runner.PanelBars)
	assert.Equal(t, "1d", cfg.Engine.Runner.Timeframe)
	assert.Equal(t, 0.8, cfg.Engine.Pairs.MinCorrelation)
	assert.Equal(t, 0.10, cfg.Engine.Pairs.MaxAdfPValue)
	assert.Equal(t, 1e-4, cfg.Engine.Kalman.Delta)
	assert.Equal(t, 2.0, cfg.Engine.Signal.ZEntry)
	assert.Equal(t, 3.5, cfg.Engine.Signal.ZStop)
	assert.Equal(t, 0.15, cfg.Engine.Portfolio.TargetVol)
	assert.Equal(t, 365, cfg.Engine.Portfolio.TradingDaysPerYear)
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
engine:
  pairs:
    min_correlation: 0.9
    max_pairs: 5
  signal:
    z_entry: 1.5
`))
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.Engine.Pairs.MinCorrelation)
	assert.Equal(t, 5, cfg.Engine.Pairs.MaxPairs)
	assert.Equal(t, 1.5, cfg.Engine.Signal.ZEntry)
	// untouched sections still get defaults
	assert.Equal(t, 3.5, cfg.Engine.Signal.ZStop)
}

func TestValidateRejectsBadBackend(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
backend:
  type: postgres
exchange:
  symbols: [BTCUSDT, ETHUSDT]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.type")
}

func TestValidateRejectsSingleSymbol(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
backend:
  type: kafka
exchange:
  symbols: [BTCUSDT]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least two symbols")
}

func TestValidateRejectsInvertedHysteresis(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
engine:
  regime:
    kill_pvalue: 0.05
    revive_pvalue: 0.10
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kill_pvalue")
}

func TestValidateRejectsStopBelowEntry(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
engine:
  signal:
    z_entry: 2.0
    z_stop: 1.5
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "z_stop")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("EXCHANGE_API_KEY", "k-123")
	t.Setenv("SYMBOLS", "AAAUSDT,BBBUSDT,CCCUSDT")
	t.Setenv("KAFKA_BARS_TOPIC", "bars.override")

	cfg, err := LoadWithEnv(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "k-123", cfg.Exchange.APIKey)
	assert.Equal(t, []string{"AAAUSDT", "BBBUSDT", "CCCUSDT"}, cfg.Exchange.Symbols)
	assert.Equal(t, "bars.override", cfg.Kafka.BarsTopic)
}
