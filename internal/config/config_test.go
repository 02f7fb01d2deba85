package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/execution"
	"holo-reversal-lab/internal/strategy"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, domain.DefaultStrategyConfig(), cfg.Strategy)
	assert.True(t, cfg.Storage.UseMemory)
	assert.Equal(t, ":8080", cfg.Live.HTTPAddr)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, `
symbol: IF2501
strategy:
  fixed_size: 2
  signal_window: 30
  day_start_hour: 21
  price_tick: 0.2
  be1_points: 3
  be5_points: 8
  enable_trailing: false
  trailing_step: 0
  timezone: Asia/Shanghai
backtest:
  scenario: slow
  scenarios:
    - scenario_id: slow
      delay_ms: 2000
      slippage_ticks: 2
      commission_rate: 0.0001
  fill_mode: next_event
  from: "2025-01-02T00:00:00Z"
  to: "2025-01-03T00:00:00Z"
  snapshot_every: 100
live:
  reconnect_delay: 3s
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "IF2501", cfg.Symbol)
	assert.Equal(t, 2.0, cfg.Strategy.FixedSize)
	assert.Equal(t, 21, cfg.Strategy.DayStartHour)
	assert.False(t, cfg.Strategy.EnableTrailing)
	assert.Equal(t, "Asia/Shanghai", cfg.Strategy.Timezone)
	assert.Equal(t, 3*time.Second, cfg.Live.ReconnectDelay)
	assert.Equal(t, "debug", cfg.Logging.Level)

	sc, err := cfg.Scenario()
	require.NoError(t, err)
	assert.Equal(t, int64(2000), sc.DelayMs)
	assert.Equal(t, 2, sc.SlippageTicks)

	from, to, err := cfg.Range()
	require.NoError(t, err)
	assert.Equal(t, int64(1735776000000), from)
	assert.Equal(t, int64(1735862400000), to)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeFile(t, "strategy:\n  be1_points: 7\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Strategy.BE1Points)
	assert.Equal(t, 15, cfg.Strategy.SignalWindow)
	assert.Equal(t, 0.01, cfg.Strategy.PriceTick)
	assert.True(t, cfg.Strategy.EnableTrailing)
}

func TestLoad_UnknownField(t *testing.T) {
	path := writeFile(t, "strategy:\n  be2_points: 7\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"price tick", func(c *Config) { c.Strategy.PriceTick = 0 }, strategy.ErrInvalidPriceTick},
		{"fixed size", func(c *Config) { c.Strategy.FixedSize = -1 }, strategy.ErrInvalidFixedSize},
		{"day start", func(c *Config) { c.Strategy.DayStartHour = 24 }, strategy.ErrInvalidDayStartHour},
		{"breakeven", func(c *Config) { c.Strategy.BE5Points = -1 }, strategy.ErrInvalidBreakeven},
		{"trailing", func(c *Config) { c.Strategy.TrailingStep = -5 }, strategy.ErrInvalidTrailingStep},
		{"scenario", func(c *Config) { c.Backtest.Scenario = "nope" }, ErrInvalidScenario},
		{"fill mode", func(c *Config) { c.Live.FillMode = "later" }, execution.ErrInvalidFillMode},
		{"snapshots", func(c *Config) { c.Backtest.SnapshotEvery = -1 }, ErrInvalidSnapshots},
		{"storage", func(c *Config) { c.Storage.UseMemory = false; c.Storage.PostgresDSN = "postgres://x" }, ErrInvalidStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "loud"
	assert.Error(t, cfg.Validate())
}

func TestValidate_BadRange(t *testing.T) {
	cfg := Default()
	cfg.Backtest.From = "2025-01-03T00:00:00Z"
	cfg.Backtest.To = "2025-01-02T00:00:00Z"
	assert.Error(t, cfg.Validate())

	cfg.Backtest.From = "yesterday"
	assert.Error(t, cfg.Validate())
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(lookupFrom(map[string]string{
		EnvPostgresDSN:   "postgres://localhost/holo",
		EnvClickHouseDSN: "clickhouse://localhost:9000/holo",
		EnvLogLevel:      "warn",
		EnvFeedURL:       "ws://feed/ws",
		EnvHTTPAddr:      ":9090",
		EnvSymbol:        "IC2501",
	}))

	assert.False(t, cfg.Storage.UseMemory)
	assert.Equal(t, "postgres://localhost/holo", cfg.Storage.PostgresDSN)
	assert.Equal(t, "clickhouse://localhost:9000/holo", cfg.Storage.ClickHouseDSN)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "ws://feed/ws", cfg.Live.FeedURL)
	assert.Equal(t, ":9090", cfg.Live.HTTPAddr)
	assert.Equal(t, "IC2501", cfg.Symbol)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnv_EmptyValuesIgnored(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(lookupFrom(map[string]string{EnvPostgresDSN: "", EnvLogLevel: ""}))

	assert.True(t, cfg.Storage.UseMemory)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestScenarioByID_Predefined(t *testing.T) {
	cfg := Default()

	sc, err := cfg.ScenarioByID(domain.ScenarioPessimistic)
	require.NoError(t, err)
	assert.Equal(t, domain.ScenarioConfigPessimistic, sc)

	sc, err = cfg.ScenarioByID("")
	require.NoError(t, err)
	assert.Equal(t, domain.ScenarioConfigOptimistic, sc)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(`
# comment
HOLO_TEST_A=alpha
export HOLO_TEST_B="beta"
HOLO_TEST_C=from-file
not a pair
`), 0o644))

	t.Setenv("HOLO_TEST_C", "from-env")
	t.Cleanup(func() {
		os.Unsetenv("HOLO_TEST_A")
		os.Unsetenv("HOLO_TEST_B")
	})

	LoadEnvFile(path)

	assert.Equal(t, "alpha", os.Getenv("HOLO_TEST_A"))
	assert.Equal(t, "beta", os.Getenv("HOLO_TEST_B"))
	assert.Equal(t, "from-env", os.Getenv("HOLO_TEST_C"))
}
