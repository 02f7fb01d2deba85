// Package config loads the YAML configuration shared by the commands.
//
// Values are resolved in order: defaults, YAML file, environment (HOLO_*).
// A .env file in the working directory is loaded first without overriding
// variables that are already set.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/execution"
	"holo-reversal-lab/internal/logging"
	"holo-reversal-lab/internal/strategy"
)

// Environment variable names.
const (
	EnvPostgresDSN   = "HOLO_POSTGRES_DSN"
	EnvClickHouseDSN = "HOLO_CLICKHOUSE_DSN"
	EnvLogLevel      = "HOLO_LOG_LEVEL"
	EnvLogFormat     = "HOLO_LOG_FORMAT"
	EnvFeedURL       = "HOLO_FEED_URL"
	EnvHTTPAddr      = "HOLO_HTTP_ADDR"
	EnvSymbol        = "HOLO_SYMBOL"
)

// Validation errors
var (
	ErrMissingSymbol    = errors.New("symbol is required")
	ErrInvalidScenario  = errors.New("unknown scenario")
	ErrInvalidStorage   = errors.New("storage requires both postgres and clickhouse DSNs unless use_memory is set")
	ErrInvalidSnapshots = errors.New("snapshot_every must not be negative")
)

// Config is the root configuration document.
type Config struct {
	Symbol   string                `yaml:"symbol"`
	Strategy domain.StrategyConfig `yaml:"strategy"`
	Backtest BacktestConfig        `yaml:"backtest"`
	Storage  StorageConfig         `yaml:"storage"`
	Live     LiveConfig            `yaml:"live"`
	Logging  LoggingConfig         `yaml:"logging"`
}

// BacktestConfig selects the execution scenario and data range.
type BacktestConfig struct {
	Scenario string `yaml:"scenario"`
	// Scenarios overrides or adds scenario presets by ID.
	Scenarios     []domain.ScenarioConfig `yaml:"scenarios"`
	FillMode      string                  `yaml:"fill_mode"`
	From          string                  `yaml:"from"` // RFC3339, empty = unbounded
	To            string                  `yaml:"to"`
	SnapshotEvery int                     `yaml:"snapshot_every"`
}

// StorageConfig selects the store implementations.
type StorageConfig struct {
	UseMemory     bool          `yaml:"use_memory"`
	PostgresDSN   string        `yaml:"postgres_dsn"`
	ClickHouseDSN string        `yaml:"clickhouse_dsn"`
	MaxConns      int32         `yaml:"max_conns"`
	ConnLifetime  time.Duration `yaml:"conn_lifetime"`
}

// LiveConfig configures the live runner.
type LiveConfig struct {
	FeedURL        string        `yaml:"feed_url"`
	HTTPAddr       string        `yaml:"http_addr"`
	BarsFromTicks  bool          `yaml:"bars_from_ticks"`
	SnapshotEvery  int           `yaml:"snapshot_every"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	FillMode       string        `yaml:"fill_mode"`
}

// LoggingConfig configures the logrus logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Strategy: domain.DefaultStrategyConfig(),
		Backtest: BacktestConfig{
			Scenario: domain.ScenarioOptimistic,
			FillMode: string(execution.FillImmediate),
		},
		Storage: StorageConfig{
			UseMemory: true,
			MaxConns:  10,
		},
		Live: LiveConfig{
			HTTPAddr:       ":8080",
			SnapshotEvery:  60,
			ReconnectDelay: time.Second,
			FillMode:       string(execution.FillNextEvent),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
	}
}

// Load reads path (optional) over the defaults and applies environment
// overrides. The result is validated.
func Load(path string) (*Config, error) {
	LoadEnvFile(".env")

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.Decode(data); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode merges a YAML document into cfg. Unknown fields are rejected.
func (c *Config) Decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// ApplyEnv overrides values from the environment. lookup is os.LookupEnv
// outside tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set(EnvSymbol, &c.Symbol)
	set(EnvLogLevel, &c.Logging.Level)
	set(EnvLogFormat, &c.Logging.Format)
	set(EnvFeedURL, &c.Live.FeedURL)
	set(EnvHTTPAddr, &c.Live.HTTPAddr)

	// A DSN in the environment switches to the database stores.
	if v, ok := lookup(EnvPostgresDSN); ok && v != "" {
		c.Storage.PostgresDSN = v
		c.Storage.UseMemory = false
	}
	if v, ok := lookup(EnvClickHouseDSN); ok && v != "" {
		c.Storage.ClickHouseDSN = v
		c.Storage.UseMemory = false
	}
}

// Validate checks the configuration before anything is started.
func (c *Config) Validate() error {
	if err := strategy.ValidateConfig(c.Strategy); err != nil {
		return err
	}
	if _, err := c.Scenario(); err != nil {
		return err
	}
	if _, err := execution.ParseFillMode(c.Backtest.FillMode); err != nil {
		return err
	}
	if _, err := execution.ParseFillMode(c.Live.FillMode); err != nil {
		return err
	}
	if _, _, err := c.Range(); err != nil {
		return err
	}
	if c.Backtest.SnapshotEvery < 0 || c.Live.SnapshotEvery < 0 {
		return ErrInvalidSnapshots
	}
	if !c.Storage.UseMemory && (c.Storage.PostgresDSN == "" || c.Storage.ClickHouseDSN == "") {
		return ErrInvalidStorage
	}
	if _, err := logging.New(c.Logging.Level, c.Logging.Format); err != nil {
		return err
	}
	return nil
}

// Scenario resolves the configured backtest scenario. Configured presets
// take precedence over the built-in ones.
func (c *Config) Scenario() (domain.ScenarioConfig, error) {
	return c.ScenarioByID(c.Backtest.Scenario)
}

// ScenarioByID resolves a scenario by ID.
func (c *Config) ScenarioByID(id string) (domain.ScenarioConfig, error) {
	if id == "" {
		id = domain.ScenarioOptimistic
	}
	for _, sc := range c.Backtest.Scenarios {
		if sc.ScenarioID == id {
			return sc, nil
		}
	}
	if sc, ok := domain.ScenarioByID(id); ok {
		return sc, nil
	}
	return domain.ScenarioConfig{}, fmt.Errorf("%w: %q", ErrInvalidScenario, id)
}

// ScenarioConfigs returns the configured presets keyed by ID.
func (c *Config) ScenarioConfigs() map[string]domain.ScenarioConfig {
	out := make(map[string]domain.ScenarioConfig, len(c.Backtest.Scenarios))
	for _, sc := range c.Backtest.Scenarios {
		out[sc.ScenarioID] = sc
	}
	return out
}

// Range returns the backtest range in unix milliseconds. Both are zero when
// no range is configured.
func (c *Config) Range() (from, to int64, err error) {
	if from, err = parseTime(c.Backtest.From); err != nil {
		return 0, 0, fmt.Errorf("backtest.from: %w", err)
	}
	if to, err = parseTime(c.Backtest.To); err != nil {
		return 0, 0, fmt.Errorf("backtest.to: %w", err)
	}
	if c.Backtest.To == "" && from != 0 {
		to = time.Now().UnixMilli()
	}
	if to < from {
		return 0, 0, fmt.Errorf("backtest range: to before from")
	}
	return from, to, nil
}

func parseTime(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}

// LoadEnvFile loads KEY=VALUE lines from path if it exists. Variables that
// are already set are left alone.
func LoadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, set := os.LookupEnv(key); !set {
			os.Setenv(key, value)
		}
	}
}
