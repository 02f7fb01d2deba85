// Command holo runs the holo reversal strategy against stored, file based or
// live market data.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"holo-reversal-lab/internal/config"
	"holo-reversal-lab/internal/logging"
)

// Flags shared by all subcommands.
var (
	configPath    string
	symbol        string
	logLevel      string
	logFormat     string
	useMemory     bool
	postgresDSN   string
	clickhouseDSN string
	outputJSON    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "holo",
		Short:         "Intraday breakout-retest strategy lab",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVarP(&symbol, "symbol", "s", "", "Instrument symbol (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().BoolVar(&useMemory, "use-memory", false, "Use in-memory storage")
	rootCmd.PersistentFlags().StringVar(&postgresDSN, "postgres-dsn", "", "PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&clickhouseDSN, "clickhouse-dsn", "", "ClickHouse connection string")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output as JSON")

	rootCmd.AddCommand(backtestCmd())
	rootCmd.AddCommand(liveCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves defaults, config file, environment and flags, in
// that order.
func loadConfig() (*config.Config, error) {
	config.LoadEnvFile(".env")

	cfg := config.Default()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.Decode(data); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)

	if symbol != "" {
		cfg.Symbol = symbol
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if postgresDSN != "" {
		cfg.Storage.PostgresDSN = postgresDSN
		cfg.Storage.UseMemory = false
	}
	if clickhouseDSN != "" {
		cfg.Storage.ClickHouseDSN = clickhouseDSN
		cfg.Storage.UseMemory = false
	}
	if useMemory {
		cfg.Storage.UseMemory = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads the config and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, *logrus.Entry, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.WithField("cmd", cmd.Name()), nil
}

// requireSymbol fails when neither the config nor the flag names a symbol.
func requireSymbol(cfg *config.Config) error {
	if cfg.Symbol == "" {
		return config.ErrMissingSymbol
	}
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger logrus.FieldLogger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig.String()).Info("shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
