package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"terminal-collector/internal/config"
	"terminal-collector/internal/observability"
	"terminal-collector/internal/storage/postgres"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "collector",
	Short: "Collects trade history and account state from trading terminals",
	Long: `Collector polls one or more trading terminals through the terminal bridge and
keeps a shared PostgreSQL database up to date:

  - historical deals (append-only, deduplicated by ticket)
  - strategies, auto-registered the first time a magic number is seen
  - account snapshots (balance, equity, margin) every poll
  - the current set of open positions per account

Configuration is read from --config (YAML, JSON or .env) and the environment.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML, JSON or .env)")
}

// loadConfig reads configuration and builds the logger for a subcommand.
func loadConfig(requireDatabase bool) (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(cfgFile, requireDatabase)
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	return cfg, observability.NewLogger("collector", cfg.LogLevel, cfg.LogFormat), nil
}

// openPool connects to the configured database.
func openPool(ctx context.Context, cfg config.Config) (*postgres.Pool, error) {
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return pool, nil
}
