package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"terminal-collector/internal/collector"
	"terminal-collector/internal/config"
	"terminal-collector/internal/observability"
	"terminal-collector/internal/storage"
	chstore "terminal-collector/internal/storage/clickhouse"
	"terminal-collector/internal/storage/memory"
	"terminal-collector/internal/storage/migrations"
	pgstore "terminal-collector/internal/storage/postgres"
	"terminal-collector/internal/terminal"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the polling loop",
	Long: `Run the collector loop. Each cycle visits every configured terminal in turn,
syncs deals, records an account snapshot and replaces the open positions, then
sleeps for poll_interval. SIGINT or SIGTERM closes the active terminal session
and exits cleanly.

Example:
  collector run --config collector.yaml
  collector run --once`,
	RunE: runRun,
}

var (
	runOnce           bool
	runUseMemory      bool
	runSkipMigrations bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single cycle and exit")
	runCmd.Flags().BoolVar(&runUseMemory, "use-memory", false, "use in-memory storage instead of PostgreSQL")
	runCmd.Flags().BoolVar(&runSkipMigrations, "skip-migrations", false, "do not apply schema migrations at startup")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(!runUseMemory)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go handleSignals(cancel, log)

	metrics := observability.NewMetrics("")
	health := observability.NewHealthChecker()

	stores, cleanup, err := createStores(ctx, cfg, health, log)
	if err != nil {
		return err
	}
	defer cleanup()

	mirror, closeMirror := createMirror(ctx, cfg, health, log)
	defer closeMirror()

	bridge := terminal.NewBridgeClient(cfg.BridgeURL,
		terminal.WithTimeout(cfg.BridgeTimeout),
		terminal.WithMaxRetries(cfg.BridgeMaxRetries),
		terminal.WithCallObserver(func(method string, elapsed time.Duration) {
			metrics.ObserveBridgeCall(method, elapsed.Seconds())
		}),
	)

	loop := collector.New(collector.Options{
		Terminal:          bridge,
		Stores:            stores,
		Mirror:            mirror,
		FallbackEndpoints: cfg.FallbackEndpoints(),
		Interval:          cfg.PollInterval,
		Logger:            log,
		Metrics:           metrics,
	})
	health.SetStateFunc(func() string { return loop.State().String() })

	if cfg.MetricsAddr != "" {
		srv := observability.NewServer(cfg.MetricsAddr, metrics, health)
		go func() {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	if runOnce {
		report := loop.RunOnce(ctx)
		printReport(cmd, report)
		if n := report.Failures(); n > 0 {
			return fmt.Errorf("%d endpoint operation(s) failed", n)
		}
		return nil
	}

	return loop.Run(ctx)
}

// handleSignals cancels the loop on the first signal and forces exit on the second.
func handleSignals(cancel context.CancelFunc, log zerolog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("stopping collector")
	cancel()

	sig = <-sigCh
	log.Warn().Str("signal", sig.String()).Msg("second signal, forcing exit")
	os.Exit(1)
}

// createStores builds PostgreSQL stores (applying migrations) or in-memory stores.
func createStores(ctx context.Context, cfg config.Config, health *observability.HealthChecker, log zerolog.Logger) (storage.Stores, func(), error) {
	if runUseMemory {
		log.Warn().Msg("using in-memory storage, data is lost on exit")
		return memory.NewStores(), func() {}, nil
	}

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return storage.Stores{}, nil, err
	}

	if !runSkipMigrations {
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			pool.Close()
			return storage.Stores{}, nil, fmt.Errorf("migrate database: %w", err)
		}
		log.Info().Strs("files", applied).Msg("schema migrations applied")
	}

	health.AddCheck("postgres", func(ctx context.Context) error { return pool.Ping(ctx) })
	log.Info().Msg("database connected")
	return pgstore.NewStores(pool), pool.Close, nil
}

// createMirror connects the optional ClickHouse snapshot mirror.
// A mirror that cannot be reached is disabled rather than failing startup.
func createMirror(ctx context.Context, cfg config.Config, health *observability.HealthChecker, log zerolog.Logger) (storage.SnapshotMirror, func()) {
	if cfg.ClickhouseDSN == "" {
		return nil, func() {}
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		log.Warn().Err(err).Msg("snapshot mirror disabled")
		return nil, func() {}
	}

	health.AddCheck("clickhouse", func(ctx context.Context) error { return conn.Ping(ctx) })
	log.Info().Msg("snapshot mirror connected")
	return chstore.NewSnapshotMirror(conn), func() { conn.Close() }
}

func printReport(cmd *cobra.Command, report collector.CycleReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cycle %s (%s)\n", report.CycleID, report.Duration.Round(time.Millisecond))
	for _, ep := range report.Endpoints {
		fmt.Fprintf(out, "  %s account=%d deals=%d snapshot=%t positions=%d\n",
			ep.Endpoint, ep.AccountID, ep.DealsInserted, ep.SnapshotRecorded, ep.PositionsReplaced)
		for _, f := range ep.Failures {
			fmt.Fprintf(out, "    %s failed: %v\n", f.Op, f.Err)
		}
	}
}
