package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"terminal-collector/internal/storage/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Apply the embedded schema migrations to DATABASE_URL. Migrations are
idempotent and safe to run against an existing database. When clickhouse_dsn
is set the snapshot mirror schema is applied too.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(true)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		return err
	}
	for _, f := range applied {
		fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", f)
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
		conn.Close()
		fmt.Fprintln(cmd.OutOrStdout(), "applied clickhouse snapshot mirror schema")
	}

	log.Info().Int("files", len(applied)).Msg("schema up to date")
	return nil
}
