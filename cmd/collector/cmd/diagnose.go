package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	pgstore "terminal-collector/internal/storage/postgres"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Check database connectivity and schema",
	Long: `Connect to DATABASE_URL and compare information_schema against the tables
and columns the collector writes. Exits non-zero when anything is missing;
run "collector migrate" to fix a missing schema.`,
	RunE: runDiagnose,
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(true)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	pool, err := openPool(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	fmt.Fprintln(out, "database: connected")

	issues, err := pgstore.CheckSchema(cmd.Context(), pool)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		fmt.Fprintln(out, "schema: ok")
		return nil
	}

	for _, issue := range issues {
		fmt.Fprintf(out, "schema: %s\n", issue)
	}
	return fmt.Errorf("%d schema problem(s) found", len(issues))
}
