package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/storage"
	pgstore "terminal-collector/internal/storage/postgres"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read or change settings stored in the database",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a stored setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configResetPathsCmd = &cobra.Command{
	Use:   "reset-paths [path...]",
	Short: "Replace the stored terminal path list",
	Long: `Replace the stored mt5_paths list. With no arguments the list is set from the
MT5_PATH fallback in the process configuration; an empty result makes the
collector use the default terminal.

Example:
  collector config reset-paths "C:\Program Files\MT5 A\terminal64.exe" "C:\Program Files\MT5 B\terminal64.exe"`,
	RunE: runConfigResetPaths,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd, configSetCmd, configResetPathsCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(true)
	if err != nil {
		return err
	}
	pool, err := openPool(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	entry, err := pgstore.NewConfigStore(pool).Get(cmd.Context(), args[0])
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s is not set", args[0])
	}
	if err != nil {
		return err
	}
	if entry.Value != nil {
		fmt.Fprintln(cmd.OutOrStdout(), *entry.Value)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(true)
	if err != nil {
		return err
	}
	pool, err := openPool(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pgstore.NewConfigStore(pool).Set(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}
	log.Info().Str("key", args[0]).Msg("setting stored")
	return nil
}

func runConfigResetPaths(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(true)
	if err != nil {
		return err
	}

	endpoints := cfg.FallbackEndpoints()
	if len(args) > 0 {
		endpoints = domain.ParseEndpoints(strings.Join(args, ";"))
	}
	paths := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		paths = append(paths, ep.Path)
	}
	value := strings.Join(paths, ";")

	pool, err := openPool(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pgstore.NewConfigStore(pool).Set(cmd.Context(), domain.ConfigKeyTerminalPaths, value); err != nil {
		return err
	}
	log.Info().Int("paths", len(paths)).Msg("terminal paths reset")
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %q\n", domain.ConfigKeyTerminalPaths, value)
	return nil
}
