package cmd

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Maintain the ledger database",
	Long: `Create or maintain the SQLite ledger.

Subcommands:
  init         - Create the database and apply migrations
  reset-trades - Delete every trade of every account (keeps accounts)

Examples:
  tradebook db init --db ./tradebook.sqlite
  tradebook db reset-trades --yes`,
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database and apply migrations",
	Args:  cobra.NoArgs,
	RunE:  runDBInit,
}

var dbResetTradesCmd = &cobra.Command{
	Use:   "reset-trades",
	Short: "Delete all trades and restart IDs at 1",
	Args:  cobra.NoArgs,
	RunE:  runDBResetTrades,
}

var dbResetYes bool

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbResetTradesCmd)

	dbResetTradesCmd.Flags().BoolVar(&dbResetYes, "yes", false, "confirm deleting every trade")
}

func runDBInit(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	v, err := journal.SchemaVersion(cmd.Context(), store.DB())
	if err != nil {
		return fmt.Errorf("schema version: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Ledger ready: %s (schema v%d)\n", cfg.Database.Path, v)
	return nil
}

func runDBResetTrades(cmd *cobra.Command, args []string) error {
	if !dbResetYes {
		return errors.New("refusing to delete trades without --yes")
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.ResetTrades(cmd.Context()); err != nil {
		return err
	}
	logger.WithField("path", cfg.Database.Path).Warn("all trades deleted")
	fmt.Fprintln(cmd.OutOrStdout(), "✓ All trades deleted")
	return nil
}
