package cmd

import (
	"fmt"

	"github.com/rustyeddy/tradebook/auth"
	"github.com/rustyeddy/tradebook/config"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/ledger"
	"github.com/rustyeddy/tradebook/logging"
	"github.com/rustyeddy/tradebook/market"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	envFile  string
	dbPath   string
	logLevel string

	cfg    *config.Config
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tradebook",
	Short: "A personal trade ledger with realized P&L",
	Long: `Tradebook keeps a per-user journal of closed trades in SQLite.

It provides tools for:
  - Registering accounts with salted password hashes
  - Recording closed trades (instrument, direction, size, entry, exit, capital)
  - Listing history with realized and cumulative P&L
  - Exporting history to CSV
  - Serving the ledger over an HTTP API`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "path to SQLite ledger (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")
}

// setup resolves configuration in order: defaults, file, .env, environment,
// flags.
func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if dbPath != "" {
		c.Database.Path = dbPath
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	l, err := logging.New(logging.Options{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		Out:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	cfg = c
	logger = l
	return nil
}

func openStore() (*journal.SQLite, error) {
	opts := []journal.Option{
		journal.WithHasher(auth.NewBcrypt(cfg.Auth.BcryptCost)),
	}
	if cfg.Ledger.EnforceInstruments {
		opts = append(opts, journal.WithKnownInstruments(market.IsKnown))
	}

	store, err := journal.NewSQLite(cfg.Database.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	logger.WithField("path", cfg.Database.Path).Debug("ledger opened")
	return store, nil
}

func openLedger() (*ledger.Service, *journal.SQLite, error) {
	store, err := openStore()
	if err != nil {
		return nil, nil, err
	}

	ttl, err := cfg.Auth.ParseSessionTTL()
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	svc := ledger.New(store,
		ledger.WithLogger(logger),
		ledger.WithCurrency(cfg.Ledger.Currency),
		ledger.WithSessions(auth.NewSessions(ttl)),
	)
	return svc, store, nil
}
