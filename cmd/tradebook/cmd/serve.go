package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/tradebook/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ledger HTTP API",
	Long: `Start the HTTP API. The server stops gracefully on SIGINT or SIGTERM.

Examples:
  tradebook serve
  tradebook serve --addr 127.0.0.1:9000 --db ./ledger.sqlite`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	svc, store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := server.New(svc, server.Options{
		Addr:           addr,
		LoginRate:      cfg.Server.LoginRate,
		LoginBurst:     cfg.Server.LoginBurst,
		TrustedProxies: cfg.Server.TrustedProxies,
		Logger:         logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
