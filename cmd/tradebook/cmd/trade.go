package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/ledger"
	"github.com/rustyeddy/tradebook/pnl"
	"github.com/spf13/cobra"
)

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Record and query trades",
	Long: `Record closed trades and review the P&L history of an account.

Subcommands:
  add     - Record a closed trade (asks for the account password)
  list    - Show history with realized and cumulative P&L
  show    - Show one trade as an Org-mode entry
  summary - Show win rate, profit factor and net P&L
  export  - Write history as CSV

Examples:
  tradebook trade add -u alice -i EUR/USD --dir long --size 10 --entry 1.1 --exit 1.105 --capital 10000
  tradebook trade list -u alice
  tradebook trade export -u alice -o trade_history.csv`,
}

var tradeAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a closed trade",
	Args:  cobra.NoArgs,
	RunE:  runTradeAdd,
}

var tradeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trades with realized and cumulative P&L",
	Args:  cobra.NoArgs,
	RunE:  runTradeList,
}

var tradeShowCmd = &cobra.Command{
	Use:   "show <trade-id>",
	Short: "Show one trade as an Org-mode entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeShow,
}

var tradeSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize an account's history",
	Args:  cobra.NoArgs,
	RunE:  runTradeSummary,
}

var tradeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export history as CSV",
	Args:  cobra.NoArgs,
	RunE:  runTradeExport,
}

var (
	tradeUser     string
	tradePassword string
	tradeForm     ledger.TradeForm
	tradeOrg      bool
	tradeOutput   string
)

func init() {
	rootCmd.AddCommand(tradeCmd)
	tradeCmd.AddCommand(tradeAddCmd)
	tradeCmd.AddCommand(tradeListCmd)
	tradeCmd.AddCommand(tradeShowCmd)
	tradeCmd.AddCommand(tradeSummaryCmd)
	tradeCmd.AddCommand(tradeExportCmd)

	tradeCmd.PersistentFlags().StringVarP(&tradeUser, "user", "u", "", "account username (required)")
	tradeCmd.MarkPersistentFlagRequired("user")

	f := tradeAddCmd.Flags()
	f.StringVarP(&tradePassword, "password", "p", "", "account password (read from stdin when empty)")
	f.StringVarP(&tradeForm.Instrument, "instrument", "i", "", "instrument, e.g. EUR/USD")
	f.StringVar(&tradeForm.Direction, "dir", "", "LONG or SHORT")
	f.StringVar(&tradeForm.SizePercent, "size", "", "position size as percent of capital")
	f.StringVar(&tradeForm.EntryPrice, "entry", "", "entry price")
	f.StringVar(&tradeForm.ExitPrice, "exit", "", "exit price")
	f.StringVar(&tradeForm.Capital, "capital", "", "capital the size applies to")
	for _, name := range []string{"instrument", "dir", "size", "entry", "exit", "capital"} {
		tradeAddCmd.MarkFlagRequired(name)
	}

	tradeListCmd.Flags().BoolVar(&tradeOrg, "org", false, "print Org-mode entries instead of a table")
	tradeExportCmd.Flags().StringVarP(&tradeOutput, "output", "o", ledger.ExportFilename, "output file, - for stdout")
}

func runTradeAdd(cmd *cobra.Command, args []string) error {
	nt, err := tradeForm.Parse()
	if err != nil {
		return err
	}
	password, err := flagOrLine(bufio.NewReader(cmd.InOrStdin()), tradePassword)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	svc, store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := svc.Login(cmd.Context(), tradeUser, password)
	if err != nil {
		return err
	}
	defer svc.Logout(sess.Token)

	id, err := svc.RecordTrade(cmd.Context(), sess, nt)
	if err != nil {
		return err
	}

	rec, err := svc.Trade(cmd.Context(), sess.Username, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Recorded trade #%d (P&L %s)\n", id, ledger.FormatMoney(pnl.Realized(rec), svc.Currency()))
	return nil
}

func runTradeList(cmd *cobra.Command, args []string) error {
	svc, store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := svc.ListTradesWithPnL(cmd.Context(), tradeUser)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No trades recorded.")
		return nil
	}

	if tradeOrg {
		fmt.Fprint(cmd.OutOrStdout(), ledger.FormatTradesOrg(rows, svc.Currency()))
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), ledger.FormatTable(rows, svc.Currency()))
	return nil
}

func runTradeShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("trade id: %w", err)
	}

	svc, store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	// Cumulative P&L depends on everything before the trade.
	rows, err := svc.ListTradesWithPnL(cmd.Context(), tradeUser)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if r.ID == id {
			fmt.Fprint(cmd.OutOrStdout(), ledger.FormatTradeOrg(r, svc.Currency()))
			return nil
		}
	}
	return fmt.Errorf("trade %d: %w", id, journal.ErrTradeNotFound)
}

func runTradeSummary(cmd *cobra.Command, args []string) error {
	svc, store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	sum, err := svc.Summary(cmd.Context(), tradeUser)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), ledger.FormatSummary(sum, svc.Currency()))
	return nil
}

func runTradeExport(cmd *cobra.Command, args []string) error {
	svc, store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	var w io.Writer = cmd.OutOrStdout()
	if tradeOutput != "-" {
		f, err := os.Create(tradeOutput)
		if err != nil {
			return fmt.Errorf("create %s: %w", tradeOutput, err)
		}
		defer f.Close()
		w = f
	}

	if err := svc.ExportCSV(cmd.Context(), tradeUser, w); err != nil {
		return err
	}
	if tradeOutput != "-" {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported history to %s\n", tradeOutput)
	}
	return nil
}
