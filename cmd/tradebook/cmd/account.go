package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage ledger accounts",
	Long: `Register accounts and check credentials.

Passwords not given as flags are read from stdin, one per line.

Examples:
  tradebook account register alice
  printf 'secret\nsecret\n' | tradebook account register alice
  tradebook account login alice
  tradebook account info alice`,
}

var accountRegisterCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Create a new account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountRegister,
}

var accountLoginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Check a username and password",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountLogin,
}

var accountInfoCmd = &cobra.Command{
	Use:   "info <username>",
	Short: "Show whether an account exists and how many trades it holds",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountInfo,
}

var (
	accountPassword string
	accountConfirm  string
)

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountRegisterCmd)
	accountCmd.AddCommand(accountLoginCmd)
	accountCmd.AddCommand(accountInfoCmd)

	accountCmd.PersistentFlags().StringVarP(&accountPassword, "password", "p", "", "password (read from stdin when empty)")
	accountRegisterCmd.Flags().StringVar(&accountConfirm, "confirm", "", "password confirmation (read from stdin when empty)")
}

func runAccountRegister(cmd *cobra.Command, args []string) error {
	in := bufio.NewReader(cmd.InOrStdin())
	password, err := flagOrLine(in, accountPassword)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	confirm, err := flagOrLine(in, accountConfirm)
	if err != nil {
		return fmt.Errorf("read confirmation: %w", err)
	}

	svc, store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	username := journal.NormalizeUsername(args[0])
	if err := svc.RegisterAccount(cmd.Context(), username, password, confirm); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Registered account: %s\n", username)
	return nil
}

func runAccountLogin(cmd *cobra.Command, args []string) error {
	password, err := flagOrLine(bufio.NewReader(cmd.InOrStdin()), accountPassword)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	svc, store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := svc.Login(cmd.Context(), args[0], password)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Credentials valid for %s\n", sess.Username)
	return nil
}

func runAccountInfo(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	username := journal.NormalizeUsername(args[0])
	ok, err := store.AccountExists(cmd.Context(), username)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no account named %q", username)
	}
	n, err := store.CountTrades(cmd.Context(), username)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d trades\n", username, n)
	return nil
}

// flagOrLine returns v, or the next line of in when v is empty.
func flagOrLine(in *bufio.Reader, v string) (string, error) {
	if v != "" {
		return v, nil
	}
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
