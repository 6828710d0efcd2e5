package ledger

import (
	"fmt"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/rustyeddy/tradebook/pnl"
	"github.com/shopspring/decimal"
)

// go-money counts minor units in an int64 and formats the absolute value,
// so MinInt64 is excluded.
var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = maxMinor.Neg()
)

// FormatMoney renders amount in currency using its minor-unit precision,
// e.g. "$5.00". Unknown codes, and amounts too large for go-money, fall
// back to fixed decimals and the code.
func FormatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(strings.ToUpper(currency))
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	if minor.GreaterThan(maxMinor) || minor.LessThan(minMinor) {
		return amount.StringFixed(int32(cur.Fraction)) + " " + cur.Code
	}
	return money.New(minor.IntPart(), cur.Code).Display()
}

// FormatTable renders a history as an aligned text table.
func FormatTable(rows []pnl.Row, currency string) string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ID\tPair\tDir\tSize %\tEntry\tExit\tCapital\tP&L\tCumulative\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.ID,
			r.Instrument,
			r.Direction,
			r.SizePercent.String(),
			r.EntryPrice.StringFixed(5),
			r.ExitPrice.StringFixed(5),
			FormatMoney(r.Capital, currency),
			FormatMoney(r.Realized, currency),
			FormatMoney(r.Cumulative, currency),
		)
	}
	tw.Flush()
	return b.String()
}

// FormatSummary renders the aggregate figures, one per line.
func FormatSummary(s pnl.Summary, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trades:        %d (%d wins, %d losses, %d flat)\n", s.Trades, s.Wins, s.Losses, s.Breakeven)
	fmt.Fprintf(&b, "Net P&L:       %s\n", FormatMoney(s.NetPL, currency))
	fmt.Fprintf(&b, "Gross profit:  %s\n", FormatMoney(s.GrossProfit, currency))
	fmt.Fprintf(&b, "Gross loss:    %s\n", FormatMoney(s.GrossLoss, currency))
	fmt.Fprintf(&b, "Win rate:      %s%%\n", s.WinRate.Shift(2).StringFixed(2))
	if s.ProfitFactor.IsZero() {
		fmt.Fprintf(&b, "Profit factor: -\n")
	} else {
		fmt.Fprintf(&b, "Profit factor: %s\n", s.ProfitFactor.StringFixed(2))
	}
	return b.String()
}
