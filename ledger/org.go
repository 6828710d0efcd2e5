package ledger

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/tradebook/pnl"
)

// FormatTradeOrg renders a history row as an Org-mode block suitable for pasting into a journal.
// Structured facts go in a PROPERTIES drawer; the Review heading is left for notes.
func FormatTradeOrg(r pnl.Row, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Trade: %s %s (#%d)\n", r.Instrument, r.Direction, r.ID)
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %d\n", r.ID)
	fmt.Fprintf(&b, ":OWNER: %s\n", r.Owner)
	fmt.Fprintf(&b, ":INSTRUMENT: %s\n", r.Instrument)
	fmt.Fprintf(&b, ":DIRECTION: %s\n", r.Direction)
	fmt.Fprintf(&b, ":SIZE_PERCENT: %s\n", r.SizePercent.String())
	fmt.Fprintf(&b, ":ENTRY_PRICE: %s\n", r.EntryPrice.StringFixed(5))
	fmt.Fprintf(&b, ":EXIT_PRICE: %s\n", r.ExitPrice.StringFixed(5))
	fmt.Fprintf(&b, ":CAPITAL: %s\n", r.Capital.StringFixed(2))
	fmt.Fprintf(&b, ":REALIZED_PL: %s\n", r.Realized.StringFixed(2))
	fmt.Fprintf(&b, ":CUMULATIVE_PL: %s\n", r.Cumulative.StringFixed(2))
	fmt.Fprintf(&b, ":CURRENCY: %s\n", currency)
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Review\n- \n")
	return b.String()
}

// FormatTradesOrg renders multiple rows separated by blank lines.
func FormatTradesOrg(rows []pnl.Row, currency string) string {
	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatTradeOrg(r, currency))
	}
	return b.String()
}
