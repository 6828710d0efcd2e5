// Package pnl derives realized and running profit/loss from ledger records.
// It is pure: no storage, no rounding, no state between calls.
package pnl

import (
	"github.com/rustyeddy/tradebook/journal"
	"github.com/shopspring/decimal"
)

// Realized returns the P&L of a closed trade:
//
//	delta = exit - entry (long) or entry - exit (short)
//	pnl   = delta * capital * sizePercent / 100
func Realized(t journal.TradeRecord) decimal.Decimal {
	sign := decimal.NewFromInt(int64(t.Direction.Sign()))
	delta := t.ExitPrice.Sub(t.EntryPrice).Mul(sign)
	return delta.Mul(Notional(t))
}

// Notional is the position size in account currency: capital * sizePercent/100.
func Notional(t journal.TradeRecord) decimal.Decimal {
	return t.Capital.Mul(t.SizePercent.Shift(-2))
}

// Cumulative returns the running sum of Realized over recs in the order
// given. The caller supplies insertion order for a history view.
func Cumulative(recs []journal.TradeRecord) []decimal.Decimal {
	out := make([]decimal.Decimal, len(recs))
	sum := decimal.Zero
	for i, r := range recs {
		sum = sum.Add(Realized(r))
		out[i] = sum
	}
	return out
}

// Row is one line of a P&L history.
type Row struct {
	journal.TradeRecord
	Realized   decimal.Decimal
	Cumulative decimal.Decimal
}

// Rows pairs each record with its realized and cumulative P&L.
func Rows(recs []journal.TradeRecord) []Row {
	rows := make([]Row, len(recs))
	sum := decimal.Zero
	for i, r := range recs {
		pl := Realized(r)
		sum = sum.Add(pl)
		rows[i] = Row{TradeRecord: r, Realized: pl, Cumulative: sum}
	}
	return rows
}
