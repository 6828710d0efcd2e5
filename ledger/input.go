package ledger

import (
	"strings"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/market"
	"github.com/shopspring/decimal"
)

// TradeForm is a trade as typed into a form or command line.
type TradeForm struct {
	Instrument  string
	Direction   string
	SizePercent string
	EntryPrice  string
	ExitPrice   string
	Capital     string
}

// Parse converts the form into a NewTrade. Unparsable values are reported
// as field errors; range checks are left to the store.
func (f TradeForm) Parse() (journal.NewTrade, error) {
	var nt journal.NewTrade

	dir, err := market.ParseDirection(f.Direction)
	if err != nil {
		return nt, &journal.FieldError{Field: "direction", Reason: "must be LONG or SHORT"}
	}

	nums := []struct {
		field string
		raw   string
		dst   *decimal.Decimal
	}{
		{"size_percent", f.SizePercent, &nt.SizePercent},
		{"entry_price", f.EntryPrice, &nt.EntryPrice},
		{"exit_price", f.ExitPrice, &nt.ExitPrice},
		{"capital", f.Capital, &nt.Capital},
	}
	for _, n := range nums {
		v, err := decimal.NewFromString(strings.TrimSpace(n.raw))
		if err != nil {
			return nt, &journal.FieldError{Field: n.field, Reason: "is not a number"}
		}
		*n.dst = v
	}

	nt.Instrument = f.Instrument
	nt.Direction = dir
	return nt, nil
}
