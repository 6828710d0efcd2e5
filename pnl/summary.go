package pnl

import (
	"github.com/rustyeddy/tradebook/journal"
	"github.com/shopspring/decimal"
)

// Summary aggregates a trade history.
type Summary struct {
	Trades    int
	Wins      int
	Losses    int
	Breakeven int

	GrossProfit decimal.Decimal
	GrossLoss   decimal.Decimal // absolute value
	NetPL       decimal.Decimal

	// WinRate is Wins/Trades in [0, 1]; zero with no trades.
	WinRate decimal.Decimal

	// ProfitFactor is GrossProfit/GrossLoss; zero when there are no losses.
	ProfitFactor decimal.Decimal

	Best  decimal.Decimal
	Worst decimal.Decimal
}

func Summarize(recs []journal.TradeRecord) Summary {
	var s Summary
	for i, r := range recs {
		pl := Realized(r)
		s.Trades++
		s.NetPL = s.NetPL.Add(pl)

		switch pl.Sign() {
		case 1:
			s.Wins++
			s.GrossProfit = s.GrossProfit.Add(pl)
		case -1:
			s.Losses++
			s.GrossLoss = s.GrossLoss.Add(pl.Abs())
		default:
			s.Breakeven++
		}

		if i == 0 || pl.GreaterThan(s.Best) {
			s.Best = pl
		}
		if i == 0 || pl.LessThan(s.Worst) {
			s.Worst = pl
		}
	}

	if s.Trades > 0 {
		s.WinRate = decimal.NewFromInt(int64(s.Wins)).Div(decimal.NewFromInt(int64(s.Trades)))
	}
	if s.GrossLoss.IsPositive() {
		s.ProfitFactor = s.GrossProfit.Div(s.GrossLoss)
	}
	return s
}
