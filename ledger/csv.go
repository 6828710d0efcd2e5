package ledger

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rustyeddy/tradebook/pnl"
)

// ExportFilename is the suggested download name.
const ExportFilename = "trade_history.csv"

var csvHeader = []string{
	"id",
	"instrument",
	"direction",
	"size_percent",
	"entry_price",
	"exit_price",
	"capital",
	"realized_pnl",
	"cumulative_pnl",
}

// WriteCSV writes a header row followed by one row per trade. Decimals are
// written at full precision.
func WriteCSV(w io.Writer, rows []pnl.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		err := cw.Write([]string{
			strconv.FormatInt(r.ID, 10),
			r.Instrument,
			string(r.Direction),
			r.SizePercent.String(),
			r.EntryPrice.String(),
			r.ExitPrice.String(),
			r.Capital.String(),
			r.Realized.String(),
			r.Cumulative.String(),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
