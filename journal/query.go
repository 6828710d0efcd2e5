package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rustyeddy/tradebook/market"
)

const tradeColumns = `id, owner, instrument, direction, size_percent, entry_price, exit_price, capital`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(r rowScanner) (TradeRecord, error) {
	var (
		rec TradeRecord
		dir string
	)
	err := r.Scan(
		&rec.ID,
		&rec.Owner,
		&rec.Instrument,
		&dir,
		&rec.SizePercent,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.Capital,
	)
	rec.Direction = market.Direction(dir)
	return rec, err
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(ctx context.Context, id int64) (TradeRecord, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE id = ?`, id)

	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %d: %w", id, ErrTradeNotFound)
		}
		return TradeRecord{}, storageErr("get trade", err)
	}
	return rec, nil
}

// ListTrades returns every trade of owner in insertion order. No trades is
// an empty slice, not an error.
func (j *SQLite) ListTrades(ctx context.Context, owner string) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE owner = ?
		ORDER BY id ASC`, NormalizeUsername(owner))
	if err != nil {
		return nil, storageErr("list trades", err)
	}
	defer rows.Close()

	out := make([]TradeRecord, 0)
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, storageErr("list trades", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list trades", err)
	}
	return out, nil
}

// CountTrades returns how many trades owner has recorded.
func (j *SQLite) CountTrades(ctx context.Context, owner string) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM trades WHERE owner = ?`, NormalizeUsername(owner)).Scan(&n)
	if err != nil {
		return 0, storageErr("count trades", err)
	}
	return n, nil
}
