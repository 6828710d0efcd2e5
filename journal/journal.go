// journal/journal.go
package journal

import (
	"context"

	"github.com/rustyeddy/tradebook/market"
	"github.com/shopspring/decimal"
)

// Account is a registered user. The raw password is never kept.
type Account struct {
	Username       string
	CredentialHash string
}

// TradeRecord is a closed trade as stored in the ledger. Records are
// immutable once written; ID is assigned by the store and orders history.
type TradeRecord struct {
	ID          int64
	Owner       string
	Instrument  string
	Direction   market.Direction
	SizePercent decimal.Decimal
	EntryPrice  decimal.Decimal
	ExitPrice   decimal.Decimal
	Capital     decimal.Decimal
}

// NewTrade is a candidate record submitted for insertion.
type NewTrade struct {
	Owner       string
	Instrument  string
	Direction   market.Direction
	SizePercent decimal.Decimal
	EntryPrice  decimal.Decimal
	ExitPrice   decimal.Decimal
	Capital     decimal.Decimal
}

// Store persists accounts and trades and rejects invalid ones.
type Store interface {
	RegisterAccount(ctx context.Context, username, rawPassword string) error
	Authenticate(ctx context.Context, username, rawPassword string) (bool, error)
	RecordTrade(ctx context.Context, t NewTrade) (int64, error)
	ListTrades(ctx context.Context, owner string) ([]TradeRecord, error)
	GetTrade(ctx context.Context, id int64) (TradeRecord, error)
	Close() error
}
