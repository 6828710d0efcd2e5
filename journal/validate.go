package journal

import (
	"strings"

	"github.com/rustyeddy/tradebook/market"
	"github.com/shopspring/decimal"
)

const (
	MinPasswordLen = 4

	// bcrypt ignores everything past 72 bytes.
	MaxPasswordBytes = 72
)

// NormalizeUsername trims surrounding whitespace.
func NormalizeUsername(s string) string {
	return strings.TrimSpace(s)
}

func validateAccount(username, password string) error {
	if username == "" {
		return ErrEmptyUsername
	}
	if len([]rune(password)) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordBytes {
		return &FieldError{Field: "password", Reason: "must be at most 72 bytes"}
	}
	return nil
}

// Validate checks a candidate trade and returns it normalized. known, when
// non-nil, restricts the instrument to an allow-list.
func (t NewTrade) Validate(known func(string) bool) (NewTrade, error) {
	t.Owner = NormalizeUsername(t.Owner)
	t.Instrument = market.NormalizeInstrument(t.Instrument)

	if t.Owner == "" {
		return t, &FieldError{Field: "owner", Reason: "must not be empty"}
	}
	if t.Instrument == "" {
		return t, &FieldError{Field: "instrument", Reason: "must not be empty"}
	}
	if known != nil && !known(t.Instrument) {
		return t, &FieldError{Field: "instrument", Reason: "is not a known instrument"}
	}
	if !t.Direction.Valid() {
		return t, &FieldError{Field: "direction", Reason: "must be LONG or SHORT"}
	}

	positive := []struct {
		field string
		v     decimal.Decimal
	}{
		{"size_percent", t.SizePercent},
		{"entry_price", t.EntryPrice},
		{"exit_price", t.ExitPrice},
		{"capital", t.Capital},
	}
	for _, p := range positive {
		if !p.v.IsPositive() {
			return t, &FieldError{Field: p.field, Reason: "must be greater than 0"}
		}
	}
	return t, nil
}
