package journal

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/tradebook/auth"
)

const defaultDSNParams = "_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"

// SQLite is the ledger store backed by a single SQLite file. Writes are
// serialized by one lock; reads run concurrently.
type SQLite struct {
	db     *sql.DB
	wmu    sync.Mutex
	hasher auth.Hasher
	known  func(string) bool

	dummyOnce sync.Once
	dummy     string
}

type Option func(*SQLite)

// WithHasher replaces the default bcrypt hasher.
func WithHasher(h auth.Hasher) Option {
	return func(j *SQLite) { j.hasher = h }
}

// WithKnownInstruments rejects trades whose instrument fails known.
func WithKnownInstruments(known func(string) bool) Option {
	return func(j *SQLite) { j.known = known }
}

// NewSQLite opens (creating if needed) the database at path and applies
// pending migrations.
func NewSQLite(path string, opts ...Option) (*SQLite, error) {
	return OpenSQLite(context.Background(), path, opts...)
}

func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, storageErr("open", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storageErr("ping", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, storageErr("migrate", err)
	}

	j := &SQLite{
		db:     db,
		hasher: auth.NewBcrypt(0),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?" + defaultDSNParams
}

// DB exposes the handle for maintenance tooling.
func (j *SQLite) DB() *sql.DB {
	return j.db
}

func (j *SQLite) RegisterAccount(ctx context.Context, username, rawPassword string) error {
	username = NormalizeUsername(username)
	if err := validateAccount(username, rawPassword); err != nil {
		return err
	}

	hash, err := j.hasher.Hash(rawPassword)
	if err != nil {
		return &FieldError{Field: "password", Reason: err.Error()}
	}

	j.wmu.Lock()
	defer j.wmu.Unlock()

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO accounts (username, credential_hash)
		VALUES (?, ?)`, username, hash)
	if isUniqueViolation(err) {
		return ErrDuplicateUsername
	}
	return storageErr("register account", err)
}

// Authenticate reports whether the password matches the stored credential.
// An unknown user and a wrong password both yield false; the error is only
// set when storage fails.
func (j *SQLite) Authenticate(ctx context.Context, username, rawPassword string) (bool, error) {
	username = NormalizeUsername(username)

	var hash string
	err := j.db.QueryRowContext(ctx, `
		SELECT credential_hash FROM accounts WHERE username = ?`, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		// burn the same work as a real comparison
		j.hasher.Verify(j.dummyHash(), rawPassword)
		return false, nil
	}
	if err != nil {
		return false, storageErr("authenticate", err)
	}
	return j.hasher.Verify(hash, rawPassword), nil
}

func (j *SQLite) dummyHash() string {
	j.dummyOnce.Do(func() {
		j.dummy, _ = j.hasher.Hash("tradebook-no-such-user")
	})
	return j.dummy
}

// AccountExists is meant for operators, not for login flows.
func (j *SQLite) AccountExists(ctx context.Context, username string) (bool, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM accounts WHERE username = ?`, NormalizeUsername(username)).Scan(&n)
	if err != nil {
		return false, storageErr("account exists", err)
	}
	return n > 0, nil
}

// RecordTrade validates t and appends it, returning the assigned id.
func (j *SQLite) RecordTrade(ctx context.Context, t NewTrade) (int64, error) {
	t, err := t.Validate(j.known)
	if err != nil {
		return 0, err
	}

	j.wmu.Lock()
	defer j.wmu.Unlock()

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("record trade", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO trades
		(owner, instrument, direction, size_percent, entry_price, exit_price, capital)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Owner, t.Instrument, string(t.Direction),
		t.SizePercent, t.EntryPrice, t.ExitPrice, t.Capital,
	)
	if err != nil {
		return 0, storageErr("record trade", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("record trade", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, storageErr("record trade", err)
	}
	return id, nil
}

// ResetTrades deletes every trade and restarts the id sequence. Accounts
// are kept.
func (j *SQLite) ResetTrades(ctx context.Context) error {
	j.wmu.Lock()
	defer j.wmu.Unlock()

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("reset trades", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trades`); err != nil {
		return storageErr("reset trades", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'trades'`); err != nil {
		return storageErr("reset trades", err)
	}
	return storageErr("reset trades", tx.Commit())
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
