// Package ledger is the entry point a UI talks to: account registration,
// login, trade capture and the P&L history built from the journal store.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rustyeddy/tradebook/auth"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/logging"
	"github.com/rustyeddy/tradebook/pnl"
	"github.com/sirupsen/logrus"
)

var (
	ErrPasswordMismatch = &journal.FieldError{Field: "confirm", Reason: "does not match password"}

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("not logged in")
)

type Service struct {
	store    journal.Store
	sessions *auth.Sessions
	log      logrus.FieldLogger
	currency string
}

type Option func(*Service)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.log = l }
}

func WithSessions(sess *auth.Sessions) Option {
	return func(s *Service) { s.sessions = sess }
}

// WithCurrency sets the ISO code P&L is displayed in.
func WithCurrency(code string) Option {
	return func(s *Service) { s.currency = code }
}

func New(store journal.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		currency: "EUR",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.sessions == nil {
		s.sessions = auth.NewSessions(auth.DefaultSessionTTL)
	}
	return s
}

func (s *Service) Currency() string {
	return s.currency
}

// RegisterAccount checks the form in order (username, length, confirmation)
// before handing off to the store.
func (s *Service) RegisterAccount(ctx context.Context, username, password, confirm string) error {
	username = journal.NormalizeUsername(username)
	log := s.log.WithFields(logrus.Fields{"op": "register", "user": username})

	switch {
	case username == "":
		return journal.ErrEmptyUsername
	case len([]rune(password)) < journal.MinPasswordLen:
		return journal.ErrPasswordTooShort
	case password != confirm:
		return ErrPasswordMismatch
	}

	if err := s.store.RegisterAccount(ctx, username, password); err != nil {
		if errors.Is(err, journal.ErrStorage) {
			log.WithError(err).Error("account registration failed")
		} else {
			log.WithError(err).Info("account registration rejected")
		}
		return err
	}
	log.Info("account registered")
	return nil
}

// Authenticate never distinguishes an unknown user from a bad password.
func (s *Service) Authenticate(ctx context.Context, username, password string) (bool, error) {
	ok, err := s.store.Authenticate(ctx, username, password)
	if err != nil {
		s.log.WithError(err).WithField("op", "authenticate").Error("credential lookup failed")
		return false, err
	}
	return ok, nil
}

// Login authenticates and issues a session.
func (s *Service) Login(ctx context.Context, username, password string) (*auth.Session, error) {
	username = journal.NormalizeUsername(username)
	ok, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.WithFields(logrus.Fields{"op": "login", "user": username}).Warn("login failed")
		return nil, ErrInvalidCredentials
	}
	sess := s.sessions.Issue(username)
	s.log.WithFields(logrus.Fields{"op": "login", "user": username}).Info("logged in")
	return sess, nil
}

func (s *Service) Logout(token string) bool {
	return s.sessions.Revoke(token)
}

// Session resolves a token issued by Login.
func (s *Service) Session(token string) (*auth.Session, error) {
	sess, ok := s.sessions.Lookup(token)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return sess, nil
}

// RecordTrade stores t on behalf of the session's user. Any owner set on t
// is replaced.
func (s *Service) RecordTrade(ctx context.Context, sess *auth.Session, t journal.NewTrade) (int64, error) {
	if sess == nil || sess.Username == "" {
		return 0, ErrUnauthenticated
	}
	t.Owner = sess.Username
	return s.recordTrade(ctx, t)
}

func (s *Service) recordTrade(ctx context.Context, t journal.NewTrade) (int64, error) {
	log := s.log.WithFields(logrus.Fields{"op": "record_trade", "user": t.Owner})

	id, err := s.store.RecordTrade(ctx, t)
	if err != nil {
		if errors.Is(err, journal.ErrStorage) {
			log.WithError(err).Error("trade not recorded")
		} else {
			log.WithError(err).Info("trade rejected")
		}
		return 0, err
	}
	log.WithFields(logrus.Fields{
		"trade_id":   id,
		"instrument": t.Instrument,
		"direction":  t.Direction,
	}).Info("trade recorded")
	return id, nil
}

// ListTradesWithPnL returns owner's history with realized and cumulative
// P&L, oldest first.
func (s *Service) ListTradesWithPnL(ctx context.Context, owner string) ([]pnl.Row, error) {
	recs, err := s.store.ListTrades(ctx, owner)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"op": "list_trades", "user": owner}).Error("history unavailable")
		return nil, err
	}
	return pnl.Rows(recs), nil
}

func (s *Service) Summary(ctx context.Context, owner string) (pnl.Summary, error) {
	recs, err := s.store.ListTrades(ctx, owner)
	if err != nil {
		return pnl.Summary{}, err
	}
	return pnl.Summarize(recs), nil
}

// ExportCSV writes owner's history to w in the export layout.
func (s *Service) ExportCSV(ctx context.Context, owner string, w io.Writer) error {
	rows, err := s.ListTradesWithPnL(ctx, owner)
	if err != nil {
		return err
	}
	if err := WriteCSV(w, rows); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"op": "export", "user": owner, "rows": len(rows)}).Debug("history exported")
	return nil
}

// Trade returns one of owner's trades. Trades belonging to someone else are
// reported as not found.
func (s *Service) Trade(ctx context.Context, owner string, id int64) (journal.TradeRecord, error) {
	rec, err := s.store.GetTrade(ctx, id)
	if err != nil {
		return journal.TradeRecord{}, err
	}
	if rec.Owner != journal.NormalizeUsername(owner) {
		return journal.TradeRecord{}, fmt.Errorf("trade %d: %w", id, journal.ErrTradeNotFound)
	}
	return rec, nil
}

// SweepSessions drops expired sessions and returns how many were removed.
func (s *Service) SweepSessions() int {
	n := s.sessions.Sweep()
	if n > 0 {
		s.log.WithField("removed", n).Debug("expired sessions swept")
	}
	return n
}
