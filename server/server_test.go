package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rustyeddy/tradebook/auth"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/ledger"
	"github.com/rustyeddy/tradebook/pkg/id"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type harness struct {
	t    *testing.T
	h    http.Handler
	hook *test.Hook
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	store, err := journal.NewSQLite(
		filepath.Join(t.TempDir(), "api.db"),
		journal.WithHasher(auth.NewBcrypt(bcrypt.MinCost)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	opts.Logger = logger

	svc := ledger.New(store, ledger.WithLogger(logger), ledger.WithCurrency("USD"))
	return &harness{t: t, h: New(svc, opts).Handler(), hook: hook}
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (h *harness) signup(user, pass string) string {
	h.t.Helper()

	w := h.do(http.MethodPost, "/v1/accounts", "", gin.H{"username": user, "password": pass, "confirm": pass})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do(http.MethodPost, "/v1/sessions", "", gin.H{"username": user, "password": pass})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	tok, _ := decode(h.t, w)["token"].(string)
	require.NotEmpty(h.t, tok)
	return tok
}

func TestRegisterErrors(t *testing.T) {
	t.Parallel()
	h := newHarness(t, Options{})

	tests := []struct {
		name   string
		body   gin.H
		status int
		field  string
	}{
		{"empty username", gin.H{"username": "", "password": "secret", "confirm": "secret"}, http.StatusBadRequest, "username"},
		{"short password", gin.H{"username": "bob", "password": "abc", "confirm": "abc"}, http.StatusBadRequest, "password"},
		{"mismatch", gin.H{"username": "bob", "password": "secret1", "confirm": "secret2"}, http.StatusBadRequest, "confirm"},
	}
	for _, tt := range tests {
		w := h.do(http.MethodPost, "/v1/accounts", "", tt.body)
		assert.Equal(t, tt.status, w.Code, tt.name)
		assert.Equal(t, tt.field, decode(t, w)["field"], tt.name)
	}

	w := h.do(http.MethodPost, "/v1/accounts", "", gin.H{"username": "alice", "password": "secret1", "confirm": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = h.do(http.MethodPost, "/v1/accounts", "", gin.H{"username": "alice", "password": "secret2", "confirm": "secret2"})
	assert.Equal(t, http.StatusConflict, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/accounts", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginFailuresLookAlike(t *testing.T) {
	t.Parallel()
	h := newHarness(t, Options{LoginRate: 100, LoginBurst: 100})
	h.signup("alice", "secret1")

	wrong := h.do(http.MethodPost, "/v1/sessions", "", gin.H{"username": "alice", "password": "nope"})
	unknown := h.do(http.MethodPost, "/v1/sessions", "", gin.H{"username": "ghost", "password": "nope"})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestLoginRateLimited(t *testing.T) {
	t.Parallel()
	h := newHarness(t, Options{LoginRate: 0.001, LoginBurst: 2})

	for i := 0; i < 2; i++ {
		w := h.do(http.MethodPost, "/v1/sessions", "", gin.H{"username": "x", "password": "y"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := h.do(http.MethodPost, "/v1/sessions", "", gin.H{"username": "x", "password": "y"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func loginFrom(h http.Handler, forwardedFor string) int {
	body := strings.NewReader(`{"username":"x","password":"y"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code
}

func TestLoginRateLimitIgnoresForwardedFor(t *testing.T) {
	t.Parallel()
	h := newHarness(t, Options{LoginRate: 0.001, LoginBurst: 2})

	assert.Equal(t, http.StatusUnauthorized, loginFrom(h.h, "203.0.113.1"))
	assert.Equal(t, http.StatusUnauthorized, loginFrom(h.h, "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(h.h, "203.0.113.3"))
}

func TestLoginRateLimitTrustedProxy(t *testing.T) {
	t.Parallel()
	// httptest requests come from 192.0.2.1.
	h := newHarness(t, Options{LoginRate: 0.001, LoginBurst: 1, TrustedProxies: []string{"192.0.2.0/24"}})

	assert.Equal(t, http.StatusUnauthorized, loginFrom(h.h, "203.0.113.1"))
	assert.Equal(t, http.StatusUnauthorized, loginFrom(h.h, "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(h.h, "203.0.113.1"))
}

func TestBadTrustedProxiesFallBack(t *testing.T) {
	t.Parallel()
	h := newHarness(t, Options{LoginRate: 0.001, LoginBurst: 1, TrustedProxies: []string{"not-an-ip"}})

	assert.Equal(t, http.StatusUnauthorized, loginFrom(h.h, "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(h.h, "203.0.113.2"))

	var warned bool
	for _, e := range h.hook.AllEntries() {
		if e.Message == "ignoring trusted proxies" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestTradesRequireSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t, Options{})

	for _, path := range []string{"/v1/trades", "/v1/trades/summary", "/v1/trades/export.csv", "/v1/trades/1"} {
		w := h.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := h.do(http.MethodGet, "/v1/trades", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/v1/trades", "", gin.H{"instrument": "EUR/USD"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTradeLifecycle(t *testing.T) {
	t.Parallel()
	h := newHarness(t, Options{LoginRate: 100, LoginBurst: 100})
	tok := h.signup("alice", "secret1")

	w := h.do(http.MethodPost, "/v1/trades", tok, gin.H{
		"instrument": "EUR/USD", "direction": "LONG",
		"size_percent": 10, "entry_price": "1.1000", "exit_price": "1.1050", "capital": 10000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode(t, w)["id"])

	w = h.do(http.MethodPost, "/v1/trades", tok, gin.H{
		"instrument": "EUR/USD", "direction": "sell",
		"size_percent": 5, "entry_price": 1.2, "exit_price": 1.19, "capital": 10000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do(http.MethodGet, "/v1/trades", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "USD", body["currency"])
	trades := body["trades"].([]any)
	require.Len(t, trades, 2)
	first := trades[0].(map[string]any)
	second := trades[1].(map[string]any)
	assert.Equal(t, "5", first["realized_pnl"])
	assert.Equal(t, "5", first["cumulative_pnl"])
	assert.Equal(t, "SHORT", second["direction"])
	assert.Equal(t, "10", second["cumulative_pnl"])

	w = h.do(http.MethodGet, "/v1/trades/2", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	one := decode(t, w)
	assert.Equal(t, "5", one["realized_pnl"])
	assert.NotContains(t, one, "cumulative_pnl")

	w = h.do(http.MethodGet, "/v1/trades/summary", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	sum := decode(t, w)
	assert.EqualValues(t, 2, sum["trades"])
	assert.Equal(t, "10", sum["net_pnl"])

	w = h.do(http.MethodGet, "/v1/trades/export.csv", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="trade_history.csv"`, w.Header().Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,instrument,direction,size_percent,entry_price,exit_price,capital,realized_pnl,cumulative_pnl", lines[0])
	assert.Equal(t, "2,EUR/USD,SHORT,5,1.2,1.19,10000,5,10", lines[2])
}

func TestTradeValidationErrors(t *testing.T) {
	t.Parallel()
	h := newHarness(t, Options{LoginRate: 100, LoginBurst: 100})
	tok := h.signup("alice", "secret1")

	base := func() gin.H {
		return gin.H{
			"instrument": "EUR/USD", "direction": "LONG",
			"size_percent": 10, "entry_price": 1.1, "exit_price": 1.2, "capital": 1000,
		}
	}

	tests := []struct {
		key   string
		value any
		field string
	}{
		{"direction", "HOLD", "direction"},
		{"size_percent", 0, "size_percent"},
		{"entry_price", -1, "entry_price"},
		{"capital", 0, "capital"},
		{"instrument", "", "instrument"},
	}
	for _, tt := range tests {
		body := base()
		body[tt.key] = tt.value
		w := h.do(http.MethodPost, "/v1/trades", tok, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, tt.key)
		assert.Equal(t, tt.field, decode(t, w)["field"], tt.key)
	}

	w := h.do(http.MethodGet, "/v1/trades", tok, nil)
	assert.Empty(t, decode(t, w)["trades"])
}

func TestTradesAreScopedToOwner(t *testing.T) {
	t.Parallel()
	h := newHarness(t, Options{LoginRate: 100, LoginBurst: 100})
	alice := h.signup("alice", "secret1")
	bob := h.signup("bob", "secret2")

	w := h.do(http.MethodPost, "/v1/trades", alice, gin.H{
		"instrument": "GBP/USD", "direction": "LONG",
		"size_percent": 1, "entry_price": 1.3, "exit_price": 1.31, "capital": 500,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.do(http.MethodGet, "/v1/trades/1", bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = h.do(http.MethodGet, "/v1/trades/abc", bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodGet, "/v1/trades", bob, nil)
	assert.Empty(t, decode(t, w)["trades"])
}

func TestLogout(t *testing.T) {
	t.Parallel()
	h := newHarness(t, Options{LoginRate: 100, LoginBurst: 100})
	tok := h.signup("alice", "secret1")

	w := h.do(http.MethodDelete, "/v1/sessions", tok, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(http.MethodGet, "/v1/trades", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInstrumentsAndHealth(t *testing.T) {
	t.Parallel()
	h := newHarness(t, Options{})

	w := h.do(http.MethodGet, "/v1/instruments", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Instruments []map[string]string `json:"instruments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Instruments)
	assert.Contains(t, body.Instruments, map[string]string{
		"name": "EUR/USD", "base": "EUR", "quote": "USD", "class": "forex",
	})
	assert.Equal(t, "AUD/USD", body.Instruments[0]["name"])

	w = h.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestID(t *testing.T) {
	t.Parallel()
	h := newHarness(t, Options{})

	w := h.do(http.MethodGet, "/healthz", "", nil)
	rid := w.Header().Get(headerRequestID)
	assert.True(t, id.Valid(rid), rid)

	entry := h.hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, rid, entry.Data["request_id"])
	assert.Equal(t, http.StatusOK, entry.Data["status"])

	const given = "01ARZ3NDEKTSV4RRFFQ69G5FAV"
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, given)
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	assert.Equal(t, given, rec.Header().Get(headerRequestID))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "../../etc/passwd")
	rec = httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	assert.NotEqual(t, "../../etc/passwd", rec.Header().Get(headerRequestID))
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tok, ok := bearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	tok, ok = bearerToken("bearer  abc ")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	for _, h := range []string{"", "Bearer", "Bearer    ", "Basic abc"} {
		_, ok := bearerToken(h)
		assert.False(t, ok, h)
	}
}

func TestLoginLimiterPrune(t *testing.T) {
	t.Parallel()

	l := newLoginLimiter(1, 1)
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))

	l.idle = -1
	l.prune()
	assert.Empty(t, l.clients)
	assert.True(t, l.allow("a"))
}

func TestRunShutsDown(t *testing.T) {
	t.Parallel()

	store, err := journal.NewSQLite(filepath.Join(t.TempDir(), "run.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	srv := New(ledger.New(store), Options{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}
