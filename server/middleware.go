package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rustyeddy/tradebook/auth"
	"github.com/rustyeddy/tradebook/ledger"
	"github.com/rustyeddy/tradebook/pkg/id"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	headerRequestID = "X-Request-ID"

	ctxRequestID = "request_id"
	ctxSession   = "session"
)

// requestID tags every request with a ULID and writes one access log line
// when it completes. A well-formed ID from the client is kept.
func requestID(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(headerRequestID)
		if !id.Valid(rid) {
			rid = id.New()
		}
		c.Set(ctxRequestID, rid)
		c.Header(headerRequestID, rid)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := log.WithFields(logrus.Fields{
			"request_id": rid,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     status,
			"latency":    time.Since(start),
			"client":     c.ClientIP(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request")
		}
	}
}

// requireSession resolves the bearer token and stores the session on the
// context for handlers.
func requireSession(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWithError(c, http.StatusUnauthorized, ledger.ErrUnauthenticated.Error())
			return
		}
		sess, err := svc.Session(token)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, err.Error())
			return
		}
		c.Set(ctxSession, sess)
		c.Next()
	}
}

func bearerToken(h string) (string, bool) {
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}

func sessionFrom(c *gin.Context) *auth.Session {
	v, ok := c.Get(ctxSession)
	if !ok {
		return nil
	}
	sess, _ := v.(*auth.Session)
	return sess
}

func limitLogins(l *loginLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			abortWithError(c, http.StatusTooManyRequests, "too many login attempts")
			return
		}
		c.Next()
	}
}

// loginLimiter keeps one token bucket per client address.
type loginLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idle    time.Duration
	clients map[string]*client
}

type client struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newLoginLimiter(limit rate.Limit, burst int) *loginLimiter {
	return &loginLimiter{
		limit:   limit,
		burst:   burst,
		idle:    10 * time.Minute,
		clients: make(map[string]*client),
	}
}

func (l *loginLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cl, ok := l.clients[key]
	if !ok {
		cl = &client{lim: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = cl
	}
	cl.lastSeen = time.Now()
	return cl.lim.Allow()
}

// prune forgets clients idle long enough for their bucket to have refilled.
func (l *loginLimiter) prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.idle)
	for k, cl := range l.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(l.clients, k)
		}
	}
}
