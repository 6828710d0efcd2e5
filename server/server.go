// Package server exposes the ledger over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rustyeddy/tradebook/ledger"
	"github.com/rustyeddy/tradebook/logging"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	shutdownTimeout = 5 * time.Second
	sweepInterval   = time.Minute
)

type Options struct {
	Addr string

	// LoginRate and LoginBurst bound login attempts per client address.
	LoginRate  float64
	LoginBurst int

	// TrustedProxies may set X-Forwarded-For. Nil trusts no one, so the
	// peer address identifies the client.
	TrustedProxies []string

	Logger logrus.FieldLogger
}

type Server struct {
	svc     *ledger.Service
	log     logrus.FieldLogger
	addr    string
	proxies []string
	logins  *loginLimiter
	engine  *gin.Engine
}

func New(svc *ledger.Service, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.LoginRate <= 0 {
		opts.LoginRate = 1
	}
	if opts.LoginBurst <= 0 {
		opts.LoginBurst = 5
	}

	s := &Server{
		svc:     svc,
		log:     opts.Logger,
		addr:    opts.Addr,
		proxies: opts.TrustedProxies,
		logins:  newLoginLimiter(rate.Limit(opts.LoginRate), opts.LoginBurst),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(s.proxies); err != nil {
		s.log.WithError(err).Warn("ignoring trusted proxies")
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery(), requestID(s.log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/v1")
	api.POST("/accounts", s.register)
	api.GET("/instruments", s.instruments)

	sessions := api.Group("/sessions")
	{
		sessions.POST("", limitLogins(s.logins), s.login)
		sessions.DELETE("", requireSession(s.svc), s.logout)
	}

	trades := api.Group("/trades", requireSession(s.svc))
	{
		trades.POST("", s.recordTrade)
		trades.GET("", s.listTrades)
		trades.GET("/summary", s.summary)
		trades.GET("/export.csv", s.exportCSV)
		trades.GET("/:id", s.getTrade)
	}
	return r
}

// Handler returns the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sweep(ctx)

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.addr).Info("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) sweep(ctx context.Context) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.svc.SweepSessions()
			s.logins.prune()
		}
	}
}
