package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/ledger"
	"github.com/rustyeddy/tradebook/market"
	"github.com/rustyeddy/tradebook/pnl"
	"github.com/shopspring/decimal"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Numbers may be sent as JSON numbers or strings.
type tradeRequest struct {
	Instrument  string          `json:"instrument"`
	Direction   string          `json:"direction"`
	SizePercent decimal.Decimal `json:"size_percent"`
	EntryPrice  decimal.Decimal `json:"entry_price"`
	ExitPrice   decimal.Decimal `json:"exit_price"`
	Capital     decimal.Decimal `json:"capital"`
}

type tradeView struct {
	ID          int64            `json:"id"`
	Instrument  string           `json:"instrument"`
	Direction   string           `json:"direction"`
	SizePercent decimal.Decimal  `json:"size_percent"`
	EntryPrice  decimal.Decimal  `json:"entry_price"`
	ExitPrice   decimal.Decimal  `json:"exit_price"`
	Capital     decimal.Decimal  `json:"capital"`
	Realized    decimal.Decimal  `json:"realized_pnl"`
	Cumulative  *decimal.Decimal `json:"cumulative_pnl,omitempty"`
}

func viewOf(r pnl.Row) tradeView {
	return tradeView{
		ID:          r.ID,
		Instrument:  r.Instrument,
		Direction:   string(r.Direction),
		SizePercent: r.SizePercent,
		EntryPrice:  r.EntryPrice,
		ExitPrice:   r.ExitPrice,
		Capital:     r.Capital,
		Realized:    r.Realized,
	}
}

func historyView(r pnl.Row) tradeView {
	v := viewOf(r)
	cum := r.Cumulative
	v.Cumulative = &cum
	return v
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.svc.RegisterAccount(c.Request.Context(), req.Username, req.Password, req.Confirm); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"username": journal.NormalizeUsername(req.Username)})
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "malformed request body")
		return
	}
	sess, err := s.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token":      sess.Token,
		"username":   sess.Username,
		"expires_at": sess.Expires,
	})
}

func (s *Server) logout(c *gin.Context) {
	s.svc.Logout(sessionFrom(c).Token)
	c.Status(http.StatusNoContent)
}

func (s *Server) instruments(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"instruments": market.InstrumentList()})
}

func (s *Server) recordTrade(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "malformed request body")
		return
	}
	dir, err := market.ParseDirection(req.Direction)
	if err != nil {
		s.fail(c, &journal.FieldError{Field: "direction", Reason: "must be LONG or SHORT"})
		return
	}

	nt := journal.NewTrade{
		Instrument:  req.Instrument,
		Direction:   dir,
		SizePercent: req.SizePercent,
		EntryPrice:  req.EntryPrice,
		ExitPrice:   req.ExitPrice,
		Capital:     req.Capital,
	}
	tradeID, err := s.svc.RecordTrade(c.Request.Context(), sessionFrom(c), nt)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": tradeID})
}

func (s *Server) listTrades(c *gin.Context) {
	rows, err := s.svc.ListTradesWithPnL(c.Request.Context(), sessionFrom(c).Username)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]tradeView, 0, len(rows))
	for _, r := range rows {
		out = append(out, historyView(r))
	}
	c.JSON(http.StatusOK, gin.H{"currency": s.svc.Currency(), "trades": out})
}

func (s *Server) getTrade(c *gin.Context) {
	tradeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || tradeID <= 0 {
		abortWithError(c, http.StatusNotFound, journal.ErrTradeNotFound.Error())
		return
	}
	rec, err := s.svc.Trade(c.Request.Context(), sessionFrom(c).Username, tradeID)
	if err != nil {
		s.fail(c, err)
		return
	}
	v := viewOf(pnl.Row{TradeRecord: rec, Realized: pnl.Realized(rec)})
	c.JSON(http.StatusOK, v)
}

func (s *Server) summary(c *gin.Context) {
	sum, err := s.svc.Summary(c.Request.Context(), sessionFrom(c).Username)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"currency":      s.svc.Currency(),
		"trades":        sum.Trades,
		"wins":          sum.Wins,
		"losses":        sum.Losses,
		"breakeven":     sum.Breakeven,
		"gross_profit":  sum.GrossProfit,
		"gross_loss":    sum.GrossLoss,
		"net_pnl":       sum.NetPL,
		"win_rate":      sum.WinRate,
		"profit_factor": sum.ProfitFactor,
		"best":          sum.Best,
		"worst":         sum.Worst,
	})
}

func (s *Server) exportCSV(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.svc.ExportCSV(c.Request.Context(), sessionFrom(c).Username, &buf); err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ledger.ExportFilename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// fail maps ledger errors onto status codes. Storage details stay in the
// log.
func (s *Server) fail(c *gin.Context, err error) {
	var fe *journal.FieldError
	var ce *journal.ConflictError

	switch {
	case errors.As(err, &fe):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fe.Error(), "field": fe.Field})
	case errors.As(err, &ce):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": ce.Error(), "field": ce.Field})
	case errors.Is(err, ledger.ErrInvalidCredentials), errors.Is(err, ledger.ErrUnauthenticated):
		abortWithError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, journal.ErrTradeNotFound):
		abortWithError(c, http.StatusNotFound, journal.ErrTradeNotFound.Error())
	default:
		rid, _ := c.Get(ctxRequestID)
		s.log.WithError(err).WithField("request_id", rid).Error("request failed")
		abortWithError(c, http.StatusInternalServerError, "internal error")
	}
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
