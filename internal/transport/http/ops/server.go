// Package opshttp is the operator-facing HTTP API: strategy approval and
// lifecycle, position views, breaker control and the emergency close-all.
package opshttp

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/breaker"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/executor"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/gateway/exchange"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/logger"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/monitor"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/parser"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/store"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/store/signallog"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/tracker"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

type Config struct {
	Addr string
	// EmergencyAuthCode gates the emergency close-all endpoint.
	EmergencyAuthCode string
}

type Server struct {
	cfg     Config
	store   store.Store
	parser  *parser.Client
	tracker *tracker.Tracker
	exec    *executor.TradeExecutor
	mon     *monitor.Monitor
	brk     *breaker.Breaker
	signals *signallog.Log
	gateway exchange.Gateway

	// published is the latest snapshot set pushed by the tracker after each
	// sweep; the positions endpoint prefers it over pulling the tracker.
	published atomic.Pointer[[]types.PositionSnapshot]

	httpSrv *http.Server
}

// PublishPositions stores the tracker's per-tick position snapshots. Wired as
// the tracker's snapshot observer.
func (s *Server) PublishPositions(snaps []types.PositionSnapshot) {
	s.published.Store(&snaps)
}

func NewServer(cfg Config, st store.Store, pc *parser.Client, trk *tracker.Tracker, exec *executor.TradeExecutor, mon *monitor.Monitor, brk *breaker.Breaker, signals *signallog.Log, gw exchange.Gateway) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		parser:  pc,
		tracker: trk,
		exec:    exec,
		mon:     mon,
		brk:     brk,
		signals: signals,
		gateway: gw,
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	s.registerRoutes(router)
	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes(router *gin.Engine) {
	router.GET("/api/health", s.handleHealth)

	router.POST("/api/strategies", s.handleCreateStrategy)
	router.GET("/api/strategies", s.handleListStrategies)
	router.POST("/api/strategies/:id/approve", s.handleApprove)
	router.POST("/api/strategies/:id/pause", s.handlePause)
	router.POST("/api/strategies/:id/resume", s.handleResume)

	router.GET("/api/positions", s.handleListPositions)
	router.POST("/api/positions/:id/close", s.handleClosePosition)
	router.POST("/api/emergency/close-all", s.handleEmergencyCloseAll)

	router.GET("/api/monitor/stats", s.handleMonitorStats)
	router.POST("/api/monitor/resume", s.handleMonitorResume)
	router.GET("/api/breaker", s.handleBreakerState)
	router.POST("/api/breaker/reset", s.handleBreakerReset)
	router.GET("/api/signals", s.handleRecentSignals)
	router.GET("/api/balances", s.handleBalances)
}

// Run serves until ctx is cancelled, then drains with a short grace period.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("ops: http server listening on %s", s.cfg.Addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"monitor": s.mon.CurrentStats().Status,
		"breaker": s.brk.CurrentState().Tripped,
	})
}

type createStrategyRequest struct {
	Name            string  `json:"name" binding:"required"`
	Description     string  `json:"description" binding:"required"`
	PositionSizeUSD float64 `json:"position_size"`
}

// handleCreateStrategy parses the free-text description into conditions and
// stores the result as a pending strategy awaiting approval.
func (s *Server) handleCreateStrategy(c *gin.Context) {
	var req createStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, exit, degraded := s.parser.Parse(c.Request.Context(), req.Description, map[string]string{"name": req.Name})
	now := time.Now()
	strat := &types.Strategy{
		ID:              uuid.NewString(),
		Name:            req.Name,
		Status:          types.StrategyPending,
		Entry:           entry,
		Exit:            exit,
		RequiredAssets:  entry.RequiredAssets(),
		PositionSizeUSD: req.PositionSizeUSD,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Save(c.Request.Context(), strat); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"strategy": strat, "parser_fallback": degraded})
}

func (s *Server) handleListStrategies(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		strategies []*types.Strategy
		err        error
	)
	switch c.Query("status") {
	case "pending":
		strategies, err = s.store.ListPending(ctx)
	default:
		strategies, err = s.store.ListActive(ctx)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"strategies": strategies})
}

func (s *Server) handleApprove(c *gin.Context) {
	if err := s.store.Approve(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "active"})
}

func (s *Server) handlePause(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "paused by operator"
	}
	if err := s.store.Pause(c.Request.Context(), c.Param("id"), req.Reason); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "paused"})
}

func (s *Server) handleResume(c *gin.Context) {
	if err := s.store.Resume(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "active"})
}

func (s *Server) handleListPositions(c *gin.Context) {
	if snaps := s.published.Load(); snaps != nil {
		c.JSON(http.StatusOK, gin.H{"positions": *snaps})
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": s.tracker.Snapshots()})
}

func (s *Server) handleClosePosition(c *gin.Context) {
	pos, ok := s.tracker.Position(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "position not found"})
		return
	}
	if err := s.exec.ClosePosition(pos, "manual close by operator"); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "closing"})
}

// handleEmergencyCloseAll flattens everything. The auth code is compared in
// constant time and a mismatch is an explicit 401.
func (s *Server) handleEmergencyCloseAll(c *gin.Context) {
	var req struct {
		AuthCode  string `json:"auth_code"`
		Authority string `json:"authority"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.AuthCode), []byte(s.cfg.EmergencyAuthCode)) != 1 {
		logger.Warnf("ops: emergency close-all rejected, bad auth code")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid auth code"})
		return
	}
	authority := req.Authority
	if authority == "" {
		authority = "ops-api"
	}
	closed, failed := s.exec.EmergencyCloseAll(c.Request.Context(), authority)
	c.JSON(http.StatusOK, gin.H{"closed": closed, "failed": failed})
}

func (s *Server) handleMonitorStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.mon.CurrentStats())
}

func (s *Server) handleMonitorResume(c *gin.Context) {
	s.mon.Resume("ops-api")
	c.JSON(http.StatusOK, gin.H{"status": string(s.mon.CurrentStats().Status)})
}

func (s *Server) handleBreakerState(c *gin.Context) {
	c.JSON(http.StatusOK, s.brk.CurrentState())
}

func (s *Server) handleBreakerReset(c *gin.Context) {
	var req struct {
		Authority string `json:"authority"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.Authority == "" {
		req.Authority = "ops-api"
	}
	s.brk.Reset(req.Authority)
	c.JSON(http.StatusOK, s.brk.CurrentState())
}

func (s *Server) handleRecentSignals(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if s.signals == nil {
		c.JSON(http.StatusOK, gin.H{"signals": []types.EntrySignal{}})
		return
	}
	sigs, err := s.signals.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": sigs})
}

func (s *Server) handleBalances(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	balances, err := s.gateway.GetBalances(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"balances": balances})
}

// statusFor maps domain errors onto HTTP codes.
func statusFor(err error) int {
	if types.IsValidation(err) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
