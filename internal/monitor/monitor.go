// Package monitor evaluates the entry conditions of active strategies on a
// fixed tick. It fails closed: stale data or a halted state never produces a
// signal.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/logger"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/scheduler"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/store"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

// MarketData is the indicator surface the monitor evaluates against.
type MarketData interface {
	Fresh(symbol string, maxAge time.Duration) bool
	LastPrice(symbol string) (float64, error)
	ChangePct(symbol string, timeframe time.Duration) (float64, error)
	Correlation(a, b string, window int) (float64, error)
}

// SignalHandler receives entry signals. It must not block the tick; slow work
// belongs behind a queue on the handler side.
type SignalHandler func(ctx context.Context, strat *types.Strategy, sig types.EntrySignal)

type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
	StatusHalted  Status = "halted"
)

type Config struct {
	Tick              time.Duration
	Freshness         time.Duration
	Stabilization     time.Duration
	CorrelationWindow int
	// OneShotSignals fires once per continuous satisfaction episode; the
	// condition must evaluate false before it can fire again.
	OneShotSignals bool
}

type Stats struct {
	Status       Status    `json:"status"`
	HaltReason   string    `json:"halt_reason,omitempty"`
	Evaluations  int64     `json:"evaluations"`
	Signals      int64     `json:"signals"`
	SkippedStale int64     `json:"skipped_stale"`
	LastTick     time.Time `json:"last_tick,omitempty"`
}

// Monitor drives the evaluation loop. The feed halts it on disconnect and it
// resumes only after the stabilization window with the feed still up; the
// circuit breaker halts it until an operator resumes.
type Monitor struct {
	cfg     Config
	store   store.StrategyStore
	market  MarketData
	handler SignalHandler

	// connected reports feed health, consulted before resuming.
	connected func() bool

	mu         sync.Mutex
	started    bool
	feedDown   bool
	feedEpoch  uint64
	haltReason string
	satisfied  map[string]bool
	delays     map[string]time.Time

	evaluations  int64
	signals      int64
	skippedStale int64
	lastTick     time.Time
}

func New(cfg Config, st store.StrategyStore, market MarketData, connected func() bool) *Monitor {
	if cfg.Tick <= 0 {
		cfg.Tick = 5 * time.Second
	}
	if cfg.Freshness <= 0 {
		cfg.Freshness = 10 * time.Second
	}
	if cfg.Stabilization <= 0 {
		cfg.Stabilization = 10 * time.Second
	}
	if cfg.CorrelationWindow <= 0 {
		cfg.CorrelationWindow = 30
	}
	if connected == nil {
		connected = func() bool { return true }
	}
	return &Monitor{
		cfg:       cfg,
		store:     st,
		market:    market,
		connected: connected,
		satisfied: make(map[string]bool),
		delays:    make(map[string]time.Time),
	}
}

// SetHandler wires the signal consumer. Call before Run.
func (m *Monitor) SetHandler(h SignalHandler) { m.handler = h }

// Run blocks until ctx is cancelled, evaluating all active strategies every
// tick.
func (m *Monitor) Run(ctx context.Context) error {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.started = false
		m.mu.Unlock()
	}()

	logger.Infof("monitor: started, tick=%s freshness=%s", m.cfg.Tick, m.cfg.Freshness)
	t := scheduler.NewTicker("condition-monitor", m.cfg.Tick)
	t.Run(ctx, m.tick)
	return ctx.Err()
}

// Halt suspends evaluation until Resume. Called by the circuit breaker.
func (m *Monitor) Halt(reason string) {
	m.mu.Lock()
	m.haltReason = reason
	m.mu.Unlock()
	logger.Warnf("monitor: halted: %s", reason)
}

// Resume lifts an operator/breaker halt. It does not touch the feed gate; a
// down feed keeps the monitor halted regardless.
func (m *Monitor) Resume(authority string) {
	m.mu.Lock()
	m.haltReason = ""
	m.mu.Unlock()
	logger.Infof("monitor: resumed by %s", authority)
}

// OnFeedDisconnected gates evaluation immediately. Wired to the feed's
// disconnect callback.
func (m *Monitor) OnFeedDisconnected(err error) {
	m.mu.Lock()
	m.feedDown = true
	m.feedEpoch++
	m.mu.Unlock()
	logger.Warnf("monitor: evaluation gated, feed disconnected: %v", err)
}

// OnFeedConnected arms a stabilization timer; evaluation resumes only if the
// feed is still up when it fires. Each connect/disconnect transition bumps the
// epoch, so a timer armed by an earlier connect is discarded when the feed
// flapped in between; the gate reopens only a full window after the latest
// connect.
func (m *Monitor) OnFeedConnected() {
	m.mu.Lock()
	m.feedEpoch++
	epoch := m.feedEpoch
	m.mu.Unlock()
	go func() {
		time.Sleep(m.cfg.Stabilization)
		if !m.connected() {
			logger.Warnf("monitor: feed dropped again within stabilization window, staying gated")
			return
		}
		m.mu.Lock()
		if m.feedEpoch != epoch {
			m.mu.Unlock()
			return
		}
		m.feedDown = false
		m.mu.Unlock()
		logger.Infof("monitor: feed stable for %s, evaluation resumed", m.cfg.Stabilization)
	}()
}

func (m *Monitor) CurrentStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Status:       m.statusLocked(),
		HaltReason:   m.haltReason,
		Evaluations:  m.evaluations,
		Signals:      m.signals,
		SkippedStale: m.skippedStale,
		LastTick:     m.lastTick,
	}
}

func (m *Monitor) statusLocked() Status {
	switch {
	case !m.started:
		return StatusStopped
	case m.feedDown || m.haltReason != "":
		return StatusHalted
	default:
		return StatusRunning
	}
}

func (m *Monitor) tick(ctx context.Context) {
	m.mu.Lock()
	halted := m.feedDown || m.haltReason != ""
	m.lastTick = time.Now()
	m.mu.Unlock()
	if halted {
		return
	}

	strategies, err := m.store.ListActive(ctx)
	if err != nil {
		logger.Errorf("monitor: listing active strategies failed: %v", err)
		return
	}
	for _, strat := range strategies {
		m.evaluate(ctx, strat)
	}
}

func (m *Monitor) evaluate(ctx context.Context, strat *types.Strategy) {
	m.mu.Lock()
	m.evaluations++
	m.mu.Unlock()

	if strat.Entry == nil {
		return
	}
	for _, asset := range strat.Entry.RequiredAssets() {
		if !m.market.Fresh(asset, m.cfg.Freshness) {
			m.mu.Lock()
			m.skippedStale++
			m.mu.Unlock()
			logger.Debugf("monitor: skipping strategy %s, %s data older than %s", strat.ID, asset, m.cfg.Freshness)
			return
		}
	}

	hit, sig := m.check(strat)

	m.mu.Lock()
	wasSatisfied := m.satisfied[strat.ID]
	m.satisfied[strat.ID] = hit
	m.mu.Unlock()

	if !hit {
		return
	}
	if m.cfg.OneShotSignals && wasSatisfied {
		return
	}

	m.mu.Lock()
	m.signals++
	m.mu.Unlock()
	logger.Infof("monitor: strategy %s fired: %s", strat.ID, sig.Reason)
	if m.handler != nil {
		m.handler(ctx, strat, sig)
	}
}

// check evaluates the strategy's entry condition against current market data.
// Any indicator error counts as not satisfied.
func (m *Monitor) check(strat *types.Strategy) (bool, types.EntrySignal) {
	now := time.Now()
	switch c := strat.Entry.(type) {
	case types.PercentageMove:
		tf, err := scheduler.ParseIntervalDuration(c.Timeframe)
		if err != nil {
			logger.Warnf("monitor: strategy %s has invalid timeframe %q: %v", strat.ID, c.Timeframe, err)
			return false, types.EntrySignal{}
		}
		change, err := m.market.ChangePct(c.Asset, tf)
		if err != nil {
			logger.Debugf("monitor: change for %s unavailable: %v", c.Asset, err)
			return false, types.EntrySignal{}
		}
		if !c.Direction.Matches(change, c.ThresholdPct) {
			return false, types.EntrySignal{}
		}
		return true, m.signal(strat, c.Asset, change,
			fmt.Sprintf("%s moved %.2f%% over %s (threshold %.2f%% %s)", c.Asset, change, c.Timeframe, c.ThresholdPct, c.Direction))

	case types.SingleCorrelation:
		corr, err := m.market.Correlation(c.Primary, c.Secondary, m.cfg.CorrelationWindow)
		if err != nil {
			logger.Debugf("monitor: correlation %s/%s unavailable: %v", c.Primary, c.Secondary, err)
			return false, types.EntrySignal{}
		}
		if corr < c.EffectiveCorrThreshold() {
			return false, types.EntrySignal{}
		}
		tf, err := scheduler.ParseIntervalDuration(c.Timeframe)
		if err != nil {
			logger.Warnf("monitor: strategy %s has invalid timeframe %q: %v", strat.ID, c.Timeframe, err)
			return false, types.EntrySignal{}
		}
		change, err := m.market.ChangePct(c.Secondary, tf)
		if err != nil {
			return false, types.EntrySignal{}
		}
		if !c.Direction.Matches(change, c.ThresholdPct) {
			return false, types.EntrySignal{}
		}
		return true, m.signal(strat, c.Primary, change,
			fmt.Sprintf("%s moved %.2f%% with corr(%s,%s)=%.2f", c.Secondary, change, c.Primary, c.Secondary, corr))

	case types.MultiAssetCorrelation:
		return m.checkMultiAsset(strat, c, now)
	}
	return false, types.EntrySignal{}
}

// checkMultiAsset requires every trigger to hold at once. With a delay
// configured, the first fully-satisfied time is recorded and the signal fires
// only after the delay elapses; a partial miss in between does not clear the
// record.
func (m *Monitor) checkMultiAsset(strat *types.Strategy, c types.MultiAssetCorrelation, now time.Time) (bool, types.EntrySignal) {
	var lastChange float64
	for _, trig := range c.Triggers {
		tf, err := scheduler.ParseIntervalDuration(trig.Timeframe)
		if err != nil {
			logger.Warnf("monitor: strategy %s trigger has invalid timeframe %q: %v", strat.ID, trig.Timeframe, err)
			return false, types.EntrySignal{}
		}
		change, err := m.market.ChangePct(trig.Asset, tf)
		if err != nil {
			return false, types.EntrySignal{}
		}
		if !trig.Direction.Matches(change, trig.ThresholdPct) {
			return false, types.EntrySignal{}
		}
		lastChange = change
	}

	key := c.DelayKey()
	delay := time.Duration(c.DelayDays * 24 * float64(time.Hour))
	if delay > 0 {
		m.mu.Lock()
		first, recorded := m.delays[key]
		if !recorded {
			m.delays[key] = now
			m.mu.Unlock()
			logger.Infof("monitor: strategy %s triggers satisfied, waiting %s before entry", strat.ID, delay)
			return false, types.EntrySignal{}
		}
		if now.Sub(first) < delay {
			m.mu.Unlock()
			return false, types.EntrySignal{}
		}
		delete(m.delays, key)
		m.mu.Unlock()
	}
	return true, m.signal(strat, c.TargetAsset, lastChange,
		fmt.Sprintf("all %d triggers satisfied for %s", len(c.Triggers), c.TargetAsset))
}

func (m *Monitor) signal(strat *types.Strategy, asset string, change float64, reason string) types.EntrySignal {
	price, err := m.market.LastPrice(asset)
	if err != nil {
		logger.Debugf("monitor: no price for %s at signal time: %v", asset, err)
	}
	return types.EntrySignal{
		StrategyID: strat.ID,
		Asset:      asset,
		Price:      price,
		ChangePct:  change,
		Reason:     reason,
		At:         time.Now(),
	}
}
