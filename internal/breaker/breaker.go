// Package breaker implements the trading circuit breaker: it aggregates risk
// signals from the whole loop and halts trading when a threshold is breached.
// Only a manual reset re-arms it.
package breaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/limits"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/logger"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/notify"
)

// Halter is the slice of the condition monitor the breaker needs.
type Halter interface {
	Halt(reason string)
}

// StrategyPauser pauses every active strategy; implemented by the store.
type StrategyPauser interface {
	PauseActive(ctx context.Context, reason string) (int, error)
}

// UnrealizedFn values open positions; wired from the position book.
type UnrealizedFn func() float64

type State struct {
	Tripped          bool      `json:"tripped"`
	Reason           string    `json:"reason,omitempty"`
	TrippedAt        time.Time `json:"tripped_at,omitempty"`
	FailedTradesHour int       `json:"failed_trades_hour"`
	SystemErrors5Min int       `json:"system_errors_5min"`
	DailyRealizedPnL float64   `json:"daily_realized_pnl"`
}

type Breaker struct {
	limits   limits.Provider
	halter   Halter
	pauser   StrategyPauser
	notifier notify.Notifier

	mu               sync.Mutex
	tripped          bool
	tripReason       string
	trippedAt        time.Time
	failedTrades     *rollingWindow
	systemErrors     *rollingWindow
	consecutiveStops map[string]int
	realizedToday    float64
	day              time.Time

	unrealized UnrealizedFn
	nowFn      func() time.Time
}

func New(lim limits.Provider, halter Halter, pauser StrategyPauser, notifier notify.Notifier) *Breaker {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Breaker{
		limits:           lim,
		halter:           halter,
		pauser:           pauser,
		notifier:         notifier,
		failedTrades:     newRollingWindow(time.Hour),
		systemErrors:     newRollingWindow(5 * time.Minute),
		consecutiveStops: make(map[string]int),
		unrealized:       func() float64 { return 0 },
		nowFn:            time.Now,
	}
}

// SetUnrealizedFn wires the open-position valuation used for the daily P&L
// checks. Call once during startup.
func (b *Breaker) SetUnrealizedFn(fn UnrealizedFn) {
	if fn != nil {
		b.unrealized = fn
	}
}

// IsActive reports whether trading may proceed.
func (b *Breaker) IsActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.tripped
}

func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.nowFn()
	return State{
		Tripped:          b.tripped,
		Reason:           b.tripReason,
		TrippedAt:        b.trippedAt,
		FailedTradesHour: b.failedTrades.count(now),
		SystemErrors5Min: b.systemErrors.count(now),
		DailyRealizedPnL: b.realizedToday,
	}
}

// DailyPnL is the realized P&L since UTC midnight plus current unrealized.
func (b *Breaker) DailyPnL() float64 {
	b.mu.Lock()
	b.rollDay(b.nowFn())
	realized := b.realizedToday
	b.mu.Unlock()
	return realized + b.unrealized()
}

// Trip halts trading. Idempotent: a second call while tripped is a no-op.
// Side effects run in order: stop the monitor, pause active strategies, send
// a critical alert. In-flight order retries are not cancelled.
func (b *Breaker) Trip(ctx context.Context, reason, details string) {
	b.mu.Lock()
	if b.tripped {
		b.mu.Unlock()
		logger.Debugf("breaker: trip(%s) ignored, already tripped", reason)
		return
	}
	b.tripped = true
	b.tripReason = reason
	b.trippedAt = b.nowFn()
	b.mu.Unlock()

	logger.Errorf("breaker: TRIPPED reason=%s details=%s", reason, details)
	if b.halter != nil {
		b.halter.Halt("circuit breaker: " + reason)
	}
	if b.pauser != nil {
		if n, err := b.pauser.PauseActive(ctx, "circuit breaker: "+reason); err != nil {
			logger.Errorf("breaker: pausing strategies failed: %v", err)
		} else {
			logger.Infof("breaker: paused %d active strategies", n)
		}
	}
	b.notifier.Notify(notify.KindCritical, "Circuit breaker tripped",
		fmt.Sprintf("Reason: %s\n%s\nTrading halted; manual reset required.", reason, details))
}

// Reset clears all counters and re-arms the breaker. It does not resume the
// monitor or paused strategies; those are separate operator actions.
func (b *Breaker) Reset(authority string) {
	b.mu.Lock()
	b.tripped = false
	b.tripReason = ""
	b.trippedAt = time.Time{}
	b.failedTrades.reset()
	b.systemErrors.reset()
	b.consecutiveStops = make(map[string]int)
	b.mu.Unlock()

	logger.Infof("breaker: reset by %s", authority)
	b.notifier.Notify(notify.KindError, "Circuit breaker reset",
		fmt.Sprintf("Reset by: %s. Monitor and strategies must be resumed explicitly.", authority))
}

// RecordFailedTrade counts a failed entry toward the 1-hour window.
func (b *Breaker) RecordFailedTrade(ctx context.Context, detail string) {
	b.mu.Lock()
	now := b.nowFn()
	b.failedTrades.add(now)
	count := b.failedTrades.count(now)
	max := b.limits.Current().MaxFailedTradesHour
	b.mu.Unlock()
	if count >= max {
		b.Trip(ctx, "failed trades", fmt.Sprintf("%d failed trades within 1h (limit %d); last: %s", count, max, detail))
	}
}

// RecordSystemError counts an uncaught loop error toward the 5-minute window.
func (b *Breaker) RecordSystemError(ctx context.Context, detail string) {
	b.mu.Lock()
	now := b.nowFn()
	b.systemErrors.add(now)
	count := b.systemErrors.count(now)
	max := b.limits.Current().MaxSystemErrors5Min
	b.mu.Unlock()
	if count >= max {
		b.Trip(ctx, "system errors", fmt.Sprintf("%d system errors within 5m (limit %d); last: %s", count, max, detail))
	}
}

// RecordClose folds a confirmed close into daily P&L and the per-strategy
// consecutive-stop counter.
func (b *Breaker) RecordClose(ctx context.Context, strategyID string, pnl float64, stoppedOut bool) {
	b.mu.Lock()
	now := b.nowFn()
	b.rollDay(now)
	b.realizedToday += pnl
	if stoppedOut {
		b.consecutiveStops[strategyID]++
	} else {
		delete(b.consecutiveStops, strategyID)
	}
	stops := b.consecutiveStops[strategyID]
	lim := b.limits.Current()
	b.mu.Unlock()

	if stoppedOut && stops >= lim.MaxConsecutiveStops {
		b.Trip(ctx, "consecutive stop losses",
			fmt.Sprintf("strategy %s hit %d consecutive stop losses (limit %d)", strategyID, stops, lim.MaxConsecutiveStops))
		return
	}
	b.checkDailyLoss(ctx, lim)
}

// CheckDailyLoss re-evaluates the daily floor against realized + unrealized.
func (b *Breaker) CheckDailyLoss(ctx context.Context) {
	b.checkDailyLoss(ctx, b.limits.Current())
}

func (b *Breaker) checkDailyLoss(ctx context.Context, lim limits.Limits) {
	total := b.DailyPnL()
	if total <= lim.DailyLossFloorUSD {
		b.Trip(ctx, "daily loss floor",
			fmt.Sprintf("daily P&L %.2f breached floor %.2f USD", total, lim.DailyLossFloorUSD))
		return
	}
	if lim.PortfolioUSD > 0 && lim.DailyLossFloorPct < 0 {
		pct := total / lim.PortfolioUSD * 100
		if pct <= lim.DailyLossFloorPct {
			b.Trip(ctx, "daily loss floor",
				fmt.Sprintf("daily P&L %.2f%% of portfolio breached floor %.2f%%", pct, lim.DailyLossFloorPct))
		}
	}
}

// ObserveMove trips on an extreme single-asset hourly move.
func (b *Breaker) ObserveMove(ctx context.Context, symbol string, hourlyChangePct float64) {
	lim := b.limits.Current()
	if hourlyChangePct >= lim.ExtremeMoveHourlyPct || hourlyChangePct <= -lim.ExtremeMoveHourlyPct {
		b.Trip(ctx, "extreme market move",
			fmt.Sprintf("%s moved %.2f%% within 1h (limit %.2f%%)", symbol, hourlyChangePct, lim.ExtremeMoveHourlyPct))
	}
}

// rollDay resets the daily realized counter at UTC midnight. Caller holds mu.
func (b *Breaker) rollDay(now time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	if !day.Equal(b.day) {
		b.day = day
		b.realizedToday = 0
	}
}
