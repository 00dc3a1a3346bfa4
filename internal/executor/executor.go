// Package executor turns entry signals into exchange orders and confirmed
// positions. It owns every pre-trade guard and the full retry policy; the
// gateway beneath it never retries.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/gateway/exchange"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/limits"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/logger"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/notify"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/store"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/tracker"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

// MarketReader is the slice of the indicator service the executor needs for
// pre-trade checks and stop pricing.
type MarketReader interface {
	LastPrice(symbol string) (float64, error)
	Fresh(symbol string, maxAge time.Duration) bool
	SpreadPct(symbol string) (float64, error)
	ATR(symbol string, period int) (float64, error)
}

// RiskGate is the circuit-breaker surface consulted before and after trades.
type RiskGate interface {
	IsActive() bool
	DailyPnL() float64
	RecordFailedTrade(ctx context.Context, detail string)
	RecordClose(ctx context.Context, strategyID string, pnl float64, stoppedOut bool)
}

type Config struct {
	DefaultPositionUSD float64
	EntryFreshness     time.Duration
	MaxEntrySpreadPct  float64
	OrderTimeout       time.Duration
	OrderRetries       int
	RetryBase          time.Duration
	CloseRetryInterval time.Duration
	ATRPeriod          int
	ATRMultiplier      float64
	FallbackStopPct    float64
}

func (c *Config) applyDefaults() {
	if c.DefaultPositionUSD <= 0 {
		c.DefaultPositionUSD = 1000
	}
	if c.EntryFreshness <= 0 {
		c.EntryFreshness = 5 * time.Second
	}
	if c.MaxEntrySpreadPct <= 0 {
		c.MaxEntrySpreadPct = 0.5
	}
	if c.OrderTimeout <= 0 {
		c.OrderTimeout = 10 * time.Second
	}
	if c.OrderRetries <= 0 {
		c.OrderRetries = 3
	}
	if c.RetryBase <= 0 {
		c.RetryBase = time.Second
	}
	if c.CloseRetryInterval <= 0 {
		c.CloseRetryInterval = 5 * time.Second
	}
	if c.ATRPeriod <= 0 {
		c.ATRPeriod = 14
	}
	if c.ATRMultiplier <= 0 {
		c.ATRMultiplier = 2
	}
	if c.FallbackStopPct <= 0 {
		c.FallbackStopPct = 2
	}
}

type TradeExecutor struct {
	cfg      Config
	gateway  exchange.Gateway
	market   MarketReader
	book     *tracker.Book
	tracker  *tracker.Tracker
	risk     RiskGate
	lim      limits.Provider
	journal  store.Journal
	notifier notify.Notifier

	closeQueue chan closeRequest
	nowFn      func() time.Time
}

func New(cfg Config, gw exchange.Gateway, market MarketReader, book *tracker.Book, trk *tracker.Tracker, risk RiskGate, lim limits.Provider, journal store.Journal, notifier notify.Notifier) *TradeExecutor {
	cfg.applyDefaults()
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &TradeExecutor{
		cfg:        cfg,
		gateway:    gw,
		market:     market,
		book:       book,
		tracker:    trk,
		risk:       risk,
		lim:        lim,
		journal:    journal,
		notifier:   notifier,
		closeQueue: make(chan closeRequest, 256),
		nowFn:      time.Now,
	}
}

// OpenPosition runs the pre-trade guards, places the entry order and, on
// fill, hands the new position to the tracker. Guards run in order; each
// rejection is reported and counted as a failed trade where it indicates a
// real miss rather than a config error.
func (e *TradeExecutor) OpenPosition(ctx context.Context, strat *types.Strategy, sig types.EntrySignal) error {
	if !e.risk.IsActive() {
		return types.ErrCircuitTripped
	}
	if err := e.validateEntry(strat, sig); err != nil {
		logger.Warnf("executor: entry rejected for strategy %s: %v", strat.ID, err)
		e.recordEvent(ctx, "entry_rejected", map[string]any{
			"strategy_id": strat.ID, "asset": sig.Asset, "reason": err.Error(),
		})
		return err
	}
	// The reservation taken by validateEntry ends here; after a fill the
	// position itself holds the strategy's slot.
	defer e.book.Release(strat.ID)

	price, err := e.market.LastPrice(sig.Asset)
	if err != nil {
		return &types.DataIntegrityError{Reason: fmt.Sprintf("no price for %s: %v", sig.Asset, err)}
	}
	sizeUSD := strat.PositionSizeUSD
	if sizeUSD <= 0 {
		sizeUSD = e.cfg.DefaultPositionUSD
	}
	qty := quantityFor(sizeUSD, price)
	if qty <= 0 {
		return &types.ValidationError{Reason: fmt.Sprintf("position size %.2f USD yields zero quantity at price %.4f", sizeUSD, price)}
	}

	order := exchange.Order{
		ClientID: uuid.NewString(),
		Symbol:   sig.Asset,
		Side:     exchange.Buy,
		Quantity: qty,
		Reason:   sig.Reason,
	}
	fill, err := e.placeWithRetry(ctx, order)
	if err != nil {
		e.risk.RecordFailedTrade(ctx, fmt.Sprintf("entry %s %s: %v", sig.Asset, strat.ID, err))
		e.notifier.Notify(notify.KindError, "Entry order failed",
			fmt.Sprintf("Strategy: %s\nAsset: %s\nError: %v", strat.Name, sig.Asset, err))
		e.recordEvent(ctx, "entry_failed", map[string]any{
			"strategy_id": strat.ID, "asset": sig.Asset, "error": err.Error(),
		})
		return err
	}

	stop, target := e.exitPrices(strat, fill.FilledPrice)
	pos := &types.Position{
		ID:              uuid.NewString(),
		StrategyID:      strat.ID,
		Asset:           sig.Asset,
		Side:            types.SideLong,
		EntryPrice:      fill.FilledPrice,
		CurrentPrice:    fill.FilledPrice,
		Quantity:        fill.FilledSize,
		TrailingStop:    stop,
		TakeProfitPrice: target,
		Status:          types.PositionOpen,
		EntryTime:       fill.FilledAt,
	}
	e.tracker.Track(pos, strat.Exit)
	if err := e.journal.UpsertPosition(ctx, pos); err != nil {
		logger.Errorf("executor: persisting position %s failed: %v", pos.ID, err)
	}
	e.recordEvent(ctx, "position_opened", pos.Snapshot(e.nowFn()))
	e.notifier.Notify(notify.KindTrade, "Position opened",
		fmt.Sprintf("Strategy: %s\n%s qty=%.8f @ %.4f\nStop: %.4f", strat.Name, pos.Asset, pos.Quantity, pos.EntryPrice, pos.TrailingStop))
	logger.Infof("executor: opened position %s strategy=%s %s qty=%.8f @ %.4f stop=%.4f target=%.4f",
		pos.ID, strat.ID, pos.Asset, pos.Quantity, pos.EntryPrice, stop, target)
	return nil
}

// validateEntry enforces the pre-trade guards: a positive stop loss, fresh
// quotes, a sane spread, no duplicate position and room above the daily loss
// floor. Missing protection is fatal; stale data just skips this signal. On
// success the strategy's book slot stays reserved; the caller releases it
// once the entry has settled.
func (e *TradeExecutor) validateEntry(strat *types.Strategy, sig types.EntrySignal) error {
	if strat.Exit.StopLoss.Value <= 0 {
		return &types.ValidationError{Reason: "strategy has no stop loss; refusing to trade"}
	}
	if !e.market.Fresh(sig.Asset, e.cfg.EntryFreshness) {
		return &types.DataIntegrityError{Reason: fmt.Sprintf("quote for %s older than %s", sig.Asset, e.cfg.EntryFreshness)}
	}
	spread, err := e.market.SpreadPct(sig.Asset)
	if err != nil {
		return &types.DataIntegrityError{Reason: fmt.Sprintf("no spread for %s: %v", sig.Asset, err)}
	}
	if spread > e.cfg.MaxEntrySpreadPct {
		return &types.ValidationError{Reason: fmt.Sprintf("spread %.4f%% exceeds %.4f%%", spread, e.cfg.MaxEntrySpreadPct)}
	}
	if !e.book.Reserve(strat.ID) {
		return &types.ValidationError{Reason: "strategy already holds an open position or an entry in flight"}
	}
	if floor := e.lim.Current().DailyLossFloorUSD; e.risk.DailyPnL() < floor {
		e.book.Release(strat.ID)
		return &types.ValidationError{Reason: fmt.Sprintf("daily P&L below floor %.2f USD", floor)}
	}
	return nil
}

// exitPrices computes the initial stop and the optional take-profit target.
// An ATR stop falls back to the configured percentage when the indicator has
// too little history; trading unprotected is never an option.
func (e *TradeExecutor) exitPrices(strat *types.Strategy, entry float64) (stop, target float64) {
	price := decimal.NewFromFloat(entry)
	sl := strat.Exit.StopLoss
	switch sl.Type {
	case types.StopLossATR:
		atr, err := e.market.ATR(firstAsset(strat), e.cfg.ATRPeriod)
		if err != nil {
			logger.Warnf("executor: ATR unavailable for strategy %s, using %.2f%% fallback stop: %v",
				strat.ID, e.cfg.FallbackStopPct, err)
			stop, _ = price.Sub(price.Mul(decimal.NewFromFloat(e.cfg.FallbackStopPct)).Div(decimal.NewFromInt(100))).Float64()
		} else {
			mult := sl.Value
			if mult <= 0 {
				mult = e.cfg.ATRMultiplier
			}
			stop, _ = price.Sub(decimal.NewFromFloat(atr).Mul(decimal.NewFromFloat(mult))).Float64()
		}
	default:
		stop, _ = price.Sub(price.Mul(decimal.NewFromFloat(sl.Value)).Div(decimal.NewFromInt(100))).Float64()
	}
	if tp := strat.Exit.TakeProfit; tp != nil && tp.Value > 0 {
		target, _ = price.Add(price.Mul(decimal.NewFromFloat(tp.Value)).Div(decimal.NewFromInt(100))).Float64()
	}
	return stop, target
}

// placeWithRetry attempts the order with a per-attempt timeout. Transient
// network failures retry with a linearly growing delay; validation failures
// abort immediately.
func (e *TradeExecutor) placeWithRetry(ctx context.Context, order exchange.Order) (exchange.Fill, error) {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.OrderRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.OrderTimeout)
		fill, err := e.gateway.PlaceOrder(attemptCtx, order)
		cancel()
		if err == nil {
			return fill, nil
		}
		lastErr = err
		if types.IsValidation(err) {
			return exchange.Fill{}, err
		}
		logger.Warnf("executor: order attempt %d/%d failed (%s %s): %v",
			attempt, e.cfg.OrderRetries, order.Side, order.Symbol, err)
		if attempt == e.cfg.OrderRetries {
			break
		}
		delay := time.Duration(attempt) * e.cfg.RetryBase
		select {
		case <-ctx.Done():
			return exchange.Fill{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	return exchange.Fill{}, fmt.Errorf("order failed after %d attempts: %w", e.cfg.OrderRetries, lastErr)
}

func (e *TradeExecutor) recordEvent(ctx context.Context, kind string, payload any) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordEvent(ctx, kind, payload); err != nil {
		logger.Warnf("executor: recording %s event failed: %v", kind, err)
	}
}

// quantityFor sizes the order in base units at 8 decimal places.
func quantityFor(sizeUSD, price float64) float64 {
	if price <= 0 {
		return 0
	}
	qty := decimal.NewFromFloat(sizeUSD).Div(decimal.NewFromFloat(price)).Round(8)
	f, _ := qty.Float64()
	return f
}

func firstAsset(strat *types.Strategy) string {
	if len(strat.RequiredAssets) > 0 {
		return strat.RequiredAssets[0]
	}
	return ""
}
