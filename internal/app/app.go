// Package app assembles the trading loop: feed, monitor, executor, tracker,
// circuit breaker and the ops API, wired explicitly so the dependency
// direction stays visible in one place.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/breaker"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/config"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/executor"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/logger"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/market"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/monitor"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/store"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/store/signallog"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/tracker"
	opshttp "github.com/SagarFieldElevate/LiveTradingApp/internal/transport/http/ops"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

type App struct {
	cfg *config.Config

	feed    *market.Feed
	ind     *market.Indicators
	mon     *monitor.Monitor
	trk     *tracker.Tracker
	exec    *executor.TradeExecutor
	brk     *breaker.Breaker
	store   store.Store
	signals *signallog.Log
	ops     *opshttp.Server
}

// New builds the application from config without starting anything.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return build(cfg)
}

// Run starts every component and blocks until ctx is cancelled or a fatal
// component error surfaces. A feed that exhausts its reconnect budget is
// fatal; the loop must not keep trading blind.
func (a *App) Run(ctx context.Context) error {
	if err := a.recoverPositions(ctx); err != nil {
		return fmt.Errorf("recovering open positions: %w", err)
	}
	if err := a.seedStrategies(ctx); err != nil {
		logger.Warnf("app: seeding strategies failed: %v", err)
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return a.feed.Run(ctx) })
	group.Go(func() error { return ignoreCancel(a.mon.Run(ctx)) })
	group.Go(func() error { return ignoreCancel(a.trk.Run(ctx)) })
	group.Go(func() error { return ignoreCancel(a.exec.RunCloser(ctx)) })
	group.Go(func() error { return a.ops.Run(ctx) })
	group.Go(func() error { a.watchRisk(ctx); return nil })

	err := group.Wait()
	a.close()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// recoverPositions reloads open positions from the journal after a restart so
// the tracker resumes protecting them.
func (a *App) recoverPositions(ctx context.Context) error {
	positions, err := a.store.ListOpenPositions(ctx)
	if err != nil {
		return err
	}
	for i := range positions {
		pos := positions[i]
		exit := types.ExitConditions{
			StopLoss: types.StopLoss{Type: types.StopLossPercentage, Value: a.cfg.Trading.FallbackStopPct, Trailing: true},
		}
		if strat, err := a.store.Get(ctx, pos.StrategyID); err == nil {
			exit = strat.Exit
		} else {
			logger.Warnf("app: strategy %s for recovered position %s not loadable, using fallback exit: %v",
				pos.StrategyID, pos.ID, err)
		}
		a.trk.Track(&pos, exit)
	}
	if len(positions) > 0 {
		logger.Infof("app: recovered %d open positions", len(positions))
	}
	return nil
}

// watchRisk feeds market-wide risk signals into the breaker: extreme hourly
// moves per symbol and the daily loss floor against unrealized drift.
func (a *App) watchRisk(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sym := range a.cfg.Market.Symbols {
				change, err := a.ind.ChangePct(sym, time.Hour)
				if err != nil {
					continue
				}
				a.brk.ObserveMove(ctx, sym, change)
			}
			a.brk.CheckDailyLoss(ctx)
		}
	}
}

func (a *App) close() {
	if a.signals != nil {
		if err := a.signals.Close(); err != nil {
			logger.Warnf("app: closing signal log: %v", err)
		}
	}
	if err := a.store.Close(); err != nil {
		logger.Warnf("app: closing store: %v", err)
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
