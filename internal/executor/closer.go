package executor

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/gateway/exchange"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/logger"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/notify"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

type closeRequest struct {
	pos    types.Position
	reason string
}

// ClosePosition queues the position for the close worker. Accepting marks
// the position closing in the book, so a position already on its way out is
// never submitted twice; the flag clears on confirmed close or queue
// rejection.
func (e *TradeExecutor) ClosePosition(pos types.Position, reason string) error {
	if !e.book.MarkClosing(pos.ID) {
		logger.Debugf("executor: close of %s already in flight, ignoring", pos.ID)
		return nil
	}
	select {
	case e.closeQueue <- closeRequest{pos: pos, reason: reason}:
		return nil
	default:
		e.book.ClearClosing(pos.ID)
		return fmt.Errorf("close queue full, position %s not queued", pos.ID)
	}
}

// RunCloser drains the close queue until ctx is cancelled. A failed close
// alerts and retries on a fixed interval without limit; an unclosed position
// is an open risk that must not be dropped silently.
func (e *TradeExecutor) RunCloser(ctx context.Context) error {
	logger.Infof("executor: close worker started, retry interval=%s", e.cfg.CloseRetryInterval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-e.closeQueue:
			e.closeUntilDone(ctx, req)
		}
	}
}

func (e *TradeExecutor) closeUntilDone(ctx context.Context, req closeRequest) {
	for attempt := 1; ; attempt++ {
		err := e.closeOnce(ctx, req)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			logger.Errorf("executor: shutdown with position %s still open", req.pos.ID)
			return
		}
		logger.Errorf("executor: close attempt %d for %s failed: %v", attempt, req.pos.ID, err)
		e.notifier.Notify(notify.KindError, "Position close failed",
			fmt.Sprintf("Position: %s (%s)\nAttempt: %d\nError: %v\nRetrying in %s.",
				req.pos.ID, req.pos.Asset, attempt, err, e.cfg.CloseRetryInterval))
		select {
		case <-ctx.Done():
			logger.Errorf("executor: shutdown with position %s still open", req.pos.ID)
			return
		case <-time.After(e.cfg.CloseRetryInterval):
		}
	}
}

// closeOnce places the closing order and, on fill, finalizes the position.
func (e *TradeExecutor) closeOnce(ctx context.Context, req closeRequest) error {
	side := exchange.Sell
	if req.pos.Side == types.SideShort {
		side = exchange.Buy
	}
	orderCtx, cancel := context.WithTimeout(ctx, e.cfg.OrderTimeout)
	fill, err := e.gateway.PlaceOrder(orderCtx, exchange.Order{
		ClientID: uuid.NewString(),
		Symbol:   req.pos.Asset,
		Side:     side,
		Quantity: req.pos.Quantity,
		Reason:   req.reason,
	})
	cancel()
	if err != nil {
		return err
	}
	e.finalizeClose(ctx, req, fill)
	return nil
}

func (e *TradeExecutor) finalizeClose(ctx context.Context, req closeRequest, fill exchange.Fill) {
	pos := req.pos
	diff := fill.FilledPrice - pos.EntryPrice
	if pos.Side == types.SideShort {
		diff = -diff
	}
	pnl := diff * pos.Quantity

	exitAt := fill.FilledAt
	pos.Status = types.PositionClosed
	pos.ExitTime = &exitAt
	pos.ExitPrice = fill.FilledPrice
	pos.PnL = pnl
	pos.CurrentPrice = fill.FilledPrice

	e.tracker.Forget(pos.ID)
	if err := e.journal.UpsertPosition(ctx, &pos); err != nil {
		logger.Errorf("executor: persisting closed position %s failed: %v", pos.ID, err)
	}
	e.recordEvent(ctx, "position_closed", map[string]any{
		"position_id": pos.ID, "strategy_id": pos.StrategyID, "asset": pos.Asset,
		"exit_price": pos.ExitPrice, "pnl": pnl, "reason": req.reason,
	})

	stoppedOut := strings.Contains(req.reason, "stop loss")
	e.risk.RecordClose(ctx, pos.StrategyID, pnl, stoppedOut)

	e.notifier.Notify(notify.KindTrade, "Position closed",
		fmt.Sprintf("%s qty=%.8f @ %.4f\nP&L: %.2f USD\nReason: %s", pos.Asset, pos.Quantity, pos.ExitPrice, pnl, req.reason))
	logger.Infof("executor: closed position %s %s @ %.4f pnl=%.2f reason=%q",
		pos.ID, pos.Asset, pos.ExitPrice, pnl, req.reason)
}

// EmergencyCloseAll attempts to flatten every open position concurrently.
// Positions already marked closing stay with the close worker that owns
// them; each remaining position gets one pass through the normal retry
// ladder, and the summary reports how many could not be closed rather than
// aborting on the first failure.
func (e *TradeExecutor) EmergencyCloseAll(ctx context.Context, authority string) (closed, failed int) {
	var targets []types.Position
	for _, p := range e.book.List() {
		if e.book.MarkClosing(p.ID) {
			targets = append(targets, *p)
		}
	}
	if len(targets) == 0 {
		e.notifier.Notify(notify.KindEmergency, "Emergency close-all",
			fmt.Sprintf("Requested by: %s. No open positions.", authority))
		return 0, 0
	}
	logger.Errorf("executor: EMERGENCY close-all of %d positions requested by %s", len(targets), authority)

	var failures atomic.Int64
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	for _, p := range targets {
		pos := p
		g.Go(func() error {
			req := closeRequest{pos: pos, reason: "emergency close-all by " + authority}
			if err := e.emergencyCloseOne(gctx, req); err != nil {
				failures.Add(1)
				e.book.ClearClosing(pos.ID)
				logger.Errorf("executor: emergency close of %s failed: %v", pos.ID, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	failed = int(failures.Load())
	closed = len(targets) - failed
	e.notifier.Notify(notify.KindEmergency, "Emergency close-all finished",
		fmt.Sprintf("Requested by: %s\nClosed: %d\nFailed: %d", authority, closed, failed))
	e.recordEvent(ctx, "emergency_close_all", map[string]any{
		"authority": authority, "closed": closed, "failed": failed,
	})
	return closed, failed
}

// emergencyCloseOne runs the retry ladder once; unlike the close worker it
// does not loop forever, the operator needs a prompt failure count instead.
func (e *TradeExecutor) emergencyCloseOne(ctx context.Context, req closeRequest) error {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.OrderRetries; attempt++ {
		err := e.closeOnce(ctx, req)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < e.cfg.OrderRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * e.cfg.RetryBase):
			}
		}
	}
	return lastErr
}
