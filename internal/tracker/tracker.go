// Package tracker owns the open-position lifecycle between fill and close:
// price refresh, trailing stop ratchet and exit triggers.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/logger"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/store"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

// Closer submits a position for closing. Implemented by the executor, which
// owns the retry policy; the tracker only decides WHEN to close.
type Closer interface {
	ClosePosition(pos types.Position, reason string) error
}

// PriceReader yields the freshest price for a symbol; wired from the market
// indicators.
type PriceReader interface {
	LastPrice(symbol string) (float64, error)
}

// SnapshotObserver receives the open-position view after every sweep.
type SnapshotObserver func([]types.PositionSnapshot)

type Config struct {
	Tick time.Duration
}

// Tracker walks the book every tick, refreshes prices, ratchets trailing
// stops and hands positions whose exit condition fired to the Closer.
type Tracker struct {
	cfg      Config
	book     *Book
	prices   PriceReader
	closer   Closer
	journal  store.Journal
	observer SnapshotObserver

	mu      sync.Mutex
	tracked map[string]trackState

	nowFn func() time.Time
}

func New(cfg Config, book *Book, prices PriceReader, closer Closer, journal store.Journal) *Tracker {
	if cfg.Tick <= 0 {
		cfg.Tick = 5 * time.Second
	}
	return &Tracker{
		cfg:     cfg,
		book:    book,
		prices:  prices,
		closer:  closer,
		journal: journal,
		tracked: make(map[string]trackState),
		nowFn:   time.Now,
	}
}

// trackState carries the per-position exit rules. stopDistance is the stop
// offset locked at entry, used to ratchet ATR-type trailing stops whose
// distance must not drift with later volatility.
type trackState struct {
	exit         types.ExitConditions
	stopDistance float64
}

// SetCloser wires the close collaborator. Tracker and executor reference
// each other, so one side is wired after construction; call before Run.
func (t *Tracker) SetCloser(c Closer) { t.closer = c }

// SetObserver wires the snapshot consumer, invoked after each sweep. Call
// before Run.
func (t *Tracker) SetObserver(o SnapshotObserver) { t.observer = o }

// Track registers a filled position and its exit rules with the book.
func (t *Tracker) Track(p *types.Position, exit types.ExitConditions) {
	distance := p.EntryPrice - p.TrailingStop
	if p.Side == types.SideShort {
		distance = p.TrailingStop - p.EntryPrice
	}
	t.mu.Lock()
	t.tracked[p.ID] = trackState{exit: exit, stopDistance: distance}
	t.mu.Unlock()
	t.book.Add(p)
	logger.Infof("tracker: tracking position %s %s qty=%.8f entry=%.4f stop=%.4f",
		p.ID, p.Asset, p.Quantity, p.EntryPrice, p.TrailingStop)
}

// Forget drops the bookkeeping for a position whose close was confirmed.
func (t *Tracker) Forget(id string) {
	t.book.Remove(id)
	t.mu.Lock()
	delete(t.tracked, id)
	t.mu.Unlock()
}

// Position returns a copy of an open position by ID.
func (t *Tracker) Position(id string) (types.Position, bool) {
	p, ok := t.book.Get(id)
	if !ok {
		return types.Position{}, false
	}
	return *p, true
}

// Snapshots returns the observer view of every open position.
func (t *Tracker) Snapshots() []types.PositionSnapshot {
	now := t.nowFn()
	positions := t.book.List()
	out := make([]types.PositionSnapshot, 0, len(positions))
	for _, p := range positions {
		out = append(out, p.Snapshot(now))
	}
	return out
}

// Run blocks until ctx is cancelled, sweeping the book every tick.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.cfg.Tick)
	defer ticker.Stop()
	logger.Infof("tracker: started, tick=%s", t.cfg.Tick)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.sweep(ctx)
		}
	}
}

func (t *Tracker) sweep(ctx context.Context) {
	now := t.nowFn()
	for _, pos := range t.book.List() {
		if t.book.IsClosing(pos.ID) {
			continue
		}
		price, err := t.prices.LastPrice(pos.Asset)
		if err != nil {
			logger.Debugf("tracker: no price for %s, skipping %s: %v", pos.Asset, pos.ID, err)
			continue
		}
		state := t.stateFor(pos.ID)
		updated, changed := t.refresh(pos.ID, price, state)
		if !changed {
			continue
		}
		if reason := t.exitReason(&updated, state.exit, now); reason != "" {
			t.requestClose(updated, reason)
			continue
		}
		if updated.TrailingStop != pos.TrailingStop {
			t.persist(ctx, &updated)
		}
	}
	if t.observer != nil {
		t.observer(t.Snapshots())
	}
}

// refresh updates the live position under the book lock: current price, and
// the trailing stop ratchet. The stop of a long position never moves down.
func (t *Tracker) refresh(id string, price float64, state trackState) (types.Position, bool) {
	return t.book.update(id, func(p *types.Position) {
		p.CurrentPrice = price
		if !state.exit.StopLoss.Trailing {
			return
		}
		candidate := trailingCandidate(p.Side, price, state)
		cur := decimal.NewFromFloat(p.TrailingStop)
		switch p.Side {
		case types.SideLong:
			if candidate.GreaterThan(cur) {
				p.TrailingStop, _ = candidate.Float64()
			}
		case types.SideShort:
			if cur.IsZero() || candidate.LessThan(cur) {
				p.TrailingStop, _ = candidate.Float64()
			}
		}
	})
}

// trailingCandidate is the stop implied by the current price. A percentage
// stop tracks pct of the live price; an ATR stop keeps the absolute distance
// locked at entry.
func trailingCandidate(side types.PositionSide, price float64, state trackState) decimal.Decimal {
	p := decimal.NewFromFloat(price)
	var offset decimal.Decimal
	if state.exit.StopLoss.Type == types.StopLossPercentage {
		offset = p.Mul(decimal.NewFromFloat(state.exit.StopLoss.Value)).Div(decimal.NewFromInt(100))
	} else {
		offset = decimal.NewFromFloat(state.stopDistance)
	}
	if side == types.SideShort {
		return p.Add(offset)
	}
	return p.Sub(offset)
}

// exitReason decides whether any exit condition fired at the current price.
func (t *Tracker) exitReason(p *types.Position, exit types.ExitConditions, now time.Time) string {
	price := decimal.NewFromFloat(p.CurrentPrice)
	stop := decimal.NewFromFloat(p.TrailingStop)
	switch p.Side {
	case types.SideLong:
		if p.TrailingStop > 0 && price.LessThanOrEqual(stop) {
			return fmt.Sprintf("stop loss hit at %.4f (stop %.4f)", p.CurrentPrice, p.TrailingStop)
		}
		if p.TakeProfitPrice > 0 && price.GreaterThanOrEqual(decimal.NewFromFloat(p.TakeProfitPrice)) {
			return fmt.Sprintf("take profit hit at %.4f (target %.4f)", p.CurrentPrice, p.TakeProfitPrice)
		}
	case types.SideShort:
		if p.TrailingStop > 0 && price.GreaterThanOrEqual(stop) {
			return fmt.Sprintf("stop loss hit at %.4f (stop %.4f)", p.CurrentPrice, p.TrailingStop)
		}
		if p.TakeProfitPrice > 0 && price.LessThanOrEqual(decimal.NewFromFloat(p.TakeProfitPrice)) {
			return fmt.Sprintf("take profit hit at %.4f (target %.4f)", p.CurrentPrice, p.TakeProfitPrice)
		}
	}
	if exit.MaxHold != nil {
		if limit := exit.MaxHold.Duration(); limit > 0 && p.HoldingTime(now) >= limit {
			return fmt.Sprintf("max holding time %s exceeded", limit)
		}
	}
	return ""
}

// requestClose hands the position to the closer. The book's in-flight flag,
// set by the closer on accept and cleared on Forget or failure, keeps any
// later trigger or manual close from submitting the same position twice.
func (t *Tracker) requestClose(p types.Position, reason string) {
	logger.Infof("tracker: closing position %s (%s): %s", p.ID, p.Asset, reason)
	if t.closer == nil {
		logger.Errorf("tracker: no closer wired, cannot close %s", p.ID)
		return
	}
	if err := t.closer.ClosePosition(p, reason); err != nil {
		logger.Errorf("tracker: submitting close for %s failed: %v", p.ID, err)
	}
}

func (t *Tracker) persist(ctx context.Context, p *types.Position) {
	if t.journal == nil {
		return
	}
	if err := t.journal.UpsertPosition(ctx, p); err != nil {
		logger.Warnf("tracker: persisting position %s failed: %v", p.ID, err)
	}
}

func (t *Tracker) stateFor(id string) trackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracked[id]
}
