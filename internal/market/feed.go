package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/logger"
)

// ErrFeedExhausted is returned by Run when the source has burned through its
// reconnect budget. Recovery requires external intervention, not more retries.
var ErrFeedExhausted = errors.New("market feed reconnect attempts exhausted")

type FeedConfig struct {
	Symbols         []string
	Heartbeat       time.Duration
	MaxSpreadRatio  float64
	MaxReconnects   int
	HistoryInterval string
	HistoryDepth    int
	Preheat         bool
}

// Feed owns the live quote table. It validates every inbound tick, watches a
// heartbeat, and discards the entire table the moment the connection is lost
// so stale prices are never served.
type Feed struct {
	cfg     FeedConfig
	src     Source
	history *History

	mu        sync.RWMutex
	quotes    map[string]Quote
	connected bool
	lastMsg   time.Time
	seq       int64

	onConnected    []func()
	onDisconnected []func(error)

	rejected atomic.Int64
	nowFn    func() time.Time
}

func NewFeed(cfg FeedConfig, src Source, history *History) *Feed {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 30 * time.Second
	}
	if cfg.MaxReconnects <= 0 {
		cfg.MaxReconnects = 5
	}
	if cfg.HistoryInterval == "" {
		cfg.HistoryInterval = "1m"
	}
	if cfg.HistoryDepth <= 0 {
		cfg.HistoryDepth = 1000
	}
	return &Feed{
		cfg:     cfg,
		src:     src,
		history: history,
		quotes:  make(map[string]Quote),
		nowFn:   time.Now,
	}
}

// OnConnected registers a connection listener. Register before Run.
func (f *Feed) OnConnected(fn func()) {
	f.onConnected = append(f.onConnected, fn)
}

// OnDisconnected registers a disconnection listener. Register before Run.
func (f *Feed) OnDisconnected(fn func(error)) {
	f.onDisconnected = append(f.onDisconnected, fn)
}

// Quote returns the last validated quote for symbol, if any.
func (f *Feed) Quote(symbol string) (Quote, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	q, ok := f.quotes[strings.ToUpper(symbol)]
	return q, ok
}

func (f *Feed) IsConnected() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.connected
}

// RejectedTicks counts ticks dropped by validation since start.
func (f *Feed) RejectedTicks() int64 { return f.rejected.Load() }

func (f *Feed) SourceStats() SourceStats { return f.src.Stats() }

// Run blocks until ctx is cancelled or the reconnect budget is exhausted.
func (f *Feed) Run(ctx context.Context) error {
	if f.cfg.Preheat {
		f.preheat(ctx)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		subCtx, cancel := context.WithCancel(ctx)
		events, err := f.src.SubscribeTicks(subCtx, f.cfg.Symbols, SubscribeOptions{
			MaxAttempts:  f.cfg.MaxReconnects,
			OnConnect:    f.markConnected,
			OnDisconnect: f.markDisconnected,
		})
		if err != nil {
			cancel()
			return fmt.Errorf("subscribing to market feed: %w", err)
		}
		heartbeatTripped := f.consume(subCtx, events)
		cancel()
		if heartbeatTripped {
			// The connection went silent rather than down. Tear it down and
			// resubscribe with a fresh attempt budget.
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		f.markDisconnected(ErrFeedExhausted)
		return ErrFeedExhausted
	}
}

func (f *Feed) consume(ctx context.Context, events <-chan TickEvent) (heartbeatTripped bool) {
	hb := time.NewTicker(time.Second)
	defer hb.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			f.handleTick(ev)
		case <-hb.C:
			f.mu.RLock()
			silent := f.connected && f.nowFn().Sub(f.lastMsg) > f.cfg.Heartbeat
			f.mu.RUnlock()
			if silent {
				f.markDisconnected(fmt.Errorf("heartbeat: no feed message for over %s", f.cfg.Heartbeat))
				return true
			}
		}
	}
}

// handleTick applies a tick fully (validate, store, update history) before any
// evaluation tick can read it; readers share the same table lock.
func (f *Feed) handleTick(ev TickEvent) {
	now := f.nowFn()
	price := ev.Price
	if price <= 0 {
		price = (ev.Bid + ev.Ask) / 2
	}
	q := Quote{
		Symbol:    strings.ToUpper(ev.Symbol),
		Price:     price,
		Bid:       ev.Bid,
		Ask:       ev.Ask,
		Volume:    ev.Quantity,
		Timestamp: now,
	}
	if err := q.Validate(f.cfg.MaxSpreadRatio); err != nil {
		f.rejected.Add(1)
		logger.Warnf("feed: rejected tick %s price=%.8f bid=%.8f ask=%.8f: %v", q.Symbol, q.Price, q.Bid, q.Ask, err)
		return
	}

	f.mu.Lock()
	f.seq++
	q.Sequence = f.seq
	f.quotes[q.Symbol] = q
	f.lastMsg = now
	f.mu.Unlock()

	f.history.Append(q.Symbol, q.Price, q.Volume, now)
}

func (f *Feed) markConnected() {
	f.mu.Lock()
	already := f.connected
	f.connected = true
	f.lastMsg = f.nowFn()
	f.mu.Unlock()
	if already {
		return
	}
	logger.Infof("feed: connected")
	for _, fn := range f.onConnected {
		fn()
	}
}

// markDisconnected clears the quote table in the same synchronous step and
// notifies listeners before any reconnection attempt runs.
func (f *Feed) markDisconnected(reason error) {
	f.mu.Lock()
	already := !f.connected
	f.connected = false
	f.quotes = make(map[string]Quote)
	f.mu.Unlock()
	if already {
		return
	}
	logger.Warnf("feed: disconnected: %v", reason)
	for _, fn := range f.onDisconnected {
		fn(reason)
	}
}

func (f *Feed) preheat(ctx context.Context) {
	for _, symbol := range f.cfg.Symbols {
		fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		candles, err := f.src.FetchHistory(fetchCtx, symbol, f.cfg.HistoryInterval, f.cfg.HistoryDepth)
		cancel()
		if err != nil {
			logger.Warnf("feed: preheat %s failed: %v", symbol, err)
			continue
		}
		f.history.Preload(symbol, candles)
		logger.Infof("feed: preheated %s with %d candles (%s)", symbol, len(candles), f.cfg.HistoryInterval)
	}
}
