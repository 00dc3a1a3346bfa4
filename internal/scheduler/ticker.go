package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/logger"
)

// Ticker runs a task on a fixed interval. A tick that arrives while the
// previous run is still in flight is skipped and logged rather than queued,
// so a slow run can never delay the schedule unboundedly.
type Ticker struct {
	Name     string
	Interval time.Duration

	running atomic.Bool
	skipped atomic.Int64
}

func NewTicker(name string, interval time.Duration) *Ticker {
	return &Ticker{Name: name, Interval: interval}
}

// Run blocks until ctx is cancelled, invoking task every interval.
func (t *Ticker) Run(ctx context.Context, task func(context.Context)) {
	if t.Interval <= 0 {
		logger.Warnf("ticker %s: invalid interval=%s, exit", t.Name, t.Interval)
		return
	}
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !t.running.CompareAndSwap(false, true) {
				n := t.skipped.Add(1)
				logger.Warnf("ticker %s: previous run still in flight, skipping tick (skipped=%d)", t.Name, n)
				continue
			}
			go func() {
				defer t.running.Store(false)
				task(ctx)
			}()
		}
	}
}

// Skipped reports how many ticks were dropped due to overruns.
func (t *Ticker) Skipped() int64 { return t.skipped.Load() }
