package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

type stubStrategies struct {
	active []*types.Strategy
}

func (s *stubStrategies) Get(_ context.Context, id string) (*types.Strategy, error) {
	for _, strat := range s.active {
		if strat.ID == id {
			return strat, nil
		}
	}
	return nil, &types.ValidationError{Reason: "not found"}
}
func (s *stubStrategies) Save(context.Context, *types.Strategy) error { return nil }
func (s *stubStrategies) ListActive(context.Context) ([]*types.Strategy, error) {
	return s.active, nil
}
func (s *stubStrategies) ListPending(context.Context) ([]*types.Strategy, error) { return nil, nil }
func (s *stubStrategies) Approve(context.Context, string) error                  { return nil }
func (s *stubStrategies) Pause(context.Context, string, string) error            { return nil }
func (s *stubStrategies) Resume(context.Context, string) error                   { return nil }
func (s *stubStrategies) PauseActive(context.Context, string) (int, error)       { return 0, nil }

type stubMarket struct {
	mu      sync.Mutex
	fresh   map[string]bool
	prices  map[string]float64
	changes map[string]float64
	corrs   map[string]float64
}

func newStubMarket() *stubMarket {
	return &stubMarket{
		fresh:   make(map[string]bool),
		prices:  make(map[string]float64),
		changes: make(map[string]float64),
		corrs:   make(map[string]float64),
	}
}

func (s *stubMarket) Fresh(symbol string, _ time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fresh[symbol]
}

func (s *stubMarket) LastPrice(symbol string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prices[symbol], nil
}

func (s *stubMarket) ChangePct(symbol string, _ time.Duration) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.changes[symbol]; ok {
		return v, nil
	}
	return 0, &types.DataIntegrityError{Reason: "no history"}
}

func (s *stubMarket) Correlation(a, b string, _ int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.corrs[a+"/"+b]; ok {
		return v, nil
	}
	return 0, &types.DataIntegrityError{Reason: "no correlation"}
}

type capturedSignals struct {
	mu      sync.Mutex
	signals []types.EntrySignal
}

func (c *capturedSignals) handler(_ context.Context, _ *types.Strategy, sig types.EntrySignal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signals = append(c.signals, sig)
}

func (c *capturedSignals) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.signals)
}

func pctStrategy() *types.Strategy {
	return &types.Strategy{
		ID:     "s1",
		Status: types.StrategyActive,
		Entry:  types.PercentageMove{Asset: "BTCUSDT", ThresholdPct: 2, Direction: types.DirectionUp, Timeframe: "1h"},
		Exit:   types.ExitConditions{StopLoss: types.StopLoss{Type: types.StopLossPercentage, Value: 2}},
	}
}

func newTestMonitor(strats *stubStrategies, mkt *stubMarket, oneShot bool) (*Monitor, *capturedSignals) {
	m := New(Config{
		Tick:              time.Second,
		Freshness:         10 * time.Second,
		Stabilization:     10 * time.Millisecond,
		CorrelationWindow: 30,
		OneShotSignals:    oneShot,
	}, strats, mkt, nil)
	caught := &capturedSignals{}
	m.SetHandler(caught.handler)
	return m, caught
}

func TestPercentageMoveFires(t *testing.T) {
	mkt := newStubMarket()
	mkt.fresh["BTCUSDT"] = true
	mkt.changes["BTCUSDT"] = 2.5
	mkt.prices["BTCUSDT"] = 45000

	m, caught := newTestMonitor(&stubStrategies{active: []*types.Strategy{pctStrategy()}}, mkt, false)
	m.tick(context.Background())

	require.Equal(t, 1, caught.count())
	sig := caught.signals[0]
	assert.Equal(t, "s1", sig.StrategyID)
	assert.Equal(t, "BTCUSDT", sig.Asset)
	assert.Equal(t, 45000.0, sig.Price)
	assert.Equal(t, 2.5, sig.ChangePct)
}

func TestStaleDataFailsClosed(t *testing.T) {
	mkt := newStubMarket()
	mkt.changes["BTCUSDT"] = 5
	// fresh stays false: the move is there but the data is stale.

	m, caught := newTestMonitor(&stubStrategies{active: []*types.Strategy{pctStrategy()}}, mkt, false)
	m.tick(context.Background())

	assert.Zero(t, caught.count())
	assert.Equal(t, int64(1), m.CurrentStats().SkippedStale)
}

func TestOneShotFiresOncePerEpisode(t *testing.T) {
	mkt := newStubMarket()
	mkt.fresh["BTCUSDT"] = true
	mkt.changes["BTCUSDT"] = 2.5
	mkt.prices["BTCUSDT"] = 45000

	strats := &stubStrategies{active: []*types.Strategy{pctStrategy()}}
	m, caught := newTestMonitor(strats, mkt, true)

	m.tick(context.Background())
	m.tick(context.Background())
	assert.Equal(t, 1, caught.count())

	// The condition drops below threshold, re-arming it.
	mkt.mu.Lock()
	mkt.changes["BTCUSDT"] = 0.5
	mkt.mu.Unlock()
	m.tick(context.Background())

	mkt.mu.Lock()
	mkt.changes["BTCUSDT"] = 3
	mkt.mu.Unlock()
	m.tick(context.Background())
	assert.Equal(t, 2, caught.count())
}

func TestRepeatedSignalsWithoutOneShot(t *testing.T) {
	mkt := newStubMarket()
	mkt.fresh["BTCUSDT"] = true
	mkt.changes["BTCUSDT"] = 2.5
	mkt.prices["BTCUSDT"] = 45000

	m, caught := newTestMonitor(&stubStrategies{active: []*types.Strategy{pctStrategy()}}, mkt, false)
	m.tick(context.Background())
	m.tick(context.Background())
	assert.Equal(t, 2, caught.count())
}

func TestSingleCorrelationShortCircuitsOnWeakCorrelation(t *testing.T) {
	strat := &types.Strategy{
		ID:     "s2",
		Status: types.StrategyActive,
		Entry: types.SingleCorrelation{
			Primary: "ETHUSDT", Secondary: "BTCUSDT",
			ThresholdPct: 1.5, Direction: types.DirectionUp, Timeframe: "1h",
		},
		Exit: types.ExitConditions{StopLoss: types.StopLoss{Value: 2}},
	}
	mkt := newStubMarket()
	mkt.fresh["ETHUSDT"] = true
	mkt.fresh["BTCUSDT"] = true
	mkt.changes["BTCUSDT"] = 3
	mkt.prices["ETHUSDT"] = 2500
	mkt.corrs["ETHUSDT/BTCUSDT"] = 0.5

	m, caught := newTestMonitor(&stubStrategies{active: []*types.Strategy{strat}}, mkt, false)
	m.tick(context.Background())
	assert.Zero(t, caught.count())

	mkt.mu.Lock()
	mkt.corrs["ETHUSDT/BTCUSDT"] = 0.85
	mkt.mu.Unlock()
	m.tick(context.Background())
	require.Equal(t, 1, caught.count())
	assert.Equal(t, "ETHUSDT", caught.signals[0].Asset)
}

func TestMultiAssetDelayBookkeeping(t *testing.T) {
	strat := &types.Strategy{
		ID:     "s3",
		Status: types.StrategyActive,
		Entry: types.MultiAssetCorrelation{
			TargetAsset: "SOLUSDT",
			Triggers: []types.CorrelationTrigger{
				{Asset: "BTCUSDT", ThresholdPct: 1, Direction: types.DirectionUp, Timeframe: "1h"},
				{Asset: "ETHUSDT", ThresholdPct: 1, Direction: types.DirectionUp, Timeframe: "1h"},
			},
			DelayDays: 1,
		},
		Exit: types.ExitConditions{StopLoss: types.StopLoss{Value: 2}},
	}
	mkt := newStubMarket()
	for _, s := range []string{"SOLUSDT", "BTCUSDT", "ETHUSDT"} {
		mkt.fresh[s] = true
	}
	mkt.changes["BTCUSDT"] = 2
	mkt.changes["ETHUSDT"] = 2
	mkt.prices["SOLUSDT"] = 150

	m, caught := newTestMonitor(&stubStrategies{active: []*types.Strategy{strat}}, mkt, false)

	// First full satisfaction records the time, no signal yet.
	m.tick(context.Background())
	assert.Zero(t, caught.count())

	// A partial miss in between must not clear the record.
	mkt.mu.Lock()
	mkt.changes["ETHUSDT"] = 0
	mkt.mu.Unlock()
	m.tick(context.Background())

	mkt.mu.Lock()
	mkt.changes["ETHUSDT"] = 2
	mkt.mu.Unlock()

	// Backdate the recorded time past the delay; the next full pass fires.
	key := strat.Entry.(types.MultiAssetCorrelation).DelayKey()
	m.mu.Lock()
	_, recorded := m.delays[key]
	require.True(t, recorded)
	m.delays[key] = time.Now().Add(-25 * time.Hour)
	m.mu.Unlock()

	m.tick(context.Background())
	require.Equal(t, 1, caught.count())
	assert.Equal(t, "SOLUSDT", caught.signals[0].Asset)

	// The record clears once fired.
	m.mu.Lock()
	_, still := m.delays[key]
	m.mu.Unlock()
	assert.False(t, still)
}

func TestHaltGatesEvaluation(t *testing.T) {
	mkt := newStubMarket()
	mkt.fresh["BTCUSDT"] = true
	mkt.changes["BTCUSDT"] = 5
	mkt.prices["BTCUSDT"] = 45000

	m, caught := newTestMonitor(&stubStrategies{active: []*types.Strategy{pctStrategy()}}, mkt, false)

	m.Halt("circuit breaker: test")
	m.tick(context.Background())
	assert.Zero(t, caught.count())

	m.Resume("operator")
	m.tick(context.Background())
	assert.Equal(t, 1, caught.count())
}

func TestFeedDisconnectGatesUntilStabilized(t *testing.T) {
	mkt := newStubMarket()
	mkt.fresh["BTCUSDT"] = true
	mkt.changes["BTCUSDT"] = 5
	mkt.prices["BTCUSDT"] = 45000

	connected := true
	strats := &stubStrategies{active: []*types.Strategy{pctStrategy()}}
	m := New(Config{
		Tick:          time.Second,
		Freshness:     10 * time.Second,
		Stabilization: 100 * time.Millisecond,
	}, strats, mkt, func() bool { return connected })
	caught := &capturedSignals{}
	m.SetHandler(caught.handler)

	m.OnFeedDisconnected(assert.AnError)
	m.tick(context.Background())
	assert.Zero(t, caught.count())

	m.OnFeedConnected()
	// Still gated inside the stabilization window.
	m.tick(context.Background())
	assert.Zero(t, caught.count())

	assert.Eventually(t, func() bool {
		m.tick(context.Background())
		return caught.count() > 0
	}, time.Second, 10*time.Millisecond)
}

func TestFeedFlapRestartsStabilizationWindow(t *testing.T) {
	mkt := newStubMarket()
	mkt.fresh["BTCUSDT"] = true
	mkt.changes["BTCUSDT"] = 5
	mkt.prices["BTCUSDT"] = 45000

	strats := &stubStrategies{active: []*types.Strategy{pctStrategy()}}
	m := New(Config{
		Tick:          time.Second,
		Freshness:     10 * time.Second,
		Stabilization: 200 * time.Millisecond,
	}, strats, mkt, func() bool { return true })
	caught := &capturedSignals{}
	m.SetHandler(caught.handler)

	m.OnFeedDisconnected(assert.AnError)
	m.OnFeedConnected()

	// The feed flaps before the first window elapses; the timer armed by the
	// first connect must not reopen the gate.
	time.Sleep(120 * time.Millisecond)
	m.OnFeedDisconnected(assert.AnError)
	m.OnFeedConnected()

	// Past the first timer's deadline but well inside the window restarted by
	// the latest connect: still gated.
	time.Sleep(130 * time.Millisecond)
	m.tick(context.Background())
	assert.Zero(t, caught.count())

	// A full window after the latest connect the gate reopens.
	assert.Eventually(t, func() bool {
		m.tick(context.Background())
		return caught.count() > 0
	}, time.Second, 10*time.Millisecond)
}
