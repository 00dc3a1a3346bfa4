package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "trading.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleStrategy(id string) *types.Strategy {
	return &types.Strategy{
		ID:     id,
		Name:   "btc momentum",
		Status: types.StrategyPending,
		Entry: types.PercentageMove{
			Asset:        "BTCUSDT",
			ThresholdPct: 2,
			Direction:    types.DirectionUp,
			Timeframe:    "1h",
		},
		Exit: types.ExitConditions{
			StopLoss:   types.StopLoss{Type: types.StopLossPercentage, Value: 2, Trailing: true},
			TakeProfit: &types.TakeProfit{Type: types.StopLossPercentage, Value: 4},
		},
		RequiredAssets:  []string{"BTCUSDT"},
		PositionSizeUSD: 500,
	}
}

func TestSaveAndGetRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleStrategy("s1")))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "btc momentum", got.Name)
	assert.Equal(t, types.StrategyPending, got.Status)
	assert.Equal(t, []string{"BTCUSDT"}, got.RequiredAssets)
	assert.Equal(t, 500.0, got.PositionSizeUSD)

	pm, ok := got.Entry.(types.PercentageMove)
	require.True(t, ok)
	assert.Equal(t, "BTCUSDT", pm.Asset)
	assert.Equal(t, types.DirectionUp, pm.Direction)

	assert.True(t, got.Exit.StopLoss.Trailing)
	require.NotNil(t, got.Exit.TakeProfit)
	assert.Equal(t, 4.0, got.Exit.TakeProfit.Value)
}

func TestGetUnknownStrategy(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	assert.Error(t, err)
}

func TestApproveRequiresStopLoss(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	noStop := sampleStrategy("s1")
	noStop.Exit.StopLoss = types.StopLoss{}
	require.NoError(t, s.Save(ctx, noStop))

	err := s.Approve(ctx, "s1")
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))

	ok := sampleStrategy("s2")
	require.NoError(t, s.Save(ctx, ok))
	require.NoError(t, s.Approve(ctx, "s2"))

	got, err := s.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, types.StrategyActive, got.Status)
}

func TestPauseResumeLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	strat := sampleStrategy("s1")
	require.NoError(t, s.Save(ctx, strat))
	require.NoError(t, s.Approve(ctx, "s1"))

	require.NoError(t, s.Pause(ctx, "s1", "operator request"))
	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	// Resuming a strategy that is not paused is a validation failure.
	err = s.Resume(ctx, "s1")
	require.NoError(t, err)
	err = s.Resume(ctx, "s1")
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))

	active, err = s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "s1", active[0].ID)
}

func TestPauseActiveCountsRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, s.Save(ctx, sampleStrategy(id)))
		require.NoError(t, s.Approve(ctx, id))
	}
	require.NoError(t, s.Save(ctx, sampleStrategy("pending")))

	n, err := s.PauseActive(ctx, "circuit breaker")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	pending, err := s.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestPositionUpsertAndListOpen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &types.Position{
		ID:           "p1",
		StrategyID:   "s1",
		Asset:        "BTCUSDT",
		Side:         types.SideLong,
		EntryPrice:   45000,
		CurrentPrice: 45000,
		Quantity:     0.01,
		TrailingStop: 44100,
		Status:       types.PositionOpen,
		EntryTime:    time.Now().UTC(),
	}
	require.NoError(t, s.UpsertPosition(ctx, p))

	open, err := s.ListOpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, 44100.0, open[0].TrailingStop)

	// Raising the stop and closing later both go through the same upsert.
	p.TrailingStop = 45100
	require.NoError(t, s.UpsertPosition(ctx, p))
	open, err = s.ListOpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, 45100.0, open[0].TrailingStop)

	now := time.Now().UTC()
	p.Status = types.PositionClosed
	p.ExitTime = &now
	p.ExitPrice = 46800
	p.PnL = 18
	require.NoError(t, s.UpsertPosition(ctx, p))

	open, err = s.ListOpenPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestRecordEvent(t *testing.T) {
	s := newTestStore(t)
	err := s.RecordEvent(context.Background(), "position_opened", map[string]any{
		"position_id": "p1",
		"asset":       "BTCUSDT",
	})
	assert.NoError(t, err)
}
