package signallog

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "signals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndRecent(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Record(ctx, types.EntrySignal{
			StrategyID: fmt.Sprintf("s%d", i),
			Asset:      "BTCUSDT",
			Price:      45000 + float64(i),
			ChangePct:  2.5,
			Reason:     "threshold crossed",
			At:         time.Now(),
		}))
	}

	got, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Newest first.
	assert.Equal(t, "s2", got[0].StrategyID)
	assert.Equal(t, "s0", got[2].StrategyID)
	assert.Equal(t, 45002.0, got[0].Price)
}

func TestRecentHonorsLimit(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Record(ctx, types.EntrySignal{StrategyID: "s", Asset: "ETHUSDT", At: time.Now()}))
	}

	got, err := l.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRecentEmpty(t *testing.T) {
	l := newTestLog(t)
	got, err := l.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
