package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryAppendFoldsIntoBuckets(t *testing.T) {
	h := NewHistory(10, time.Minute)
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	h.Append("btcusdt", 100, 1, base)
	h.Append("BTCUSDT", 105, 1, base.Add(20*time.Second))
	h.Append("BTCUSDT", 95, 1, base.Add(40*time.Second))
	h.Append("BTCUSDT", 102, 1, base.Add(90*time.Second))

	series := h.Series("BTCUSDT")
	require.Len(t, series, 2)
	first := series[0]
	assert.Equal(t, 100.0, first.Open)
	assert.Equal(t, 105.0, first.High)
	assert.Equal(t, 95.0, first.Low)
	assert.Equal(t, 95.0, first.Close)
	assert.Equal(t, 3.0, first.Volume)
	assert.Equal(t, int64(3), first.Trades)
	assert.Equal(t, 102.0, series[1].Open)
}

func TestHistoryEvictsOldestAtCapacity(t *testing.T) {
	h := NewHistory(3, time.Minute)
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		h.Append("ETHUSDT", float64(100+i), 1, base.Add(time.Duration(i)*time.Minute))
	}
	series := h.Series("ETHUSDT")
	require.Len(t, series, 3)
	assert.Equal(t, 102.0, series[0].Close)
	assert.Equal(t, 104.0, series[2].Close)
}

func TestHistoryIgnoresNonPositivePrices(t *testing.T) {
	h := NewHistory(10, time.Minute)
	h.Append("BTCUSDT", 0, 1, time.Now())
	h.Append("BTCUSDT", -5, 1, time.Now())
	assert.Zero(t, h.Len("BTCUSDT"))
}

func TestHistoryPreloadTruncatesToCapacity(t *testing.T) {
	h := NewHistory(2, time.Minute)
	h.Preload("BTCUSDT", []Candle{{Close: 1}, {Close: 2}, {Close: 3}})
	series := h.Series("BTCUSDT")
	require.Len(t, series, 2)
	assert.Equal(t, 2.0, series[0].Close)
	assert.Equal(t, 3.0, series[1].Close)
}
