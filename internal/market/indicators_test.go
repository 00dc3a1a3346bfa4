package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

type quoteTable map[string]Quote

func (q quoteTable) Quote(symbol string) (Quote, bool) {
	v, ok := q[symbol]
	return v, ok
}

func seededIndicators(t *testing.T, quotes quoteTable) (*Indicators, time.Time) {
	t.Helper()
	h := NewHistory(100, time.Minute)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	ind := NewIndicators(h, quotes)
	ind.nowFn = func() time.Time { return now }
	return ind, now
}

func TestLastPricePrefersLiveQuote(t *testing.T) {
	quotes := quoteTable{}
	ind, now := seededIndicators(t, quotes)
	quotes["BTCUSDT"] = Quote{Symbol: "BTCUSDT", Price: 45000, Timestamp: now}
	ind.History().Append("BTCUSDT", 44000, 1, now.Add(-time.Minute))

	price, err := ind.LastPrice("BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 45000.0, price)
}

func TestLastPriceFallsBackToHistory(t *testing.T) {
	ind, now := seededIndicators(t, quoteTable{})
	ind.History().Append("BTCUSDT", 44000, 1, now.Add(-time.Minute))

	price, err := ind.LastPrice("BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 44000.0, price)

	_, err = ind.LastPrice("ETHUSDT")
	assert.True(t, types.IsDataIntegrity(err))
}

func TestFresh(t *testing.T) {
	quotes := quoteTable{}
	ind, now := seededIndicators(t, quotes)
	quotes["FRESH"] = Quote{Symbol: "FRESH", Price: 1, Timestamp: now.Add(-3 * time.Second)}
	quotes["STALE"] = Quote{Symbol: "STALE", Price: 1, Timestamp: now.Add(-30 * time.Second)}
	assert.True(t, ind.Fresh("FRESH", 5*time.Second))
	assert.False(t, ind.Fresh("STALE", 5*time.Second))
	assert.False(t, ind.Fresh("MISSING", 5*time.Second))
}

func TestChangePct(t *testing.T) {
	quotes := quoteTable{}
	ind, now := seededIndicators(t, quotes)
	quotes["BTCUSDT"] = Quote{Symbol: "BTCUSDT", Price: 102, Timestamp: now}
	h := ind.History()
	for i := 120; i > 0; i-- {
		h.Append("BTCUSDT", 100, 1, now.Add(-time.Duration(i)*time.Minute))
	}

	change, err := ind.ChangePct("BTCUSDT", time.Hour)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, change, 1e-9)

	t.Run("insufficient history is a data error", func(t *testing.T) {
		_, err := ind.ChangePct("BTCUSDT", 72*time.Hour)
		assert.True(t, types.IsDataIntegrity(err))
	})
}

func TestATRNeedsPeriodPlusOneSamples(t *testing.T) {
	ind, now := seededIndicators(t, quoteTable{})
	h := ind.History()
	for i := 0; i < 14; i++ {
		h.Append("BTCUSDT", 100, 1, now.Add(time.Duration(i)*time.Minute))
	}
	_, err := ind.ATR("BTCUSDT", 14)
	assert.True(t, types.IsDataIntegrity(err))
}

func TestATRConstantStepSeries(t *testing.T) {
	// A monotone series with a constant 10-point step has a true range of 10
	// everywhere, so any averaging scheme must return 10.
	ind, now := seededIndicators(t, quoteTable{})
	candles := make([]Candle, 40)
	price := 1000.0
	for i := range candles {
		open := now.Add(time.Duration(i-40) * time.Minute)
		candles[i] = Candle{
			OpenTime:  open.UnixMilli(),
			CloseTime: open.Add(time.Minute).UnixMilli() - 1,
			Open:      price,
			High:      price + 10,
			Low:       price,
			Close:     price + 10,
		}
		price += 10
	}
	ind.History().Preload("BTCUSDT", candles)

	atr, err := ind.ATR("BTCUSDT", 14)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, atr, 1e-6)
}

func TestCorrelation(t *testing.T) {
	ind, now := seededIndicators(t, quoteTable{})
	h := ind.History()
	for i := 0; i < 30; i++ {
		ts := now.Add(time.Duration(i) * time.Minute)
		h.Append("AAA", float64(100+i), 1, ts)
		h.Append("BBB", float64(200+2*i), 1, ts)
		h.Append("CCC", float64(500-i), 1, ts)
	}

	corr, err := ind.Correlation("AAA", "BBB", 30)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, corr, 1e-6)

	inv, err := ind.Correlation("AAA", "CCC", 30)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, inv, 1e-6)

	_, err = ind.Correlation("AAA", "MISSING", 30)
	assert.True(t, types.IsDataIntegrity(err))
}
