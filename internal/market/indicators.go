package market

import (
	"fmt"
	"math"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

// QuoteReader is the slice of the feed the indicator service needs.
type QuoteReader interface {
	Quote(symbol string) (Quote, bool)
}

// Indicators derives decision inputs (ATR, correlation, percentage move,
// freshness, spread) from the price history and the live quote table.
type Indicators struct {
	history *History
	quotes  QuoteReader
	nowFn   func() time.Time
}

func NewIndicators(history *History, quotes QuoteReader) *Indicators {
	return &Indicators{
		history: history,
		quotes:  quotes,
		nowFn:   time.Now,
	}
}

func (s *Indicators) History() *History { return s.history }

// LastPrice prefers the live quote, falling back to the last cached close.
func (s *Indicators) LastPrice(symbol string) (float64, error) {
	if q, ok := s.quotes.Quote(symbol); ok {
		return q.Price, nil
	}
	series := s.history.Series(symbol)
	if len(series) == 0 {
		return 0, &types.DataIntegrityError{Reason: fmt.Sprintf("%s: no price data", symbol)}
	}
	return series[len(series)-1].Close, nil
}

// Fresh reports whether the symbol's latest quote is at most maxAge old.
// No quote at all is never fresh.
func (s *Indicators) Fresh(symbol string, maxAge time.Duration) bool {
	q, ok := s.quotes.Quote(symbol)
	if !ok {
		return false
	}
	return q.Age(s.nowFn()) <= maxAge
}

// SpreadPct returns the live spread as a percentage of price.
func (s *Indicators) SpreadPct(symbol string) (float64, error) {
	q, ok := s.quotes.Quote(symbol)
	if !ok {
		return 0, &types.DataIntegrityError{Reason: fmt.Sprintf("%s: no live quote for spread", symbol)}
	}
	return q.SpreadPct(), nil
}

// ChangePct computes the percentage move over the timeframe ending now.
// The base price is the close of the newest candle at or before now-timeframe.
func (s *Indicators) ChangePct(symbol string, timeframe time.Duration) (float64, error) {
	if timeframe <= 0 {
		return 0, &types.DataIntegrityError{Reason: "timeframe must be positive"}
	}
	series := s.history.Series(symbol)
	if len(series) == 0 {
		return 0, &types.DataIntegrityError{Reason: fmt.Sprintf("%s: no history", symbol)}
	}
	cutoff := s.nowFn().Add(-timeframe).UnixMilli()
	base := 0.0
	for i := len(series) - 1; i >= 0; i-- {
		if series[i].OpenTime <= cutoff {
			base = series[i].Close
			break
		}
	}
	if base <= 0 {
		return 0, &types.DataIntegrityError{Reason: fmt.Sprintf("%s: insufficient history for %s window", symbol, timeframe)}
	}
	current, err := s.LastPrice(symbol)
	if err != nil {
		return 0, err
	}
	return (current - base) / base * 100, nil
}

// ATR returns the latest average true range over period candles.
// Fewer than period+1 samples is a data-integrity failure, not a zero.
func (s *Indicators) ATR(symbol string, period int) (float64, error) {
	if period <= 0 {
		period = 14
	}
	series := s.history.Series(symbol)
	if len(series) < period+1 {
		return 0, &types.DataIntegrityError{
			Reason: fmt.Sprintf("%s: ATR(%d) needs %d samples, have %d", symbol, period, period+1, len(series)),
		}
	}
	highs := make([]float64, len(series))
	lows := make([]float64, len(series))
	closes := make([]float64, len(series))
	for i, c := range series {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
	}
	atr := talib.Atr(highs, lows, closes, period)
	for i := len(atr) - 1; i >= 0; i-- {
		v := atr[i]
		if v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v, nil
		}
	}
	return 0, &types.DataIntegrityError{Reason: fmt.Sprintf("%s: ATR(%d) produced no valid value", symbol, period)}
}

// Correlation returns the Pearson correlation of the two symbols' closes over
// the trailing window candles.
func (s *Indicators) Correlation(a, b string, window int) (float64, error) {
	if window < 2 {
		return 0, &types.DataIntegrityError{Reason: "correlation window must be >= 2"}
	}
	sa := s.history.Series(a)
	sb := s.history.Series(b)
	if len(sa) < window || len(sb) < window {
		return 0, &types.DataIntegrityError{
			Reason: fmt.Sprintf("correlation(%s,%s) needs %d samples, have %d/%d", a, b, window, len(sa), len(sb)),
		}
	}
	ca := make([]float64, window)
	cb := make([]float64, window)
	for i := 0; i < window; i++ {
		ca[i] = sa[len(sa)-window+i].Close
		cb[i] = sb[len(sb)-window+i].Close
	}
	corr := talib.Correl(ca, cb, window)
	v := corr[len(corr)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &types.DataIntegrityError{Reason: fmt.Sprintf("correlation(%s,%s) is undefined on this window", a, b)}
	}
	return v, nil
}
