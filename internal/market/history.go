package market

import (
	"strings"
	"sync"
	"time"
)

// History keeps a bounded per-symbol candle series, FIFO-evicted at capacity.
// Live ticks are aggregated into fixed buckets so tick-rate input cannot blow
// past the capacity in seconds.
type History struct {
	mu     sync.RWMutex
	max    int
	bucket time.Duration
	series map[string][]Candle
}

func NewHistory(max int, bucket time.Duration) *History {
	if max <= 0 {
		max = 1000
	}
	if bucket <= 0 {
		bucket = time.Minute
	}
	return &History{
		max:    max,
		bucket: bucket,
		series: make(map[string][]Candle),
	}
}

// Preload seeds the series with fetched candles, keeping at most max.
func (h *History) Preload(symbol string, candles []Candle) {
	symbol = strings.ToUpper(symbol)
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(candles) > h.max {
		candles = candles[len(candles)-h.max:]
	}
	cp := make([]Candle, len(candles))
	copy(cp, candles)
	h.series[symbol] = cp
}

// Append folds a tick into the bucket covering ts, opening a new candle when
// the bucket rolls over and evicting the oldest candle at capacity.
func (h *History) Append(symbol string, price, qty float64, ts time.Time) {
	if price <= 0 {
		return
	}
	symbol = strings.ToUpper(symbol)
	open := ts.Truncate(h.bucket)
	openMs := open.UnixMilli()
	closeMs := open.Add(h.bucket).UnixMilli() - 1

	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.series[symbol]
	if n := len(s); n > 0 && s[n-1].OpenTime == openMs {
		c := &s[n-1]
		if price > c.High {
			c.High = price
		}
		if price < c.Low {
			c.Low = price
		}
		c.Close = price
		c.Volume += qty
		c.Trades++
		return
	}
	s = append(s, Candle{
		OpenTime:  openMs,
		CloseTime: closeMs,
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		Volume:    qty,
		Trades:    1,
	})
	if len(s) > h.max {
		s = s[len(s)-h.max:]
	}
	h.series[symbol] = s
}

// Series returns a copy of the symbol's candles, oldest first.
func (h *History) Series(symbol string) []Candle {
	symbol = strings.ToUpper(symbol)
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := h.series[symbol]
	if len(s) == 0 {
		return nil
	}
	out := make([]Candle, len(s))
	copy(out, s)
	return out
}

// Len reports the number of cached candles for symbol.
func (h *History) Len(symbol string) int {
	symbol = strings.ToUpper(symbol)
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.series[symbol])
}
