package market

import (
	"fmt"
	"math"
	"time"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

// Quote is the last observed price for a symbol. Quotes are ephemeral:
// last-value-wins per symbol, and the whole table is discarded on disconnect.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
	Sequence  int64     `json:"sequence,omitempty"`
}

// SpreadPct returns the bid/ask spread as a percentage of price.
func (q Quote) SpreadPct() float64 {
	if q.Price <= 0 {
		return 0
	}
	return (q.Ask - q.Bid) / q.Price * 100
}

// Age reports how stale the quote is as of now.
func (q Quote) Age(now time.Time) time.Duration {
	return now.Sub(q.Timestamp)
}

// Validate rejects quotes with non-positive or non-finite prices, or a spread
// wider than maxSpreadRatio of price (default 0.10).
func (q Quote) Validate(maxSpreadRatio float64) error {
	if maxSpreadRatio <= 0 {
		maxSpreadRatio = 0.10
	}
	for _, v := range []float64{q.Price, q.Bid, q.Ask} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &types.DataIntegrityError{Reason: fmt.Sprintf("%s: non-finite quote value", q.Symbol)}
		}
		if v <= 0 {
			return &types.DataIntegrityError{Reason: fmt.Sprintf("%s: non-positive quote value", q.Symbol)}
		}
	}
	if (q.Ask-q.Bid)/q.Price > maxSpreadRatio {
		return &types.DataIntegrityError{Reason: fmt.Sprintf("%s: spread %.2f%% exceeds %.0f%% of price", q.Symbol, q.SpreadPct(), maxSpreadRatio*100)}
	}
	return nil
}
