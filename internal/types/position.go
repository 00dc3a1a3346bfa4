package types

import "time"

type PositionSide string

const (
	SideLong  PositionSide = "long"
	SideShort PositionSide = "short"
)

type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// Position is created by the executor on fill, mutated by the tracker each
// tick and terminated by the executor on a confirmed close. The trailing stop
// of an open long position never moves down.
type Position struct {
	ID               string         `json:"id"`
	StrategyID       string         `json:"strategy_id"`
	Asset            string         `json:"asset"`
	Side             PositionSide   `json:"side"`
	EntryPrice       float64        `json:"entry_price"`
	CurrentPrice     float64        `json:"current_price"`
	Quantity         float64        `json:"quantity"`
	TrailingStop     float64        `json:"trailing_stop_price"`
	TakeProfitPrice  float64        `json:"take_profit_price,omitempty"`
	Status           PositionStatus `json:"status"`
	EntryTime        time.Time      `json:"entry_time"`
	ExitTime         *time.Time     `json:"exit_time,omitempty"`
	ExitPrice        float64        `json:"exit_price,omitempty"`
	PnL              float64        `json:"pnl,omitempty"`
}

// UnrealizedPnL values the position at its current price.
func (p *Position) UnrealizedPnL() float64 {
	if p.Status != PositionOpen || p.EntryPrice <= 0 {
		return 0
	}
	diff := p.CurrentPrice - p.EntryPrice
	if p.Side == SideShort {
		diff = -diff
	}
	return diff * p.Quantity
}

// HoldingTime reports how long the position has been open as of now.
func (p *Position) HoldingTime(now time.Time) time.Duration {
	if p.EntryTime.IsZero() {
		return 0
	}
	return now.Sub(p.EntryTime)
}

// PositionSnapshot is the observer-facing view published after each tracker tick.
type PositionSnapshot struct {
	ID              string       `json:"id"`
	StrategyID      string       `json:"strategy_id"`
	Asset           string       `json:"asset"`
	Side            PositionSide `json:"side"`
	EntryPrice      float64      `json:"entry_price"`
	CurrentPrice    float64      `json:"current_price"`
	Quantity        float64      `json:"quantity"`
	TrailingStop    float64      `json:"trailing_stop_price"`
	TakeProfitPrice float64      `json:"take_profit_price,omitempty"`
	UnrealizedPnL   float64      `json:"unrealized_pnl"`
	HoldingMs       int64        `json:"holding_ms"`
}

// Snapshot captures the observer view at the given time.
func (p *Position) Snapshot(now time.Time) PositionSnapshot {
	return PositionSnapshot{
		ID:              p.ID,
		StrategyID:      p.StrategyID,
		Asset:           p.Asset,
		Side:            p.Side,
		EntryPrice:      p.EntryPrice,
		CurrentPrice:    p.CurrentPrice,
		Quantity:        p.Quantity,
		TrailingStop:    p.TrailingStop,
		TakeProfitPrice: p.TakeProfitPrice,
		UnrealizedPnL:   p.UnrealizedPnL(),
		HoldingMs:       p.HoldingTime(now).Milliseconds(),
	}
}
