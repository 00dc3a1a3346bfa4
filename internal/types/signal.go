package types

import "time"

// EntrySignal is emitted by the condition monitor when a strategy's entry
// condition is satisfied on a tick.
type EntrySignal struct {
	StrategyID string    `json:"strategy_id"`
	Asset      string    `json:"asset"`
	Price      float64   `json:"price"`
	ChangePct  float64   `json:"change_pct"`
	Reason     string    `json:"reason"`
	At         time.Time `json:"at"`
}
