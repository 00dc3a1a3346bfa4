package types

import (
	"strings"
	"time"
)

type StrategyStatus string

const (
	StrategyPending  StrategyStatus = "pending"
	StrategyActive   StrategyStatus = "active"
	StrategyPaused   StrategyStatus = "paused"
	StrategyArchived StrategyStatus = "archived"
)

type StopLossType string

const (
	StopLossPercentage StopLossType = "percentage"
	StopLossATR        StopLossType = "atr"
)

// StopLoss protects every position. Value is a percentage for the percentage
// type and an ATR multiplier for the atr type. A zero Value is never valid on
// an active strategy.
type StopLoss struct {
	Type     StopLossType `json:"type"`
	Value    float64      `json:"value"`
	Trailing bool         `json:"is_trailing"`
}

type TakeProfit struct {
	Type  StopLossType `json:"type"`
	Value float64      `json:"value"`
}

// MaxHold limits holding time. Unit defaults to days.
type MaxHold struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// Duration converts the hold limit to a time.Duration.
func (m MaxHold) Duration() time.Duration {
	unit := strings.ToLower(strings.TrimSpace(m.Unit))
	switch unit {
	case "hours", "hour", "h":
		return time.Duration(m.Value * float64(time.Hour))
	case "minutes", "minute", "m":
		return time.Duration(m.Value * float64(time.Minute))
	default:
		return time.Duration(m.Value * 24 * float64(time.Hour))
	}
}

type ExitConditions struct {
	StopLoss   StopLoss    `json:"stop_loss"`
	TakeProfit *TakeProfit `json:"take_profit,omitempty"`
	MaxHold    *MaxHold    `json:"max_hold,omitempty"`
}

// Strategy is the unit the monitor evaluates and the executor trades.
// It is created pending by the external parser and becomes active only via
// explicit approval; strategies are never silently deleted.
type Strategy struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Status          StrategyStatus `json:"status"`
	Entry           EntryCondition `json:"-"`
	Exit            ExitConditions `json:"exit_conditions"`
	RequiredAssets  []string       `json:"required_assets"`
	PositionSizeUSD float64        `json:"position_size"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Approvable reports whether the strategy may be promoted to active.
// A strategy must never trade unprotected.
func (s *Strategy) Approvable() error {
	if s.Status != StrategyPending && s.Status != StrategyPaused {
		return &ValidationError{Reason: "only pending or paused strategies can be approved"}
	}
	if s.Exit.StopLoss.Value <= 0 {
		return &ValidationError{Reason: "strategy has no stop loss; refusing activation"}
	}
	if s.Entry == nil {
		return &ValidationError{Reason: "strategy has no entry condition"}
	}
	return s.Entry.Validate()
}
