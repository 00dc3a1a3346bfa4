package model

import (
	"time"

	"gorm.io/datatypes"
)

// StrategyModel is the persisted form of types.Strategy; conditions live in
// JSON columns so the tagged union survives schema changes.
type StrategyModel struct {
	ID              string         `gorm:"column:id;primaryKey"`
	Name            string         `gorm:"column:name"`
	Status          string         `gorm:"column:status;index"`
	EntryJSON       datatypes.JSON `gorm:"column:entry_json"`
	ExitJSON        datatypes.JSON `gorm:"column:exit_json"`
	RequiredAssets  datatypes.JSON `gorm:"column:required_assets"`
	PositionSizeUSD float64        `gorm:"column:position_size_usd"`
	PauseReason     string         `gorm:"column:pause_reason"`
	CreatedAt       time.Time      `gorm:"column:created_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at"`
}

func (StrategyModel) TableName() string { return "strategies" }

type PositionModel struct {
	ID              string     `gorm:"column:id;primaryKey"`
	StrategyID      string     `gorm:"column:strategy_id;index"`
	Asset           string     `gorm:"column:asset"`
	Side            string     `gorm:"column:side"`
	EntryPrice      float64    `gorm:"column:entry_price"`
	CurrentPrice    float64    `gorm:"column:current_price"`
	Quantity        float64    `gorm:"column:quantity"`
	TrailingStop    float64    `gorm:"column:trailing_stop_price"`
	TakeProfitPrice float64    `gorm:"column:take_profit_price"`
	Status          string     `gorm:"column:status;index"`
	EntryTime       time.Time  `gorm:"column:entry_time"`
	ExitTime        *time.Time `gorm:"column:exit_time"`
	ExitPrice       float64    `gorm:"column:exit_price"`
	PnL             float64    `gorm:"column:pnl"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (PositionModel) TableName() string { return "positions" }

// EventModel journals loop events (signals, fills, trips) for audit.
type EventModel struct {
	ID        int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Kind      string         `gorm:"column:kind;index"`
	Payload   datatypes.JSON `gorm:"column:payload"`
	CreatedAt time.Time      `gorm:"column:created_at;index"`
}

func (EventModel) TableName() string { return "events" }
