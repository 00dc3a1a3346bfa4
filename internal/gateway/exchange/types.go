// Package exchange defines the order-gateway abstraction. The decision loop
// only ever talks to this interface so exchange backends can be swapped
// without touching execution logic.
package exchange

import (
	"context"
	"time"
)

type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

// Order is a market-order request sized in base units.
type Order struct {
	ClientID string    // Idempotency key supplied by the executor
	Symbol   string    // e.g. "BTCUSDT"
	Side     OrderSide
	Quantity float64
	Reason   string // Tag carried through for logging
}

// Fill is the confirmed execution of an Order.
type Fill struct {
	OrderID     string
	FilledPrice float64
	FilledSize  float64
	FilledAt    time.Time
}

// Balance is the account snapshot returned by GetBalances.
type Balance struct {
	Currency  string
	Total     float64
	Available float64
	Used      float64
	UpdatedAt time.Time
}

// Gateway places orders and reports balances. Every call must honor the
// context deadline. Implementations never retry internally; retry policy
// belongs to the executor.
type Gateway interface {
	Name() string

	PlaceOrder(ctx context.Context, order Order) (Fill, error)

	GetBalances(ctx context.Context) ([]Balance, error)
}
