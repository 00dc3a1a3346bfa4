// Package paper provides an in-memory order gateway that fills every order at
// the current feed price. It backs dry runs and tests.
package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/gateway/exchange"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

// PriceSource supplies the fill price, typically the indicator service.
type PriceSource interface {
	LastPrice(symbol string) (float64, error)
}

type Gateway struct {
	prices PriceSource

	mu      sync.Mutex
	balance float64
	fills   []exchange.Fill
}

func New(prices PriceSource, startingBalance float64) *Gateway {
	if startingBalance <= 0 {
		startingBalance = 100_000
	}
	return &Gateway{prices: prices, balance: startingBalance}
}

func (g *Gateway) Name() string { return "paper" }

func (g *Gateway) PlaceOrder(ctx context.Context, order exchange.Order) (exchange.Fill, error) {
	if err := ctx.Err(); err != nil {
		return exchange.Fill{}, &types.TransientNetworkError{Op: "paper place order", Err: err}
	}
	if order.Quantity <= 0 {
		return exchange.Fill{}, &types.ValidationError{Reason: "order quantity must be > 0"}
	}
	price, err := g.prices.LastPrice(order.Symbol)
	if err != nil {
		return exchange.Fill{}, fmt.Errorf("paper fill for %s: %w", order.Symbol, err)
	}
	fill := exchange.Fill{
		OrderID:     uuid.NewString(),
		FilledPrice: price,
		FilledSize:  order.Quantity,
		FilledAt:    time.Now(),
	}
	g.mu.Lock()
	g.fills = append(g.fills, fill)
	g.mu.Unlock()
	return fill, nil
}

func (g *Gateway) GetBalances(ctx context.Context) ([]exchange.Balance, error) {
	if err := ctx.Err(); err != nil {
		return nil, &types.TransientNetworkError{Op: "paper get balances", Err: err}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return []exchange.Balance{{
		Currency:  "USDT",
		Total:     g.balance,
		Available: g.balance,
		UpdatedAt: time.Now(),
	}}, nil
}

// Fills returns every fill recorded so far.
func (g *Gateway) Fills() []exchange.Fill {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]exchange.Fill, len(g.fills))
	copy(out, g.fills)
	return out
}
