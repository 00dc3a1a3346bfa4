package binance

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/gateway/exchange"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

// OrderGateway implements exchange.Gateway on Binance futures. Orders go out
// as market orders; retry policy stays with the executor.
type OrderGateway struct {
	client *futures.Client
}

func NewOrderGateway(cfg Config, apiKey, apiSecret string) *OrderGateway {
	final := cfg.withDefaults()
	client := futures.NewClient(apiKey, apiSecret)
	if base := strings.TrimSpace(final.RESTBaseURL); base != "" {
		client.BaseURL = base
	}
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &OrderGateway{client: client}
}

func (g *OrderGateway) Name() string { return "binance-futures" }

func (g *OrderGateway) PlaceOrder(ctx context.Context, order exchange.Order) (exchange.Fill, error) {
	side := futures.SideTypeBuy
	if order.Side == exchange.Sell {
		side = futures.SideTypeSell
	}
	svc := g.client.NewCreateOrderService().
		Symbol(strings.ToUpper(order.Symbol)).
		Side(side).
		Type(futures.OrderTypeMarket).
		Quantity(fmt.Sprintf("%.8f", order.Quantity)).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT)
	if order.ClientID != "" {
		svc = svc.NewClientOrderID(order.ClientID)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		if isTransient(err) {
			return exchange.Fill{}, &types.TransientNetworkError{Op: "place order", Err: err}
		}
		return exchange.Fill{}, fmt.Errorf("placing order for %s: %w", order.Symbol, err)
	}
	return exchange.Fill{
		OrderID:     fmt.Sprintf("%d", resp.OrderID),
		FilledPrice: parseFloat(resp.AvgPrice),
		FilledSize:  parseFloat(resp.ExecutedQuantity),
		FilledAt:    time.UnixMilli(resp.UpdateTime),
	}, nil
}

func (g *OrderGateway) GetBalances(ctx context.Context) ([]exchange.Balance, error) {
	balances, err := g.client.NewGetBalanceService().Do(ctx)
	if err != nil {
		if isTransient(err) {
			return nil, &types.TransientNetworkError{Op: "get balances", Err: err}
		}
		return nil, fmt.Errorf("fetching balances: %w", err)
	}
	now := time.Now()
	out := make([]exchange.Balance, 0, len(balances))
	for _, b := range balances {
		if b == nil {
			continue
		}
		total := parseFloat(b.Balance)
		available := parseFloat(b.AvailableBalance)
		out = append(out, exchange.Balance{
			Currency:  b.Asset,
			Total:     total,
			Available: available,
			Used:      total - available,
			UpdatedAt: now,
		})
	}
	return out, nil
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
