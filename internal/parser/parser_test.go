package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

func TestParseWithoutServiceFallsBack(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)

	entry, exit, degraded := c.Parse(context.Background(), "buy when btc dips", nil)
	assert.True(t, degraded)
	assert.Equal(t, FallbackEntry(), entry)
	assert.Equal(t, FallbackExit(), exit)
}

func TestParseRemoteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{
			"entry_condition": {
				"type": "percentage_move",
				"data": {"asset": "ETHUSDT", "threshold": 3, "direction": "down", "timeframe": "4h"}
			},
			"exit_conditions": {
				"stop_loss": {"type": "percentage", "value": 1.5, "is_trailing": true},
				"take_profit": {"type": "percentage", "value": 5}
			}
		}`))
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)

	entry, exit, degraded := c.Parse(context.Background(), "short eth on a 3% drop", nil)
	require.False(t, degraded)

	pm, ok := entry.(types.PercentageMove)
	require.True(t, ok)
	assert.Equal(t, "ETHUSDT", pm.Asset)
	assert.Equal(t, 3.0, pm.ThresholdPct)
	assert.Equal(t, types.DirectionDown, pm.Direction)
	assert.Equal(t, "4h", pm.Timeframe)

	assert.Equal(t, 1.5, exit.StopLoss.Value)
	assert.True(t, exit.StopLoss.Trailing)
	require.NotNil(t, exit.TakeProfit)
	assert.Equal(t, 5.0, exit.TakeProfit.Value)
}

func TestParseUnknownVariantFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"entry_condition": {"type": "moon_phase", "data": {}}}`))
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	entry, _, degraded := c.Parse(context.Background(), "buy on a full moon", nil)
	assert.True(t, degraded)
	assert.Equal(t, FallbackEntry(), entry)
}

func TestParseServerErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	_, exit, degraded := c.Parse(context.Background(), "anything", nil)
	assert.True(t, degraded)
	assert.Equal(t, FallbackExit(), exit)
}

func TestParseMissingStopLossKeepsFallbackExit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{
			"entry_condition": {
				"type": "percentage_move",
				"data": {"asset": "BTCUSDT", "threshold": 2, "direction": "up", "timeframe": "1h"}
			},
			"exit_conditions": {"take_profit": {"type": "percentage", "value": 10}}
		}`))
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	_, exit, degraded := c.Parse(context.Background(), "ride it up", nil)
	require.False(t, degraded)
	assert.Equal(t, FallbackExit(), exit)
}
