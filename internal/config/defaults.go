package config

import "github.com/SagarFieldElevate/LiveTradingApp/internal/pkg/symbol"

func (c *Config) applyDefaults() {
	for i, s := range c.Market.Symbols {
		c.Market.Symbols[i] = symbol.Normalize(s)
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Market.HistoryInterval == "" {
		c.Market.HistoryInterval = "1m"
	}
	if c.Market.MaxCached <= 0 {
		c.Market.MaxCached = 1000
	}
	if c.Market.HeartbeatSeconds <= 0 {
		c.Market.HeartbeatSeconds = 30
	}
	if c.Market.MaxReconnects <= 0 {
		c.Market.MaxReconnects = 5
	}
	if c.Market.MaxSpreadRatio <= 0 {
		c.Market.MaxSpreadRatio = 0.10
	}
	if c.Binance.TimeoutSeconds <= 0 {
		c.Binance.TimeoutSeconds = 10
	}
	if c.Monitor.TickSeconds <= 0 {
		c.Monitor.TickSeconds = 5
	}
	if c.Monitor.FreshnessSeconds <= 0 {
		c.Monitor.FreshnessSeconds = 10
	}
	if c.Monitor.StabilizationSeconds <= 0 {
		c.Monitor.StabilizationSeconds = 10
	}
	if c.Monitor.CorrelationWindow <= 0 {
		c.Monitor.CorrelationWindow = 30
	}
	if c.Trading.Mode == "" {
		c.Trading.Mode = "paper"
	}
	if c.Trading.DefaultPositionUSD <= 0 {
		c.Trading.DefaultPositionUSD = 1000
	}
	if c.Trading.EntryFreshnessSecs <= 0 {
		c.Trading.EntryFreshnessSecs = 5
	}
	if c.Trading.MaxEntrySpreadPct <= 0 {
		c.Trading.MaxEntrySpreadPct = 0.5
	}
	if c.Trading.OrderTimeoutSeconds <= 0 {
		c.Trading.OrderTimeoutSeconds = 10
	}
	if c.Trading.OrderRetries <= 0 {
		c.Trading.OrderRetries = 3
	}
	if c.Trading.RetryBaseSeconds <= 0 {
		c.Trading.RetryBaseSeconds = 1
	}
	if c.Trading.CloseRetrySeconds <= 0 {
		c.Trading.CloseRetrySeconds = 5
	}
	if c.Trading.ATRPeriod <= 0 {
		c.Trading.ATRPeriod = 14
	}
	if c.Trading.ATRMultiplier <= 0 {
		c.Trading.ATRMultiplier = 2
	}
	if c.Trading.FallbackStopPct <= 0 {
		c.Trading.FallbackStopPct = 2
	}
	if c.Trading.TrackTickSeconds <= 0 {
		c.Trading.TrackTickSeconds = 5
	}
	if c.Risk.DailyLossFloorUSD >= 0 {
		c.Risk.DailyLossFloorUSD = -2000
	}
	if c.Risk.DailyLossFloorPct >= 0 {
		c.Risk.DailyLossFloorPct = -5
	}
	if c.Risk.MaxFailedTradesHour <= 0 {
		c.Risk.MaxFailedTradesHour = 5
	}
	if c.Risk.MaxSystemErrors5Min <= 0 {
		c.Risk.MaxSystemErrors5Min = 10
	}
	if c.Risk.MaxConsecutiveStops <= 0 {
		c.Risk.MaxConsecutiveStops = 3
	}
	if c.Risk.ExtremeMoveHourlyPct <= 0 {
		c.Risk.ExtremeMoveHourlyPct = 10
	}
	if c.Store.Path == "" {
		c.Store.Path = "data/livetrader.db"
	}
	if c.Parser.TimeoutSeconds <= 0 {
		c.Parser.TimeoutSeconds = 10
	}
	if c.Ops.HTTPAddr == "" {
		c.Ops.HTTPAddr = ":8085"
	}
}
