package config

import "time"

// Config is the top-level configuration carrier.
type Config struct {
	App     AppConfig     `toml:"app"`
	Market  MarketConfig  `toml:"market"`
	Binance BinanceConfig `toml:"binance"`
	Monitor MonitorConfig `toml:"monitor"`
	Trading TradingConfig `toml:"trading"`
	Risk    RiskConfig    `toml:"risk"`
	Notify  NotifyConfig  `toml:"notify"`
	Store   StoreConfig   `toml:"store"`
	Parser  ParserConfig  `toml:"parser"`
	Ops     OpsConfig     `toml:"ops"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	// SeedStrategies optionally points at a YAML file of strategies loaded
	// as pending on first start.
	SeedStrategies string `toml:"seed_strategies"`
}

type MarketConfig struct {
	Symbols            []string `toml:"symbols"`
	HistoryInterval    string   `toml:"history_interval"`
	MaxCached          int      `toml:"max_cached"`
	HeartbeatSeconds   int      `toml:"heartbeat_seconds"`
	MaxReconnects      int      `toml:"max_reconnects"`
	MaxSpreadRatio     float64  `toml:"max_spread_ratio"`
	PreheatHistory     bool     `toml:"preheat_history"`
}

type BinanceConfig struct {
	RESTBaseURL    string `toml:"rest_base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	APIKey         string `toml:"api_key"`
	APISecret      string `toml:"api_secret"`
}

type MonitorConfig struct {
	TickSeconds          int     `toml:"tick_seconds"`
	FreshnessSeconds     int     `toml:"freshness_seconds"`
	StabilizationSeconds int     `toml:"stabilization_seconds"`
	CorrelationWindow    int     `toml:"correlation_window"`
	OneShotSignals       bool    `toml:"one_shot_signals"`
}

// TradingConfig controls execution mode and pre-trade guards.
type TradingConfig struct {
	Mode                string  `toml:"mode"` // "paper" | "live"
	DefaultPositionUSD  float64 `toml:"default_position_usd"`
	EntryFreshnessSecs  int     `toml:"entry_freshness_seconds"`
	MaxEntrySpreadPct   float64 `toml:"max_entry_spread_pct"`
	OrderTimeoutSeconds int     `toml:"order_timeout_seconds"`
	OrderRetries        int     `toml:"order_retries"`
	RetryBaseSeconds    int     `toml:"retry_base_seconds"`
	CloseRetrySeconds   int     `toml:"close_retry_seconds"`
	ATRPeriod           int     `toml:"atr_period"`
	ATRMultiplier       float64 `toml:"atr_multiplier"`
	FallbackStopPct     float64 `toml:"fallback_stop_pct"`
	TrackTickSeconds    int     `toml:"track_tick_seconds"`
}

// RiskConfig seeds the circuit breaker; LimitsPath points at the hot-reloaded
// limits file which overrides these when present.
type RiskConfig struct {
	LimitsPath            string  `toml:"limits_path"`
	DailyLossFloorUSD     float64 `toml:"daily_loss_floor_usd"`
	DailyLossFloorPct     float64 `toml:"daily_loss_floor_pct"`
	MaxFailedTradesHour   int     `toml:"max_failed_trades_hour"`
	MaxSystemErrors5Min   int     `toml:"max_system_errors_5min"`
	MaxConsecutiveStops   int     `toml:"max_consecutive_stops"`
	ExtremeMoveHourlyPct  float64 `toml:"extreme_move_hourly_pct"`
	PortfolioUSD          float64 `toml:"portfolio_usd"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type ParserConfig struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type OpsConfig struct {
	HTTPAddr          string `toml:"http_addr"`
	EmergencyAuthCode string `toml:"emergency_auth_code"`
}

func (m MarketConfig) Heartbeat() time.Duration {
	return time.Duration(m.HeartbeatSeconds) * time.Second
}

func (m MonitorConfig) Tick() time.Duration {
	return time.Duration(m.TickSeconds) * time.Second
}

func (m MonitorConfig) Freshness() time.Duration {
	return time.Duration(m.FreshnessSeconds) * time.Second
}

func (m MonitorConfig) Stabilization() time.Duration {
	return time.Duration(m.StabilizationSeconds) * time.Second
}

func (t TradingConfig) OrderTimeout() time.Duration {
	return time.Duration(t.OrderTimeoutSeconds) * time.Second
}

func (t TradingConfig) RetryBase() time.Duration {
	return time.Duration(t.RetryBaseSeconds) * time.Second
}

func (t TradingConfig) CloseRetryInterval() time.Duration {
	return time.Duration(t.CloseRetrySeconds) * time.Second
}

func (t TradingConfig) TrackTick() time.Duration {
	return time.Duration(t.TrackTickSeconds) * time.Second
}

func (t TradingConfig) EntryFreshness() time.Duration {
	return time.Duration(t.EntryFreshnessSecs) * time.Second
}
