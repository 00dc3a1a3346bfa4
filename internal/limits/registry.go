// Package limits holds the risk thresholds the circuit breaker and executor
// consult. Limits load from a YAML file and hot-reload on change so operators
// can tighten them without a restart.
package limits

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/logger"
)

// Limits are the live risk thresholds. DailyLossFloor values are negative.
type Limits struct {
	DailyLossFloorUSD    float64 `mapstructure:"daily_loss_floor_usd" yaml:"daily_loss_floor_usd"`
	DailyLossFloorPct    float64 `mapstructure:"daily_loss_floor_pct" yaml:"daily_loss_floor_pct"`
	MaxFailedTradesHour  int     `mapstructure:"max_failed_trades_hour" yaml:"max_failed_trades_hour"`
	MaxSystemErrors5Min  int     `mapstructure:"max_system_errors_5min" yaml:"max_system_errors_5min"`
	MaxConsecutiveStops  int     `mapstructure:"max_consecutive_stops" yaml:"max_consecutive_stops"`
	ExtremeMoveHourlyPct float64 `mapstructure:"extreme_move_hourly_pct" yaml:"extreme_move_hourly_pct"`
	PortfolioUSD         float64 `mapstructure:"portfolio_usd" yaml:"portfolio_usd"`
}

func (l Limits) validate() error {
	if l.DailyLossFloorUSD >= 0 {
		return fmt.Errorf("daily_loss_floor_usd must be negative")
	}
	if l.MaxFailedTradesHour <= 0 || l.MaxSystemErrors5Min <= 0 || l.MaxConsecutiveStops <= 0 {
		return fmt.Errorf("counting limits must be positive")
	}
	if l.ExtremeMoveHourlyPct <= 0 {
		return fmt.Errorf("extreme_move_hourly_pct must be positive")
	}
	return nil
}

// Provider exposes the current limits.
type Provider interface {
	Current() Limits
}

// Static wraps fixed limits, used when no limits file is configured.
type Static struct{ L Limits }

func (s Static) Current() Limits { return s.L }

// Registry watches a limits file and swaps in valid updates atomically.
// Invalid updates are logged and ignored; the previous limits stay in force.
type Registry struct {
	mu      sync.RWMutex
	current Limits
}

// NewRegistry loads path and starts watching it. The seed limits apply until
// the file provides valid ones, and remain the fallback on bad reloads.
func NewRegistry(path string, seed Limits) (*Registry, error) {
	r := &Registry{current: seed}
	path = strings.TrimSpace(path)
	if path == "" {
		return r, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading limits file %s: %w", path, err)
	}
	if err := r.apply(v); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := v.ReadInConfig(); err != nil {
			logger.Warnf("limits: reload read failed (%s): %v", evt.Name, err)
			return
		}
		if err := r.apply(v); err != nil {
			logger.Warnf("limits: reload rejected, keeping previous limits: %v", err)
			return
		}
		logger.Infof("limits: reloaded from %s", evt.Name)
	})
	v.WatchConfig()
	return r, nil
}

func (r *Registry) apply(v *viper.Viper) error {
	next := r.Current()
	if err := v.Unmarshal(&next, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return fmt.Errorf("decoding limits: %w", err)
	}
	if err := next.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.current = next
	r.mu.Unlock()
	return nil
}

func (r *Registry) Current() Limits {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}
