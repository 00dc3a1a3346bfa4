package config

import (
	"fmt"
	"strings"
)

func validate(cfg *Config) error {
	if len(cfg.Market.Symbols) == 0 {
		return fmt.Errorf("market.symbols cannot be empty")
	}
	for _, s := range cfg.Market.Symbols {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("market.symbols contains an empty symbol")
		}
	}
	switch cfg.Trading.Mode {
	case "paper", "live":
	default:
		return fmt.Errorf("trading.mode must be \"paper\" or \"live\", got %q", cfg.Trading.Mode)
	}
	if cfg.Trading.Mode == "live" {
		if cfg.Ops.EmergencyAuthCode == "" {
			return fmt.Errorf("ops.emergency_auth_code is required in live mode")
		}
		if cfg.Binance.APIKey == "" || cfg.Binance.APISecret == "" {
			return fmt.Errorf("binance.api_key and binance.api_secret are required in live mode")
		}
	}
	if cfg.Risk.DailyLossFloorUSD >= 0 {
		return fmt.Errorf("risk.daily_loss_floor_usd must be negative")
	}
	if cfg.Notify.Telegram.Enabled {
		if cfg.Notify.Telegram.BotToken == "" || cfg.Notify.Telegram.ChatID == "" {
			return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
		}
	}
	return nil
}
