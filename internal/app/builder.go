package app

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/breaker"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/config"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/executor"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/gateway/binance"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/gateway/exchange"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/gateway/paper"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/limits"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/logger"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/market"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/monitor"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/notify"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/parser"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/scheduler"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/store/gormstore"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/store/signallog"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/tracker"
	opshttp "github.com/SagarFieldElevate/LiveTradingApp/internal/transport/http/ops"
)

// build wires the full graph. Construction order follows the dependency
// direction: market data feeds the monitor and tracker, both feed the
// executor, and the breaker watches all of them.
func build(cfg *config.Config) (*App, error) {
	lim, err := buildLimits(cfg)
	if err != nil {
		return nil, err
	}
	notifier := buildNotifier(cfg)

	st, err := gormstore.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	signals, err := signallog.Open(signalLogPath(cfg.Store.Path))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("opening signal log: %w", err)
	}

	bucket, err := scheduler.ParseIntervalDuration(cfg.Market.HistoryInterval)
	if err != nil {
		bucket = time.Minute
	}
	history := market.NewHistory(cfg.Market.MaxCached, bucket)
	src := binance.NewSource(binance.Config{
		RESTBaseURL: cfg.Binance.RESTBaseURL,
		HTTPTimeout: time.Duration(cfg.Binance.TimeoutSeconds) * time.Second,
	})
	feed := market.NewFeed(market.FeedConfig{
		Symbols:         cfg.Market.Symbols,
		Heartbeat:       cfg.Market.Heartbeat(),
		MaxSpreadRatio:  cfg.Market.MaxSpreadRatio,
		MaxReconnects:   cfg.Market.MaxReconnects,
		HistoryInterval: cfg.Market.HistoryInterval,
		HistoryDepth:    cfg.Market.MaxCached,
		Preheat:         cfg.Market.PreheatHistory,
	}, src, history)
	indicators := market.NewIndicators(history, feed)

	mon := monitor.New(monitor.Config{
		Tick:              cfg.Monitor.Tick(),
		Freshness:         cfg.Monitor.Freshness(),
		Stabilization:     cfg.Monitor.Stabilization(),
		CorrelationWindow: cfg.Monitor.CorrelationWindow,
		OneShotSignals:    cfg.Monitor.OneShotSignals,
	}, st, indicators, feed.IsConnected)
	feed.OnConnected(mon.OnFeedConnected)
	feed.OnDisconnected(mon.OnFeedDisconnected)

	brk := breaker.New(lim, mon, st, notifier)

	book := tracker.NewBook()
	brk.SetUnrealizedFn(book.UnrealizedTotal)
	trk := tracker.New(tracker.Config{Tick: cfg.Trading.TrackTick()}, book, indicators, nil, st)

	gw, err := buildGateway(cfg, indicators)
	if err != nil {
		signals.Close()
		st.Close()
		return nil, err
	}
	exec := executor.New(executor.Config{
		DefaultPositionUSD: cfg.Trading.DefaultPositionUSD,
		EntryFreshness:     cfg.Trading.EntryFreshness(),
		MaxEntrySpreadPct:  cfg.Trading.MaxEntrySpreadPct,
		OrderTimeout:       cfg.Trading.OrderTimeout(),
		OrderRetries:       cfg.Trading.OrderRetries,
		RetryBase:          cfg.Trading.RetryBase(),
		CloseRetryInterval: cfg.Trading.CloseRetryInterval(),
		ATRPeriod:          cfg.Trading.ATRPeriod,
		ATRMultiplier:      cfg.Trading.ATRMultiplier,
		FallbackStopPct:    cfg.Trading.FallbackStopPct,
	}, gw, indicators, book, trk, brk, lim, st, notifier)
	trk.SetCloser(exec)

	mon.SetHandler(newSignalHandler(exec, brk, signals))

	parserClient, err := parser.New(parser.Config{
		URL:     cfg.Parser.URL,
		Timeout: time.Duration(cfg.Parser.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		signals.Close()
		st.Close()
		return nil, fmt.Errorf("building parser client: %w", err)
	}

	ops := opshttp.NewServer(opshttp.Config{
		Addr:              cfg.Ops.HTTPAddr,
		EmergencyAuthCode: cfg.Ops.EmergencyAuthCode,
	}, st, parserClient, trk, exec, mon, brk, signals, gw)
	trk.SetObserver(ops.PublishPositions)

	logger.Infof("app: built in %s mode, gateway=%s, symbols=%v", cfg.Trading.Mode, gw.Name(), cfg.Market.Symbols)
	return &App{
		cfg:     cfg,
		feed:    feed,
		ind:     indicators,
		mon:     mon,
		trk:     trk,
		exec:    exec,
		brk:     brk,
		store:   st,
		signals: signals,
		ops:     ops,
	}, nil
}

func buildLimits(cfg *config.Config) (limits.Provider, error) {
	seed := limits.Limits{
		DailyLossFloorUSD:    cfg.Risk.DailyLossFloorUSD,
		DailyLossFloorPct:    cfg.Risk.DailyLossFloorPct,
		MaxFailedTradesHour:  cfg.Risk.MaxFailedTradesHour,
		MaxSystemErrors5Min:  cfg.Risk.MaxSystemErrors5Min,
		MaxConsecutiveStops:  cfg.Risk.MaxConsecutiveStops,
		ExtremeMoveHourlyPct: cfg.Risk.ExtremeMoveHourlyPct,
		PortfolioUSD:         cfg.Risk.PortfolioUSD,
	}
	if cfg.Risk.LimitsPath == "" {
		return limits.Static{L: seed}, nil
	}
	reg, err := limits.NewRegistry(cfg.Risk.LimitsPath, seed)
	if err != nil {
		return nil, fmt.Errorf("loading limits file: %w", err)
	}
	return reg, nil
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	if cfg.Notify.Telegram.Enabled {
		return notify.Logged{Sender: notify.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)}
	}
	return notify.Noop{}
}

func buildGateway(cfg *config.Config, prices paper.PriceSource) (exchange.Gateway, error) {
	switch cfg.Trading.Mode {
	case "live":
		return binance.NewOrderGateway(binance.Config{
			RESTBaseURL: cfg.Binance.RESTBaseURL,
			HTTPTimeout: time.Duration(cfg.Binance.TimeoutSeconds) * time.Second,
		}, cfg.Binance.APIKey, cfg.Binance.APISecret), nil
	case "paper":
		return paper.New(prices, 0), nil
	default:
		return nil, fmt.Errorf("unknown trading mode %q", cfg.Trading.Mode)
	}
}

func signalLogPath(storePath string) string {
	dir := filepath.Dir(storePath)
	return filepath.Join(dir, "signals.db")
}
