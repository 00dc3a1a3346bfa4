package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/breaker"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/executor"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/logger"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/monitor"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/store/signallog"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

// newSignalHandler bridges monitor signals into the executor. Execution runs
// off the tick goroutine so a slow exchange cannot stall evaluation, and any
// unexpected failure feeds the breaker's system-error window.
func newSignalHandler(exec *executor.TradeExecutor, brk *breaker.Breaker, signals *signallog.Log) monitor.SignalHandler {
	return func(ctx context.Context, strat *types.Strategy, sig types.EntrySignal) {
		if signals != nil {
			if err := signals.Record(ctx, sig); err != nil {
				logger.Warnf("app: recording signal for strategy %s failed: %v", strat.ID, err)
			}
		}
		go func() {
			err := exec.OpenPosition(ctx, strat, sig)
			switch {
			case err == nil:
			case errors.Is(err, types.ErrCircuitTripped):
				logger.Warnf("app: signal for strategy %s dropped, circuit breaker tripped", strat.ID)
			case types.IsValidation(err), types.IsDataIntegrity(err):
				// Guard rejections are expected and already logged.
			default:
				brk.RecordSystemError(ctx, fmt.Sprintf("entry for strategy %s: %v", strat.ID, err))
			}
		}()
	}
}
