package store

import (
	"context"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

// StrategyStore is the strategy persistence collaborator. Strategies are never
// deleted; archiving is the terminal state.
type StrategyStore interface {
	Get(ctx context.Context, id string) (*types.Strategy, error)
	Save(ctx context.Context, s *types.Strategy) error
	ListActive(ctx context.Context) ([]*types.Strategy, error)
	ListPending(ctx context.Context) ([]*types.Strategy, error)

	// Approve promotes a pending strategy to active. It fails with a
	// ValidationError when the strategy has no stop loss.
	Approve(ctx context.Context, id string) error
	Pause(ctx context.Context, id, reason string) error
	Resume(ctx context.Context, id string) error
	// PauseActive pauses every active strategy and reports how many.
	PauseActive(ctx context.Context, reason string) (int, error)
}

// Journal records positions and loop events for audit and restart recovery.
type Journal interface {
	UpsertPosition(ctx context.Context, p *types.Position) error
	ListOpenPositions(ctx context.Context) ([]types.Position, error)
	RecordEvent(ctx context.Context, kind string, payload any) error
}

// Store bundles both roles; the gorm implementation backs each with sqlite.
type Store interface {
	StrategyStore
	Journal
	Close() error
}
