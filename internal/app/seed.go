package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/logger"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

type seedFile struct {
	Strategies []seedStrategy `yaml:"strategies"`
}

type seedStrategy struct {
	Name            string    `yaml:"name"`
	PositionSizeUSD float64   `yaml:"position_size"`
	Entry           seedEntry `yaml:"entry"`
	Exit            seedExit  `yaml:"exit"`
}

type seedEntry struct {
	Type string         `yaml:"type"`
	Data map[string]any `yaml:"data"`
}

type seedExit struct {
	StopLoss struct {
		Type     string  `yaml:"type"`
		Value    float64 `yaml:"value"`
		Trailing bool    `yaml:"is_trailing"`
	} `yaml:"stop_loss"`
	TakeProfit *struct {
		Type  string  `yaml:"type"`
		Value float64 `yaml:"value"`
	} `yaml:"take_profit"`
	MaxHold *struct {
		Value float64 `yaml:"value"`
		Unit  string  `yaml:"unit"`
	} `yaml:"max_hold"`
}

// seedStrategies loads the optional seed file as pending strategies. It only
// runs against an empty store so a restart never duplicates them.
func (a *App) seedStrategies(ctx context.Context) error {
	path := a.cfg.App.SeedStrategies
	if path == "" {
		return nil
	}
	pending, err := a.store.ListPending(ctx)
	if err != nil {
		return err
	}
	active, err := a.store.ListActive(ctx)
	if err != nil {
		return err
	}
	if len(pending)+len(active) > 0 {
		logger.Debugf("app: store already has strategies, skipping seed file %s", path)
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading seed file: %w", err)
	}
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("decoding seed file: %w", err)
	}

	seeded := 0
	for i, seed := range file.Strategies {
		strat, err := seed.toStrategy()
		if err != nil {
			logger.Warnf("app: seed strategy %d (%s) rejected: %v", i, seed.Name, err)
			continue
		}
		if err := a.store.Save(ctx, strat); err != nil {
			logger.Warnf("app: saving seed strategy %s failed: %v", seed.Name, err)
			continue
		}
		seeded++
	}
	logger.Infof("app: seeded %d pending strategies from %s", seeded, path)
	return nil
}

func (s seedStrategy) toStrategy() (*types.Strategy, error) {
	envelope, err := json.Marshal(map[string]any{"type": s.Entry.Type, "data": s.Entry.Data})
	if err != nil {
		return nil, err
	}
	entry, err := types.DecodeEntryCondition(envelope)
	if err != nil {
		return nil, err
	}
	exit := types.ExitConditions{
		StopLoss: types.StopLoss{
			Type:     types.StopLossType(s.Exit.StopLoss.Type),
			Value:    s.Exit.StopLoss.Value,
			Trailing: s.Exit.StopLoss.Trailing,
		},
	}
	if s.Exit.TakeProfit != nil {
		exit.TakeProfit = &types.TakeProfit{
			Type:  types.StopLossType(s.Exit.TakeProfit.Type),
			Value: s.Exit.TakeProfit.Value,
		}
	}
	if s.Exit.MaxHold != nil {
		exit.MaxHold = &types.MaxHold{Value: s.Exit.MaxHold.Value, Unit: s.Exit.MaxHold.Unit}
	}
	now := time.Now()
	return &types.Strategy{
		ID:              uuid.NewString(),
		Name:            s.Name,
		Status:          types.StrategyPending,
		Entry:           entry,
		Exit:            exit,
		RequiredAssets:  entry.RequiredAssets(),
		PositionSizeUSD: s.PositionSizeUSD,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
