// Package gormstore implements strategy and position storage on Gorm + SQLite.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	storemodel "github.com/SagarFieldElevate/LiveTradingApp/internal/store/model"
	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

type GormStore struct {
	db *gorm.DB
}

// New opens (or creates) the sqlite database at path and migrates the schema.
func New(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: database path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&storemodel.StrategyModel{},
		&storemodel.PositionModel{},
		&storemodel.EventModel{},
	); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) Get(ctx context.Context, id string) (*types.Strategy, error) {
	var m storemodel.StrategyModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("strategy %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return fromModel(&m)
}

func (s *GormStore) Save(ctx context.Context, strat *types.Strategy) error {
	m, err := toModel(strat)
	if err != nil {
		return err
	}
	m.UpdatedAt = time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = m.UpdatedAt
	}
	return s.db.WithContext(ctx).Save(m).Error
}

func (s *GormStore) ListActive(ctx context.Context) ([]*types.Strategy, error) {
	return s.listByStatus(ctx, types.StrategyActive)
}

func (s *GormStore) ListPending(ctx context.Context) ([]*types.Strategy, error) {
	return s.listByStatus(ctx, types.StrategyPending)
}

func (s *GormStore) listByStatus(ctx context.Context, status types.StrategyStatus) ([]*types.Strategy, error) {
	var models []storemodel.StrategyModel
	if err := s.db.WithContext(ctx).Where("status = ?", string(status)).Order("created_at").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*types.Strategy, 0, len(models))
	for i := range models {
		strat, err := fromModel(&models[i])
		if err != nil {
			// A strategy that no longer decodes must not break the whole
			// listing; surface it as a standalone lookup failure instead.
			continue
		}
		out = append(out, strat)
	}
	return out, nil
}

func (s *GormStore) Approve(ctx context.Context, id string) error {
	strat, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := strat.Approvable(); err != nil {
		return err
	}
	strat.Status = types.StrategyActive
	return s.Save(ctx, strat)
}

func (s *GormStore) Pause(ctx context.Context, id, reason string) error {
	return s.db.WithContext(ctx).Model(&storemodel.StrategyModel{}).
		Where("id = ? AND status = ?", id, string(types.StrategyActive)).
		Updates(map[string]any{
			"status":       string(types.StrategyPaused),
			"pause_reason": reason,
			"updated_at":   time.Now(),
		}).Error
}

func (s *GormStore) Resume(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&storemodel.StrategyModel{}).
		Where("id = ? AND status = ?", id, string(types.StrategyPaused)).
		Updates(map[string]any{
			"status":       string(types.StrategyActive),
			"pause_reason": "",
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &types.ValidationError{Reason: fmt.Sprintf("strategy %s is not paused", id)}
	}
	return nil
}

func (s *GormStore) PauseActive(ctx context.Context, reason string) (int, error) {
	res := s.db.WithContext(ctx).Model(&storemodel.StrategyModel{}).
		Where("status = ?", string(types.StrategyActive)).
		Updates(map[string]any{
			"status":       string(types.StrategyPaused),
			"pause_reason": reason,
			"updated_at":   time.Now(),
		})
	return int(res.RowsAffected), res.Error
}

func (s *GormStore) UpsertPosition(ctx context.Context, p *types.Position) error {
	m := storemodel.PositionModel{
		ID:              p.ID,
		StrategyID:      p.StrategyID,
		Asset:           p.Asset,
		Side:            string(p.Side),
		EntryPrice:      p.EntryPrice,
		CurrentPrice:    p.CurrentPrice,
		Quantity:        p.Quantity,
		TrailingStop:    p.TrailingStop,
		TakeProfitPrice: p.TakeProfitPrice,
		Status:          string(p.Status),
		EntryTime:       p.EntryTime,
		ExitTime:        p.ExitTime,
		ExitPrice:       p.ExitPrice,
		PnL:             p.PnL,
		UpdatedAt:       time.Now(),
	}
	return s.db.WithContext(ctx).Save(&m).Error
}

func (s *GormStore) ListOpenPositions(ctx context.Context) ([]types.Position, error) {
	var models []storemodel.PositionModel
	if err := s.db.WithContext(ctx).Where("status = ?", string(types.PositionOpen)).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]types.Position, 0, len(models))
	for _, m := range models {
		out = append(out, types.Position{
			ID:              m.ID,
			StrategyID:      m.StrategyID,
			Asset:           m.Asset,
			Side:            types.PositionSide(m.Side),
			EntryPrice:      m.EntryPrice,
			CurrentPrice:    m.CurrentPrice,
			Quantity:        m.Quantity,
			TrailingStop:    m.TrailingStop,
			TakeProfitPrice: m.TakeProfitPrice,
			Status:          types.PositionStatus(m.Status),
			EntryTime:       m.EntryTime,
			ExitTime:        m.ExitTime,
			ExitPrice:       m.ExitPrice,
			PnL:             m.PnL,
		})
	}
	return out, nil
}

func (s *GormStore) RecordEvent(ctx context.Context, kind string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", kind, err)
	}
	m := storemodel.EventModel{
		Kind:      kind,
		Payload:   datatypes.JSON(raw),
		CreatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).Create(&m).Error
}

func toModel(strat *types.Strategy) (*storemodel.StrategyModel, error) {
	entryRaw, err := types.EncodeEntryCondition(strat.Entry)
	if err != nil {
		return nil, err
	}
	exitRaw, err := json.Marshal(strat.Exit)
	if err != nil {
		return nil, err
	}
	assetsRaw, err := json.Marshal(strat.RequiredAssets)
	if err != nil {
		return nil, err
	}
	return &storemodel.StrategyModel{
		ID:              strat.ID,
		Name:            strat.Name,
		Status:          string(strat.Status),
		EntryJSON:       datatypes.JSON(entryRaw),
		ExitJSON:        datatypes.JSON(exitRaw),
		RequiredAssets:  datatypes.JSON(assetsRaw),
		PositionSizeUSD: strat.PositionSizeUSD,
		CreatedAt:       strat.CreatedAt,
	}, nil
}

func fromModel(m *storemodel.StrategyModel) (*types.Strategy, error) {
	entry, err := types.DecodeEntryCondition(m.EntryJSON)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", m.ID, err)
	}
	var exit types.ExitConditions
	if err := json.Unmarshal(m.ExitJSON, &exit); err != nil {
		return nil, fmt.Errorf("strategy %s exit conditions: %w", m.ID, err)
	}
	var assets []string
	if len(m.RequiredAssets) > 0 {
		if err := json.Unmarshal(m.RequiredAssets, &assets); err != nil {
			return nil, fmt.Errorf("strategy %s required assets: %w", m.ID, err)
		}
	}
	return &types.Strategy{
		ID:              m.ID,
		Name:            m.Name,
		Status:          types.StrategyStatus(m.Status),
		Entry:           entry,
		Exit:            exit,
		RequiredAssets:  assets,
		PositionSizeUSD: m.PositionSizeUSD,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
