// Package signallog keeps an append-only record of fired entry signals,
// separate from the main store so audit queries never contend with the
// trading path.
package signallog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS entry_signals (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	strategy_id TEXT NOT NULL,
	asset       TEXT NOT NULL,
	price       REAL NOT NULL,
	change_pct  REAL NOT NULL,
	reason      TEXT NOT NULL,
	fired_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entry_signals_strategy ON entry_signals(strategy_id);
CREATE INDEX IF NOT EXISTS idx_entry_signals_fired_at ON entry_signals(fired_at);
`

type Log struct {
	db *sql.DB
}

func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating signal log dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening signal log: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating signal log schema: %w", err)
	}
	return &Log{db: db}, nil
}

func (l *Log) Record(ctx context.Context, sig types.EntrySignal) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO entry_signals (strategy_id, asset, price, change_pct, reason, fired_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sig.StrategyID, sig.Asset, sig.Price, sig.ChangePct, sig.Reason, sig.At.UTC())
	return err
}

// Recent returns the newest signals, most recent first.
func (l *Log) Recent(ctx context.Context, limit int) ([]types.EntrySignal, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT strategy_id, asset, price, change_pct, reason, fired_at FROM entry_signals ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.EntrySignal
	for rows.Next() {
		var sig types.EntrySignal
		var firedAt time.Time
		if err := rows.Scan(&sig.StrategyID, &sig.Asset, &sig.Price, &sig.ChangePct, &sig.Reason, &firedAt); err != nil {
			return nil, err
		}
		sig.At = firedAt
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (l *Log) Close() error { return l.db.Close() }
