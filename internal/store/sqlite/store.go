// Package sqlite persists signals in a local SQLite database. SQLite is the
// durable record of every actionable signal and its eventual outcome; Redis
// only carries the hot copy.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"signal-enginev1/internal/strategy"
)

// Store wraps a SQLite database holding the signal history.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS signals (
	id         TEXT    NOT NULL,
	pair       TEXT    NOT NULL,
	timeframe  TEXT    NOT NULL,
	direction  TEXT    NOT NULL,
	entry      REAL,
	stop_loss  REAL,
	target     REAL,
	reasoning  TEXT    NOT NULL,
	status     TEXT    NOT NULL,
	ts         INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (id, pair, timeframe)
);
CREATE INDEX IF NOT EXISTS idx_signals_status ON signals(status);
CREATE INDEX IF NOT EXISTS idx_signals_ts     ON signals(ts DESC);
`

// New opens (or creates) the database at path and ensures the schema.
func New(path string) (*Store, error) {
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY
	// churn under concurrent scans.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save inserts a signal. Returns false when a signal with the same id, pair
// and timeframe already exists, which makes replayed scans idempotent.
func (s *Store) Save(ctx context.Context, sig *strategy.Signal) (bool, error) {
	reasoning, err := json.Marshal(sig.Reasoning)
	if err != nil {
		return false, fmt.Errorf("sqlite save: marshal reasoning: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO signals
			(id, pair, timeframe, direction, entry, stop_loss, target, reasoning, status, ts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.ID, sig.Pair, sig.Timeframe, string(sig.Direction),
		sig.Entry, sig.StopLoss, sig.TakeProfit,
		string(reasoning), string(sig.Status),
		sig.TS.UnixMilli(), time.Now().UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite save %s: %w", sig.Key(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite save %s: %w", sig.Key(), err)
	}
	return n > 0, nil
}

// UpdateStatus moves a signal to a new status (WIN or LOSS).
func (s *Store) UpdateStatus(ctx context.Context, id, pair, timeframe string, status strategy.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE signals SET status = ? WHERE id = ? AND pair = ? AND timeframe = ?`,
		string(status), id, pair, timeframe,
	)
	if err != nil {
		return fmt.Errorf("sqlite update status %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite update status %s: no such signal", id)
	}
	return nil
}

// Active returns all signals still awaiting resolution, oldest first.
func (s *Store) Active(ctx context.Context) ([]*strategy.Signal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, pair, timeframe, direction, entry, stop_loss, target, reasoning, status, ts
		 FROM signals WHERE status = ? ORDER BY ts ASC`,
		string(strategy.StatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite active: %w", err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

// Recent returns the newest signals up to limit, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*strategy.Signal, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, pair, timeframe, direction, entry, stop_loss, target, reasoning, status, ts
		 FROM signals ORDER BY ts DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite recent: %w", err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

func scanSignals(rows *sql.Rows) ([]*strategy.Signal, error) {
	var out []*strategy.Signal
	for rows.Next() {
		var (
			sig       strategy.Signal
			direction string
			status    string
			reasoning string
			tsMs      int64
		)
		if err := rows.Scan(
			&sig.ID, &sig.Pair, &sig.Timeframe, &direction,
			&sig.Entry, &sig.StopLoss, &sig.TakeProfit,
			&reasoning, &status, &tsMs,
		); err != nil {
			return nil, fmt.Errorf("sqlite scan: %w", err)
		}
		sig.Direction = strategy.Direction(direction)
		sig.Status = strategy.Status(status)
		sig.TS = time.UnixMilli(tsMs).UTC()
		if err := json.Unmarshal([]byte(reasoning), &sig.Reasoning); err != nil {
			return nil, fmt.Errorf("sqlite scan %s: reasoning: %w", sig.ID, err)
		}
		out = append(out, &sig)
	}
	return out, rows.Err()
}

// DB exposes the underlying handle for health probes.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
