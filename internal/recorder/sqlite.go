// internal/recorder/sqlite.go
package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rovshanmuradov/pumpfleet/internal/monitor"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder writes one row per snapshot into price_snapshots.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(path string, logger *zap.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL: external dashboards read while the monitor writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger.Named("recorder")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info("SQLite recorder opened", zap.String("path", path))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_snapshots (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			mint           TEXT NOT NULL,
			tx_type        TEXT,
			token_amount   REAL,
			market_cap_sol REAL,
			base_in_pool   REAL,
			quote_in_pool  REAL,
			price_sol      REAL,
			price_fiat     REAL,
			invested       REAL,
			value          REAL,
			profit         REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_mint_ts ON price_snapshots(mint, timestamp)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) Record(ctx context.Context, s monitor.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := s.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var fiat sql.NullFloat64
	if v, ok := s.PriceFiat(); ok {
		fiat = sql.NullFloat64{Float64: v, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO price_snapshots (
		timestamp, mint, tx_type, token_amount, market_cap_sol, base_in_pool,
		quote_in_pool, price_sol, price_fiat, invested, value, profit
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts.UnixMilli(), s.Mint, s.Update.TxType, s.Update.TokenAmount, s.Update.MarketCap,
		s.Update.BaseTokensInPool, s.Update.QuoteInPool, s.PriceSol, fiat,
		s.PnL.Invested, s.PnL.Value, s.PnL.Profit,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Point is one row read back for charts and tests.
type Point struct {
	Time      time.Time
	PriceSol  float64
	PriceFiat *float64
	Profit    float64
}

// History returns the snapshots of mint since the given time, oldest first.
func (r *SQLiteRecorder) History(ctx context.Context, mint string, since time.Time) ([]Point, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT timestamp, price_sol, price_fiat, profit
		FROM price_snapshots WHERE mint = ? AND timestamp >= ? ORDER BY timestamp, id`,
		mint, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Point
	for rows.Next() {
		var (
			ms   int64
			p    Point
			fiat sql.NullFloat64
		)
		if err := rows.Scan(&ms, &p.PriceSol, &fiat, &p.Profit); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		p.Time = time.UnixMilli(ms).UTC()
		if fiat.Valid {
			v := fiat.Float64
			p.PriceFiat = &v
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
