// internal/ledger/postgres.go
package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const createPurchasesTable = `
CREATE TABLE IF NOT EXISTS purchases (
	id             BIGSERIAL PRIMARY KEY,
	token_mint     TEXT NOT NULL,
	wallet_address TEXT NOT NULL,
	spent_amount   DOUBLE PRECISION NOT NULL,
	unit_price     DOUBLE PRECISION NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS purchases_token_mint_idx ON purchases (token_mint);
`

// PostgresStore is an alternative ledger backend for setups sharing one
// ledger between hosts. Insertion order is kept through the serial id.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresStore(ctx context.Context, url string, logger *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect ledger db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping ledger db: %w", err)
	}
	s := &PostgresStore{pool: pool, logger: logger.Named("ledger-pg")}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createPurchasesTable); err != nil {
		return fmt.Errorf("migrate ledger db: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, rec PurchaseRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO purchases (token_mint, wallet_address, spent_amount, unit_price, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.TokenMint, rec.WalletAddress, rec.SpentAmount, rec.UnitPrice, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

// List degrades to an empty ledger on query failure, like the file store.
func (s *PostgresStore) List(ctx context.Context, mint string) ([]PurchaseRecord, error) {
	query := `SELECT token_mint, wallet_address, spent_amount, unit_price, created_at FROM purchases`
	args := []any{}
	if mint != "" {
		query += ` WHERE token_mint = $1`
		args = append(args, mint)
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		s.logger.Warn("Ledger query failed, using empty ledger", zap.Error(err))
		return nil, nil
	}
	defer rows.Close()

	var records []PurchaseRecord
	for rows.Next() {
		var r PurchaseRecord
		if err := rows.Scan(&r.TokenMint, &r.WalletAddress, &r.SpentAmount, &r.UnitPrice, &r.Timestamp); err != nil {
			s.logger.Warn("Ledger row scan failed", zap.Error(err))
			continue
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("Ledger rows error", zap.Error(err))
	}
	return records, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var _ Store = (*PostgresStore)(nil)
