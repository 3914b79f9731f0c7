package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"buyAlerts/internal/model"
)

// Schema creates the tables used by the store.
const Schema = `
CREATE TABLE IF NOT EXISTS swaps (
	tx_hash        TEXT        NOT NULL,
	call_index     INTEGER     NOT NULL,
	dex            TEXT        NOT NULL,
	token_in       TEXT        NOT NULL,
	token_out      TEXT        NOT NULL,
	amount_in      NUMERIC     NOT NULL,
	amount_out     NUMERIC     NOT NULL,
	price          DOUBLE PRECISION,
	market_cap     DOUBLE PRECISION,
	eth_usd_price  DOUBLE PRECISION,
	block_number   BIGINT      NOT NULL,
	block_ts       TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (tx_hash, call_index)
);

CREATE TABLE IF NOT EXISTS buy_window_metrics (
	token               TEXT        NOT NULL,
	window_size_seconds BIGINT      NOT NULL,
	window_start_ts     TIMESTAMPTZ NOT NULL,
	window_end_ts       TIMESTAMPTZ NOT NULL,
	buy_count           BIGINT      NOT NULL,
	amount_in           NUMERIC     NOT NULL,
	amount_out          NUMERIC     NOT NULL,
	vwap                NUMERIC,
	min_price           DOUBLE PRECISION,
	max_price           DOUBLE PRECISION,
	first_block         BIGINT      NOT NULL,
	last_block          BIGINT      NOT NULL,
	dexes               TEXT[]      NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (token, window_size_seconds, window_start_ts)
);

CREATE TABLE IF NOT EXISTS indexer_state (
	name           TEXT PRIMARY KEY,
	last_processed BIGINT      NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for buys, window metrics and progress.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutSwapBatch inserts buys; a record already stored is left untouched.
func (s *Store) PutSwapBatch(ctx context.Context, swaps []model.SwapRecord) error {
	if len(swaps) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, swap := range swaps {
		batch.Queue(`
			INSERT INTO swaps (
				tx_hash, call_index, dex, token_in, token_out, amount_in, amount_out,
				price, market_cap, eth_usd_price, block_number, block_ts
			) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9, $10, $11, $12)
			ON CONFLICT (tx_hash, call_index) DO NOTHING
		`,
			swap.Hash,
			swap.CallIndex,
			swap.Dex,
			swap.TokenIn.Hex(),
			swap.TokenOut.Hex(),
			amountText(swap.AmountIn.String()),
			amountText(swap.AmountOut.String()),
			nullableFloat(swap.Price),
			nullableFloat(swap.MarketCap),
			nullableFloat(swap.EthUsdPrice),
			int64(swap.BlockNumber),
			blockTime(swap.Timestamp),
		)
	}
	return sendBatch(ctx, s.pool, batch, len(swaps), "insert swap")
}

// UpsertBuyWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertBuyWindowMetrics(ctx context.Context, metrics []model.BuyWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO buy_window_metrics (
				token, window_size_seconds, window_start_ts, window_end_ts,
				buy_count, amount_in, amount_out, vwap, min_price, max_price,
				first_block, last_block, dexes, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6::numeric,$7::numeric,$8::numeric,$9,$10,$11,$12,$13,now(),now())
			ON CONFLICT (token, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				buy_count = EXCLUDED.buy_count,
				amount_in = EXCLUDED.amount_in,
				amount_out = EXCLUDED.amount_out,
				vwap = EXCLUDED.vwap,
				min_price = EXCLUDED.min_price,
				max_price = EXCLUDED.max_price,
				first_block = LEAST(buy_window_metrics.first_block, EXCLUDED.first_block),
				last_block = GREATEST(buy_window_metrics.last_block, EXCLUDED.last_block),
				dexes = EXCLUDED.dexes,
				updated_at = now()
		`,
			m.Token,
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.BuyCount),
			amountText(m.AmountIn),
			amountText(m.AmountOut),
			m.VWAP,
			m.MinPrice,
			m.MaxPrice,
			int64(m.FirstBlock),
			int64(m.LastBlock),
			m.Dexes,
		)
	}
	return sendBatch(ctx, s.pool, batch, len(metrics), "upsert buy window metrics")
}

// LoadState returns the last processed position stored under name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var last int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed FROM indexer_state WHERE name=$1`, name)
	if err := row.Scan(&last); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("load state %s: %w", name, err)
	}
	return uint64(last), true, nil
}

// SaveState upserts the last processed position for name.
func (s *Store) SaveState(ctx context.Context, name string, last uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (name, last_processed, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed = EXCLUDED.last_processed, updated_at = now()
	`, name, int64(last))
	if err != nil {
		return fmt.Errorf("save state %s: %w", name, err)
	}
	return nil
}

func sendBatch(ctx context.Context, pool *pgxpool.Pool, batch *pgx.Batch, n int, op string) error {
	br := pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

func nullableFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func amountText(v string) string {
	if v == "" || v == "<nil>" {
		return "0"
	}
	return v
}

func blockTime(ts uint64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(int64(ts), 0).UTC()
	return &t
}
