package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wkokomoor/trading-v1/internal/execution"
	"github.com/wkokomoor/trading-v1/internal/paper"
)

const insertEntry = `
	INSERT INTO ledger_entries (id, run_id, ts, symbol, side, qty, price, notional)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO NOTHING`

// TradeStore implements paper.Recorder against the ledger_entries table.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a store on the client's pool.
func NewTradeStore(c *Client) *TradeStore {
	return &TradeStore{pool: c.Pool()}
}

// Record inserts entries in one batch. Re-recording an entry is a no-op.
func (s *TradeStore) Record(ctx context.Context, entries []paper.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := buildBatch(entries)
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert ledger entry %d: %w", i, err)
		}
	}
	return nil
}

// ByRun returns the entries of one run in time order.
func (s *TradeStore) ByRun(ctx context.Context, runID string) ([]paper.Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, run_id, ts, symbol, side, qty, price, notional
		FROM ledger_entries WHERE run_id = $1 ORDER BY ts, created_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("postgres: query run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []paper.Entry
	for rows.Next() {
		var (
			e    paper.Entry
			side string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Time, &e.Symbol, &side, &e.Qty, &e.Price, &e.Notional); err != nil {
			return nil, fmt.Errorf("postgres: scan ledger entry: %w", err)
		}
		e.Side = execution.Side(side)
		e.Time = e.Time.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func buildBatch(entries []paper.Entry) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(insertEntry,
			e.ID, e.RunID, e.Time, e.Symbol,
			string(e.Side), e.Qty, e.Price, e.Notional,
		)
	}
	return batch
}
