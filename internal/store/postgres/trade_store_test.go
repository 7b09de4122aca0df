package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wkokomoor/trading-v1/internal/config"
	"github.com/wkokomoor/trading-v1/internal/execution"
	"github.com/wkokomoor/trading-v1/internal/paper"
)

func TestBuildBatchQueuesOneInsertPerEntry(t *testing.T) {
	entries := []paper.Entry{
		{ID: "a", RunID: "r", Symbol: "SPXU", Side: execution.Sell, Qty: -100, Price: 10, Notional: 1000},
		{ID: "b", RunID: "r", Symbol: "UPRO", Side: execution.Buy, Qty: 100, Price: 50, Notional: 5000},
	}
	batch := buildBatch(entries)
	require.Equal(t, 2, batch.Len())
	assert.Equal(t, insertEntry, batch.QueuedQueries[0].SQL)
	assert.Equal(t, "SELL", batch.QueuedQueries[0].Arguments[4])
	assert.Equal(t, int64(100), batch.QueuedQueries[1].Arguments[5])
}

// Runs against a real database when ROTATOR_TEST_PG_DSN is set.
func TestTradeStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("ROTATOR_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("ROTATOR_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	client, err := New(ctx, config.Store{DSN: dsn, MaxConns: 2})
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.EnsureSchema(ctx))

	ledger := paper.NewLedger("", 2)
	ts := time.Date(2025, 5, 13, 15, 0, 0, 0, time.UTC)
	ledger.Append(paper.Entry{Time: ts, Symbol: "UPRO", Side: execution.Buy, Qty: 3, Price: 80, Notional: 240})

	store := NewTradeStore(client)
	require.NoError(t, store.Record(ctx, ledger.Snapshot()))
	require.NoError(t, store.Record(ctx, ledger.Snapshot()))

	got, err := store.ByRun(ctx, ledger.RunID())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "UPRO", got[0].Symbol)
	assert.True(t, ts.Equal(got[0].Time))
}
