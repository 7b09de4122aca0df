package paper

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wkokomoor/trading-v1/internal/execution"
)

// Entry is one executed trade. Qty is signed: positive for buys, negative for sells.
type Entry struct {
	ID       string         `json:"id"`
	RunID    string         `json:"run_id"`
	Time     time.Time      `json:"time"`
	Symbol   string         `json:"symbol"`
	Side     execution.Side `json:"side"`
	Qty      int64          `json:"qty"`
	Price    float64        `json:"price"`
	Notional float64        `json:"notional"`
}

// Recorder persists ledger entries outside the process.
type Recorder interface {
	Record(ctx context.Context, entries []Entry) error
}

// Ledger is the append-only trade history of a single run.
type Ledger struct {
	mu      sync.Mutex
	runID   string
	entries []Entry
}

// NewLedger creates an empty ledger tagged with runID, optionally pre-sizing storage.
func NewLedger(runID string, capacity int) *Ledger {
	if capacity < 0 {
		capacity = 0
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Ledger{runID: runID, entries: make([]Entry, 0, capacity)}
}

// RunID identifies the run every entry belongs to.
func (l *Ledger) RunID() string { return l.runID }

// Append stamps the entry with an ID and the run ID and adds it to the end.
func (l *Ledger) Append(e Entry) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.RunID = l.runID
	l.entries = append(l.entries, e)
	return e
}

// Len reports the number of entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Snapshot returns a copy of the recorded entries.
func (l *Ledger) Snapshot() []Entry {
	return l.Since(0)
}

// Since returns a copy of entries from index n onward.
func (l *Ledger) Since(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if n >= len(l.entries) {
		return nil
	}
	out := make([]Entry, len(l.entries)-n)
	copy(out, l.entries[n:])
	return out
}
