package paper

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/wkokomoor/trading-v1/internal/execution"
)

func TestJSONLRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fills", "fills.jsonl")

	recorder, err := NewJSONLRecorder(path)
	if err != nil {
		t.Fatalf("NewJSONLRecorder error: %v", err)
	}
	entry := Entry{ID: "e1", RunID: "r1", Symbol: "UPRO", Side: execution.Buy, Qty: 10, Price: 50, Notional: 500}
	if err := recorder.Record(context.Background(), []Entry{entry}); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := recorder.Record(context.Background(), []Entry{entry}); err == nil {
		t.Fatalf("expected error after close")
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recorded file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		t.Fatalf("expected one line in recorder output")
	}
	var decoded Entry
	if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if decoded.Symbol != entry.Symbol || decoded.Side != entry.Side || decoded.Qty != 10 {
		t.Fatalf("unexpected decoded entry %+v", decoded)
	}
}
