package s3

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wkokomoor/trading-v1/internal/paper"
)

// Archiver uploads a run's trades and report under {prefix}/{runID}/.
type Archiver struct {
	client putter
	bucket string
	prefix string
}

func newArchiver(client putter, bucket, prefix string) *Archiver {
	return &Archiver{client: client, bucket: bucket, prefix: prefix}
}

// Archive writes trades.csv and report.json for the run.
func (a *Archiver) Archive(ctx context.Context, runID string, entries []paper.Entry, report any) error {
	trades, err := encodeTrades(entries)
	if err != nil {
		return err
	}
	if err := a.put(ctx, a.key(runID, "trades.csv"), trades, "text/csv"); err != nil {
		return err
	}
	doc, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("s3: marshal report: %w", err)
	}
	return a.put(ctx, a.key(runID, "report.json"), doc, "application/json")
}

func (a *Archiver) key(runID, name string) string {
	return path.Join(a.prefix, runID, name)
}

func (a *Archiver) put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3: put object %s: %w", key, err)
	}
	return nil
}

var tradeHeader = []string{"id", "run_id", "time", "symbol", "side", "qty", "price", "notional"}

func encodeTrades(entries []paper.Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(tradeHeader); err != nil {
		return nil, err
	}
	for _, e := range entries {
		row := []string{
			e.ID,
			e.RunID,
			e.Time.UTC().Format(time.RFC3339),
			e.Symbol,
			string(e.Side),
			strconv.FormatInt(e.Qty, 10),
			strconv.FormatFloat(e.Price, 'f', -1, 64),
			strconv.FormatFloat(e.Notional, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("s3: encode trades: %w", err)
	}
	return buf.Bytes(), nil
}
