package s3

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wkokomoor/trading-v1/internal/execution"
	"github.com/wkokomoor/trading-v1/internal/paper"
)

type fakePutter struct {
	objects map[string]string
	types   map[string]string
	fail    error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = string(body)
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestArchiveWritesTradesAndReport(t *testing.T) {
	fake := &fakePutter{objects: map[string]string{}, types: map[string]string{}}
	a := newArchiver(fake, "bucket", "backtests")

	entries := []paper.Entry{{
		ID: "e1", RunID: "run-1",
		Time:   time.Date(2025, 5, 13, 15, 0, 0, 0, time.UTC),
		Symbol: "SPXU", Side: execution.Sell, Qty: -100, Price: 10.25, Notional: 1025,
	}}
	require.NoError(t, a.Archive(context.Background(), "run-1", entries, map[string]float64{"strategy_return": 0.12}))

	assert.Equal(t,
		"id,run_id,time,symbol,side,qty,price,notional\n"+
			"e1,run-1,2025-05-13T15:00:00Z,SPXU,SELL,-100,10.25,1025\n",
		fake.objects["bucket/backtests/run-1/trades.csv"])
	assert.Equal(t, "text/csv", fake.types["bucket/backtests/run-1/trades.csv"])
	assert.JSONEq(t, `{"strategy_return":0.12}`, fake.objects["bucket/backtests/run-1/report.json"])
}

func TestArchivePropagatesPutErrors(t *testing.T) {
	fake := &fakePutter{fail: errors.New("access denied")}
	err := newArchiver(fake, "bucket", "").Archive(context.Background(), "r", nil, struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "r/trades.csv")
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "https://minio.local:9000", normaliseEndpoint("minio.local:9000"))
	assert.Equal(t, "http://localhost:9000", normaliseEndpoint("http://localhost:9000"))
}
