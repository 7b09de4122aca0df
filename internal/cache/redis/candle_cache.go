package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wkokomoor/trading-v1/internal/calendar"
	"github.com/wkokomoor/trading-v1/internal/marketdata"
)

// CandleCache implements marketdata.Cache.
//
// Key schema:
//
//	candles:{symbol}:{YYYY-MM-DD} - JSON array of candles
type CandleCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCandleCache stores entries for ttl; zero keeps them forever.
func NewCandleCache(c *Client, ttl time.Duration) *CandleCache {
	return &CandleCache{rdb: c.rdb, ttl: ttl}
}

func candleKey(symbol string, day time.Time) string {
	return "candles:" + symbol + ":" + calendar.Day(day).Format(time.DateOnly)
}

// Get returns the cached candles, ok=false on a miss.
func (cc *CandleCache) Get(ctx context.Context, symbol string, day time.Time) ([]marketdata.Candle, bool, error) {
	data, err := cc.rdb.Get(ctx, candleKey(symbol, day)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis: get candles %s: %w", symbol, err)
	}
	candles, err := decodeCandles(data)
	if err != nil {
		return nil, false, fmt.Errorf("redis: decode candles %s: %w", symbol, err)
	}
	return candles, true, nil
}

// Put stores candles for the day.
func (cc *CandleCache) Put(ctx context.Context, symbol string, day time.Time, candles []marketdata.Candle) error {
	data, err := json.Marshal(candles)
	if err != nil {
		return fmt.Errorf("redis: marshal candles %s: %w", symbol, err)
	}
	if err := cc.rdb.Set(ctx, candleKey(symbol, day), data, cc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set candles %s: %w", symbol, err)
	}
	return nil
}

func decodeCandles(data []byte) ([]marketdata.Candle, error) {
	var candles []marketdata.Candle
	if err := json.Unmarshal(data, &candles); err != nil {
		return nil, err
	}
	for i := range candles {
		candles[i].Time = candles[i].Time.UTC()
	}
	return candles, nil
}
