// Package marketdata resolves the fixed intraday price points the daily decision needs.
package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/wkokomoor/trading-v1/internal/calendar"
	"github.com/wkokomoor/trading-v1/internal/metrics"
	"github.com/wkokomoor/trading-v1/internal/signal"
)

// Fixed UTC instants sampled each trading day.
const (
	BenchmarkOpenTime = 14*time.Hour + 30*time.Minute
	TradeTime         = 15 * time.Hour
	VolatilityTime    = 15 * time.Hour
)

// Candle is one intraday bar.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Source fetches the intraday candles of one UTC calendar day.
type Source interface {
	DayCandles(ctx context.Context, symbol string, day time.Time) ([]Candle, error)
}

// Cache persists day candles between runs.
type Cache interface {
	Get(ctx context.Context, symbol string, day time.Time) ([]Candle, bool, error)
	Put(ctx context.Context, symbol string, day time.Time, candles []Candle) error
}

// PriceReader resolves an open price at a time of day.
type PriceReader interface {
	OpenPriceAt(ctx context.Context, symbol string, day time.Time, tod time.Duration) (float64, error)
}

// At returns the instant tod after midnight UTC of day.
func At(day time.Time, tod time.Duration) time.Time {
	return calendar.Day(day).Add(tod)
}

// Provider serves open prices from day candles, memoizing each symbol-day
// in memory and optionally in a shared cache.
type Provider struct {
	src   Source
	cache Cache
	log   zerolog.Logger
	group singleflight.Group

	mu   sync.RWMutex
	memo map[string][]Candle
}

// Option configures Provider construction parameters.
type Option func(*Provider)

// WithCache layers a persistent cache in front of the source.
func WithCache(c Cache) Option {
	return func(p *Provider) { p.cache = c }
}

// NewProvider constructs a provider over src.
func NewProvider(src Source, log zerolog.Logger, opts ...Option) *Provider {
	p := &Provider{src: src, log: log, memo: make(map[string][]Candle)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OpenPriceAt returns the open of the candle starting exactly at day+tod.
// A missing candle yields signal.ErrDataUnavailable.
func (p *Provider) OpenPriceAt(ctx context.Context, symbol string, day time.Time, tod time.Duration) (float64, error) {
	candles, err := p.dayCandles(ctx, symbol, calendar.Day(day))
	if err != nil {
		return 0, err
	}
	instant := At(day, tod)
	for _, c := range candles {
		if c.Time.Equal(instant) {
			if c.Open <= 0 {
				break
			}
			return c.Open, nil
		}
	}
	metrics.DataGapsTotal.WithLabelValues(symbol).Inc()
	return 0, fmt.Errorf("%s open at %s: %w", symbol, instant.Format(time.RFC3339), signal.ErrDataUnavailable)
}

func (p *Provider) dayCandles(ctx context.Context, symbol string, day time.Time) ([]Candle, error) {
	key := symbol + "|" + day.Format(time.DateOnly)

	p.mu.RLock()
	candles, ok := p.memo[key]
	p.mu.RUnlock()
	if ok {
		return candles, nil
	}

	v, err, _ := p.group.Do(key, func() (any, error) {
		return p.load(ctx, symbol, day)
	})
	if err != nil {
		return nil, err
	}
	candles = v.([]Candle)

	p.mu.Lock()
	p.memo[key] = candles
	p.mu.Unlock()
	return candles, nil
}

func (p *Provider) load(ctx context.Context, symbol string, day time.Time) ([]Candle, error) {
	if p.cache != nil {
		cached, ok, err := p.cache.Get(ctx, symbol, day)
		switch {
		case err != nil:
			p.log.Warn().Err(err).Str("symbol", symbol).Msg("candle cache read failed")
		case ok:
			return cached, nil
		}
	}

	candles, err := p.src.DayCandles(ctx, symbol, day)
	if err != nil {
		return nil, fmt.Errorf("fetch %s candles for %s: %w", symbol, day.Format(time.DateOnly), err)
	}
	if p.cache != nil && len(candles) > 0 {
		if err := p.cache.Put(ctx, symbol, day, candles); err != nil {
			p.log.Warn().Err(err).Str("symbol", symbol).Msg("candle cache write failed")
		}
	}
	return candles, nil
}
