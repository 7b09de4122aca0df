package marketdata

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wkokomoor/trading-v1/internal/signal"
)

var (
	prev = time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC)
	day  = time.Date(2025, 5, 13, 0, 0, 0, 0, time.UTC)
)

type memCache struct {
	data map[string][]Candle
	puts int
}

func (m *memCache) Get(_ context.Context, symbol string, day time.Time) ([]Candle, bool, error) {
	c, ok := m.data[symbol+day.Format(time.DateOnly)]
	return c, ok, nil
}

func (m *memCache) Put(_ context.Context, symbol string, day time.Time, candles []Candle) error {
	m.data[symbol+day.Format(time.DateOnly)] = candles
	m.puts++
	return nil
}

type failingSource struct{}

func (failingSource) DayCandles(context.Context, string, time.Time) ([]Candle, error) {
	return nil, errors.New("connection reset")
}

func seeded() *StaticSource {
	src := NewStaticSource()
	src.SetOpen("SPY", prev, BenchmarkOpenTime, 500)
	src.SetOpen("SPY", day, BenchmarkOpenTime, 503)
	src.SetOpen("$VIX", day, VolatilityTime, 22)
	src.SetOpen("UPRO", day, TradeTime, 80)
	src.SetOpen("SPXU", day, TradeTime, 20)
	return src
}

func TestOpenPriceAtMatchesExactInstant(t *testing.T) {
	src := seeded()
	src.SetOpen("SPY", day, 14*time.Hour+35*time.Minute, 999)
	p := NewProvider(src, zerolog.Nop())

	px, err := p.OpenPriceAt(context.Background(), "SPY", day, BenchmarkOpenTime)
	require.NoError(t, err)
	assert.Equal(t, 503.0, px)

	_, err = p.OpenPriceAt(context.Background(), "SPY", day, 16*time.Hour)
	assert.ErrorIs(t, err, signal.ErrDataUnavailable)
}

func TestOpenPriceAtMemoizesDays(t *testing.T) {
	src := seeded()
	p := NewProvider(src, zerolog.Nop())
	for i := 0; i < 3; i++ {
		_, err := p.OpenPriceAt(context.Background(), "SPY", day.Add(9*time.Hour), BenchmarkOpenTime)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, src.Calls())
}

func TestOpenPriceAtUsesCache(t *testing.T) {
	src := seeded()
	cache := &memCache{data: map[string][]Candle{}}

	_, err := NewProvider(src, zerolog.Nop(), WithCache(cache)).OpenPriceAt(context.Background(), "UPRO", day, TradeTime)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.puts)

	px, err := NewProvider(failingSource{}, zerolog.Nop(), WithCache(cache)).OpenPriceAt(context.Background(), "UPRO", day, TradeTime)
	require.NoError(t, err)
	assert.Equal(t, 80.0, px)
}

func TestOpenPriceAtSourceErrorIsNotDataGap(t *testing.T) {
	_, err := NewProvider(failingSource{}, zerolog.Nop()).OpenPriceAt(context.Background(), "UPRO", day, TradeTime)
	require.Error(t, err)
	assert.False(t, errors.Is(err, signal.ErrDataUnavailable))
}

func TestBuildSnapshot(t *testing.T) {
	p := NewProvider(seeded(), zerolog.Nop())
	snap, err := BuildSnapshot(context.Background(), p, Inputs{Volatility: "$VIX", Benchmark: "SPY"}, day, prev)
	require.NoError(t, err)
	assert.Equal(t, 22.0, snap.VolatilityOpen())
	assert.Equal(t, 500.0, snap.BenchmarkOpenPrev())
	assert.True(t, math.Abs(snap.BenchmarkChange()-0.006) < 1e-12)
}

func TestBuildSnapshotMissingPoint(t *testing.T) {
	src := seeded()
	p := NewProvider(src, zerolog.Nop())
	_, err := BuildSnapshot(context.Background(), p, Inputs{Volatility: "$VIX", Benchmark: "SPY"}, day, day.AddDate(0, 0, -4))
	assert.ErrorIs(t, err, signal.ErrDataUnavailable)
}

func TestCandlePricer(t *testing.T) {
	pricer := CandlePricer{Reader: NewProvider(seeded(), zerolog.Nop())}
	prices, err := pricer.TradePrices(context.Background(), day, "UPRO", "SPXU")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"UPRO": 80, "SPXU": 20}, prices)

	_, err = pricer.TradePrices(context.Background(), prev, "UPRO")
	assert.ErrorIs(t, err, signal.ErrDataUnavailable)
}
