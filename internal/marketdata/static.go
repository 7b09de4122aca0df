package marketdata

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wkokomoor/trading-v1/internal/calendar"
)

// StaticSource serves candles held in memory, useful for offline replay and tests.
type StaticSource struct {
	mu      sync.Mutex
	candles map[string][]Candle
	calls   int
}

// NewStaticSource returns an empty source.
func NewStaticSource() *StaticSource {
	return &StaticSource{candles: make(map[string][]Candle)}
}

// Add registers candles for symbol.
func (s *StaticSource) Add(symbol string, candles ...Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candles[symbol] = append(s.candles[symbol], candles...)
	sort.Slice(s.candles[symbol], func(i, j int) bool {
		return s.candles[symbol][i].Time.Before(s.candles[symbol][j].Time)
	})
}

// SetOpen registers a single candle opening at day+tod.
func (s *StaticSource) SetOpen(symbol string, day time.Time, tod time.Duration, open float64) {
	s.Add(symbol, Candle{Time: At(day, tod), Open: open, High: open, Low: open, Close: open})
}

// DayCandles returns the candles falling on day.
func (s *StaticSource) DayCandles(ctx context.Context, symbol string, day time.Time) ([]Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	day = calendar.Day(day)
	var out []Candle
	for _, c := range s.candles[symbol] {
		if calendar.Day(c.Time).Equal(day) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Calls reports how many times DayCandles was invoked.
func (s *StaticSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
