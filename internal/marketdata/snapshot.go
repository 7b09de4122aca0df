package marketdata

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wkokomoor/trading-v1/internal/signal"
)

// Inputs names the two signal instruments.
type Inputs struct {
	Volatility string
	Benchmark  string
}

// BuildSnapshot fetches the three price points for day concurrently and
// assembles them only once all have resolved.
func BuildSnapshot(ctx context.Context, r PriceReader, in Inputs, day, prev time.Time) (signal.Snapshot, error) {
	var vol, open, openPrev float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		vol, err = r.OpenPriceAt(gctx, in.Volatility, day, VolatilityTime)
		return err
	})
	g.Go(func() (err error) {
		open, err = r.OpenPriceAt(gctx, in.Benchmark, day, BenchmarkOpenTime)
		return err
	})
	g.Go(func() (err error) {
		openPrev, err = r.OpenPriceAt(gctx, in.Benchmark, prev, BenchmarkOpenTime)
		return err
	})
	if err := g.Wait(); err != nil {
		return signal.Snapshot{}, err
	}
	return signal.NewSnapshot(day, vol, open, openPrev)
}

// CandlePricer prices the trade legs from the 15:00 UTC candle open.
type CandlePricer struct {
	Reader PriceReader
}

// TradePrices returns the open at TradeTime for each symbol.
func (c CandlePricer) TradePrices(ctx context.Context, day time.Time, symbols ...string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		px, err := c.Reader.OpenPriceAt(ctx, sym, day, TradeTime)
		if err != nil {
			return nil, err
		}
		out[sym] = px
	}
	return out, nil
}
