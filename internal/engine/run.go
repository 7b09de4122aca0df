package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/wkokomoor/trading-v1/internal/metrics"
)

// EquityPoint is the account and buy-and-hold value after one backtest day.
type EquityPoint struct {
	Date           time.Time `json:"date"`
	BuySell        int       `json:"buy_sell"`
	Orders         int       `json:"orders"`
	Liquidation    float64   `json:"liquidation_value"`
	BenchmarkOpen  float64   `json:"benchmark_open"`
	BenchmarkValue float64   `json:"benchmark_value"`
}

// Report summarizes a backtest against buying and holding the benchmark.
type Report struct {
	RunID           string        `json:"run_id"`
	Start           time.Time     `json:"start"`
	End             time.Time     `json:"end"`
	StartingCash    float64       `json:"starting_cash"`
	FinalValue      float64       `json:"final_value"`
	StrategyReturn  float64       `json:"strategy_return"`
	BenchmarkShares int64         `json:"benchmark_shares"`
	BenchmarkValue  float64       `json:"benchmark_value"`
	BenchmarkReturn float64       `json:"benchmark_return"`
	Trades          int           `json:"trades"`
	Skipped         []time.Time   `json:"skipped"`
	Points          []EquityPoint `json:"points"`
}

// buyAndHold tracks a position bought on the first evaluated day.
type buyAndHold struct {
	shares int64
	cash   float64
	set    bool
}

func (b *buyAndHold) value(open, startingCash float64) float64 {
	if !b.set {
		b.shares = int64(math.Floor(startingCash / open))
		b.cash = startingCash - float64(b.shares)*open
		b.set = true
	}
	return float64(b.shares)*open + b.cash
}

// RunBacktest replays dates in order starting from the second one, each
// evaluated against its predecessor. Days with missing or invalid prices are
// skipped and the prior allocation is held. Invariant breaches halt the run
// and return the partial report with the error.
func (e *Engine) RunBacktest(ctx context.Context, dates []time.Time) (*Report, error) {
	report := &Report{RunID: e.ledger.RunID(), StartingCash: e.cfg.StartingCash}
	if len(dates) < 2 {
		return report, ErrNotEnoughDates
	}
	report.Start, report.End = dates[0], dates[len(dates)-1]

	var bench buyAndHold
	for i := 1; i < len(dates); i++ {
		if err := ctx.Err(); err != nil {
			return e.finish(ctx, report), err
		}
		day, prev := dates[i], dates[i-1]
		res, err := e.Cycle(ctx, day, prev)
		metrics.CyclesTotal.WithLabelValues(e.cfg.Mode, outcome(res, err)).Inc()
		if err != nil {
			if skippable(err) {
				e.log.Warn().Err(err).Str("date", day.Format(time.DateOnly)).Msg("skipping day")
				report.Skipped = append(report.Skipped, day)
				continue
			}
			e.log.Error().Err(err).Str("date", day.Format(time.DateOnly)).Msg("backtest halted")
			return e.finish(ctx, report), err
		}
		open := res.Snapshot.BenchmarkOpen()
		report.Points = append(report.Points, EquityPoint{
			Date:           day,
			BuySell:        res.Markers.BuySell.Int(),
			Orders:         len(res.Orders),
			Liquidation:    res.State.LiquidationValue,
			BenchmarkOpen:  open,
			BenchmarkValue: bench.value(open, e.cfg.StartingCash),
		})
		report.BenchmarkShares = bench.shares
	}

	e.finish(ctx, report)
	if e.archiver != nil {
		if err := e.archiver.Archive(ctx, report.RunID, e.ledger.Snapshot(), report); err != nil {
			return report, fmt.Errorf("archive run %s: %w", report.RunID, err)
		}
	}
	return report, nil
}

func (e *Engine) finish(ctx context.Context, r *Report) *Report {
	e.flush(ctx)
	r.Trades = e.ledger.Len()
	r.FinalValue = e.account.Snapshot().LiquidationValue
	if n := len(r.Points); n > 0 {
		last := r.Points[n-1]
		r.FinalValue = last.Liquidation
		r.BenchmarkValue = last.BenchmarkValue
	}
	if r.StartingCash > 0 {
		r.StrategyReturn = r.FinalValue/r.StartingCash - 1
		if r.BenchmarkValue > 0 {
			r.BenchmarkReturn = r.BenchmarkValue/r.StartingCash - 1
		}
	}
	e.log.Info().
		Str("run_id", r.RunID).
		Int("days", len(r.Points)).
		Int("skipped", len(r.Skipped)).
		Int("trades", r.Trades).
		Float64("final_value", r.FinalValue).
		Float64("strategy_return", r.StrategyReturn).
		Float64("benchmark_return", r.BenchmarkReturn).
		Msg("backtest finished")
	return r
}

// RunOnce runs a single cycle for the most recent date against the one
// before it. Any error, including missing data, aborts the cycle.
func (e *Engine) RunOnce(ctx context.Context, dates []time.Time) (CycleResult, error) {
	if len(dates) < 2 {
		return CycleResult{}, ErrNotEnoughDates
	}
	day, prev := dates[len(dates)-1], dates[len(dates)-2]
	res, err := e.Cycle(ctx, day, prev)
	metrics.CyclesTotal.WithLabelValues(e.cfg.Mode, outcome(res, err)).Inc()
	if err != nil {
		e.log.Error().Err(err).Str("date", day.Format(time.DateOnly)).Msg("cycle aborted")
	}
	return res, err
}
