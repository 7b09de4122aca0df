// Package strategy turns daily market snapshots into trade direction.
package strategy

import (
	"github.com/rs/zerolog"

	"github.com/wkokomoor/trading-v1/internal/signal"
)

// Evaluate classifies a snapshot against the thresholds.
//
// Volatility dominates: a stressed market points short unless the benchmark
// is falling hard, and any other market points long unless the benchmark is
// rallying hard. Contradicting readings cancel to neutral.
func Evaluate(snap signal.Snapshot, th Thresholds) signal.Markers {
	m := signal.Markers{
		VolatileMarket: band(snap.VolatilityOpen(), th.VolatilityLow, th.VolatilityHigh),
		BenchmarkBoom:  band(snap.BenchmarkChange(), th.BenchmarkLow, th.BenchmarkHigh),
	}

	if m.VolatileMarket == signal.Bullish {
		m.BuySell = signal.Bearish
		if m.BenchmarkBoom == signal.Bearish {
			m.BuySell = signal.Neutral
		}
		return m
	}
	m.BuySell = signal.Bullish
	if m.BenchmarkBoom == signal.Bullish {
		m.BuySell = signal.Neutral
	}
	return m
}

func band(v, low, high float64) signal.Regime {
	switch {
	case v > high:
		return signal.Bullish
	case v < low:
		return signal.Bearish
	default:
		return signal.Neutral
	}
}

// VolatilityRotation is the VIX/SPY rotation strategy with diagnostic logging.
type VolatilityRotation struct {
	thresholds Thresholds
	log        zerolog.Logger
}

// NewVolatilityRotation binds thresholds and a logger.
func NewVolatilityRotation(th Thresholds, log zerolog.Logger) *VolatilityRotation {
	return &VolatilityRotation{thresholds: th, log: log}
}

// Name returns the identifier for the strategy implementation.
func (s *VolatilityRotation) Name() string { return "VolatilityRotation" }

// Thresholds returns the bands in use.
func (s *VolatilityRotation) Thresholds() Thresholds { return s.thresholds }

// Evaluate classifies snap and logs the intermediate values at debug level.
func (s *VolatilityRotation) Evaluate(snap signal.Snapshot) signal.Markers {
	m := Evaluate(snap, s.thresholds)
	s.log.Debug().
		Str("date", snap.Date().Format("2006-01-02")).
		Float64("volatility_open", snap.VolatilityOpen()).
		Float64("benchmark_open", snap.BenchmarkOpen()).
		Float64("benchmark_open_prev", snap.BenchmarkOpenPrev()).
		Float64("benchmark_change", snap.BenchmarkChange()).
		Int("volatile_market", m.VolatileMarket.Int()).
		Int("benchmark_boom", m.BenchmarkBoom.Int()).
		Int("buy_sell", m.BuySell.Int()).
		Msg("regime evaluated")
	return m
}
