// Package signal standardizes the daily market payloads shared between data ingestion and strategy layers.
package signal

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrDataUnavailable marks a price point that could not be resolved from the feed.
// Zero is a valid regime, so a missing input must never be defaulted.
var ErrDataUnavailable = errors.New("market data unavailable")

// Regime is a ternary classification used for every marker the evaluator emits.
type Regime int8

const (
	// Bearish is the negative tag (-1).
	Bearish Regime = -1
	// Neutral is the zero tag.
	Neutral Regime = 0
	// Bullish is the positive tag (+1).
	Bullish Regime = 1
)

// Valid reports whether r is one of the three defined tags.
func (r Regime) Valid() bool {
	return r == Bearish || r == Neutral || r == Bullish
}

// Int returns the signed integer form used in logs and reports.
func (r Regime) Int() int { return int(r) }

func (r Regime) String() string {
	switch r {
	case Bearish:
		return "bearish"
	case Neutral:
		return "neutral"
	case Bullish:
		return "bullish"
	default:
		return fmt.Sprintf("regime(%d)", int8(r))
	}
}

// Snapshot is the immutable set of prices a single daily decision is made from.
type Snapshot struct {
	date              time.Time
	volatilityOpen    float64
	benchmarkOpen     float64
	benchmarkOpenPrev float64
	benchmarkChange   float64
}

// NewSnapshot validates the raw price points and derives the benchmark change.
func NewSnapshot(date time.Time, volatilityOpen, benchmarkOpen, benchmarkOpenPrev float64) (Snapshot, error) {
	fields := []struct {
		name  string
		value float64
	}{
		{"volatility open", volatilityOpen},
		{"benchmark open", benchmarkOpen},
		{"previous benchmark open", benchmarkOpenPrev},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value <= 0 {
			return Snapshot{}, fmt.Errorf("%s %v on %s: %w", f.name, f.value, date.Format(time.DateOnly), ErrDataUnavailable)
		}
	}
	return Snapshot{
		date:              date,
		volatilityOpen:    volatilityOpen,
		benchmarkOpen:     benchmarkOpen,
		benchmarkOpenPrev: benchmarkOpenPrev,
		benchmarkChange:   (benchmarkOpen - benchmarkOpenPrev) / benchmarkOpenPrev,
	}, nil
}

func (s Snapshot) Date() time.Time { return s.date }
func (s Snapshot) VolatilityOpen() float64 { return s.volatilityOpen }
func (s Snapshot) BenchmarkOpen() float64 { return s.benchmarkOpen }
func (s Snapshot) BenchmarkOpenPrev() float64 { return s.benchmarkOpenPrev }
func (s Snapshot) BenchmarkChange() float64 { return s.benchmarkChange }

// Markers holds the regime classification derived from one snapshot.
type Markers struct {
	VolatileMarket Regime
	BenchmarkBoom  Regime
	BuySell        Regime
}

func (m Markers) String() string {
	return fmt.Sprintf("volatile=%d boom=%d buy_sell=%d", m.VolatileMarket, m.BenchmarkBoom, m.BuySell)
}
