package strategy

import "fmt"

// Thresholds are the static bands separating calm, neutral and stressed readings.
type Thresholds struct {
	VolatilityHigh float64 `yaml:"volatility_high"`
	VolatilityLow  float64 `yaml:"volatility_low"`
	BenchmarkHigh  float64 `yaml:"benchmark_high"`
	BenchmarkLow   float64 `yaml:"benchmark_low"`
}

// DefaultThresholds returns the VIX 20/17 and SPY ±0.5% bands.
func DefaultThresholds() Thresholds {
	return Thresholds{
		VolatilityHigh: 20,
		VolatilityLow:  17,
		BenchmarkHigh:  0.005,
		BenchmarkLow:   -0.005,
	}
}

// Validate checks the band ordering the evaluator assumes.
func (t Thresholds) Validate() error {
	if !(t.VolatilityLow < t.VolatilityHigh) {
		return fmt.Errorf("volatility_low (%.4f) must be below volatility_high (%.4f)", t.VolatilityLow, t.VolatilityHigh)
	}
	if !(t.BenchmarkLow < 0 && t.BenchmarkHigh > 0) {
		return fmt.Errorf("benchmark bands must straddle zero, got low=%.4f high=%.4f", t.BenchmarkLow, t.BenchmarkHigh)
	}
	return nil
}
