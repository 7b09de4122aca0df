package strategy

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	sig "github.com/wkokomoor/trading-v1/internal/signal"
)

// Strategy defines behaviour shared by daily decision implementations.
type Strategy interface {
	Evaluate(snap sig.Snapshot) sig.Markers
	Name() string
}

// Build returns a strategy implementation matching the configured name.
func Build(name string, th Thresholds, log zerolog.Logger) (Strategy, error) {
	if err := th.Validate(); err != nil {
		return nil, fmt.Errorf("thresholds: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "vix_spy", "volatility_rotation":
		return NewVolatilityRotation(th, log), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}
