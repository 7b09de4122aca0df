// Package execution handles the order lifecycle: sizing, submission and fills.
package execution

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidPrice guards sizing against non-positive prices.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrAmbiguousHolding means both legs are held at once.
	ErrAmbiguousHolding = errors.New("ambiguous holding: long and short legs both held")
	// ErrInsufficientPosition means a sell exceeds the shares held.
	ErrInsufficientPosition = errors.New("insufficient position")
	// ErrExecutionRejected wraps a venue refusing an order.
	ErrExecutionRejected = errors.New("execution rejected")
)

// Side enumerates order directions used by the executor.
type Side string

const (
	// Buy opens or adds to a position.
	Buy Side = "BUY"
	// Sell reduces or closes a position.
	Sell Side = "SELL"
)

// Order represents a whole-share placement request.
type Order struct {
	Symbol string
	Side   Side
	Qty    int64
	Price  float64
}

// Notional is quantity times price.
func (o Order) Notional() float64 { return float64(o.Qty) * o.Price }

// Fill confirms a submitted order.
type Fill struct {
	OrderID string    `json:"order_id"`
	Symbol  string    `json:"symbol"`
	Side    Side      `json:"side"`
	Qty     int64     `json:"qty"`
	Price   float64   `json:"price"`
	Ts      time.Time `json:"ts"`
}

// Executor submits orders to a venue.
type Executor interface {
	Submit(ctx context.Context, order Order) (Fill, error)
}

// LogExecutor is a dry-run executor that only logs the order request.
type LogExecutor struct {
	log zerolog.Logger
	now func() time.Time
}

// NewLogExecutor wraps a zerolog logger for paper submissions.
func NewLogExecutor(log zerolog.Logger) *LogExecutor {
	return &LogExecutor{log: log, now: time.Now}
}

// Submit logs the order and confirms it at the requested price.
func (executor *LogExecutor) Submit(ctx context.Context, order Order) (Fill, error) {
	if err := ctx.Err(); err != nil {
		return Fill{}, err
	}
	fill := Fill{
		OrderID: "paper-" + uuid.NewString(),
		Symbol:  order.Symbol,
		Side:    order.Side,
		Qty:     order.Qty,
		Price:   order.Price,
		Ts:      executor.now().UTC(),
	}
	executor.log.Info().
		Str("order_id", fill.OrderID).
		Str("sym", order.Symbol).
		Str("side", string(order.Side)).
		Int64("qty", order.Qty).
		Float64("px", order.Price).
		Float64("notional", order.Notional()).
		Msg("submit order (paper)")
	return fill, nil
}
