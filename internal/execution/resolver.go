package execution

import (
	"fmt"
	"math"

	"github.com/wkokomoor/trading-v1/internal/signal"
)

// Resolve computes the orders that move the account to a full allocation in
// the leg chosen by dir. Sells always precede buys. The buy leg is sized from
// the liquidation value as it stood before the sell settles. An account
// holding both legs is rejected whatever the direction.
func Resolve(dir signal.Regime, acct AccountState, pair Pair, longPrice, shortPrice float64) ([]Order, error) {
	holding, err := ClassifyHolding(acct, pair)
	if err != nil {
		return nil, err
	}

	var (
		target, exit           string
		targetPrice, exitPrice float64
	)
	switch dir {
	case signal.Bullish:
		target, targetPrice, exit, exitPrice = pair.Long, longPrice, pair.Short, shortPrice
	case signal.Bearish:
		target, targetPrice, exit, exitPrice = pair.Short, shortPrice, pair.Long, longPrice
	case signal.Neutral:
		return nil, nil
	default:
		return nil, fmt.Errorf("undefined trade direction %d", dir)
	}

	if targetPrice <= 0 || math.IsNaN(targetPrice) {
		return nil, fmt.Errorf("%s price %v: %w", target, targetPrice, ErrInvalidPrice)
	}

	if (dir == signal.Bullish && holding == Long) || (dir == signal.Bearish && holding == Short) {
		return nil, nil
	}

	orders := make([]Order, 0, 2)
	if holding != Flat {
		if exitPrice <= 0 || math.IsNaN(exitPrice) {
			return nil, fmt.Errorf("%s price %v: %w", exit, exitPrice, ErrInvalidPrice)
		}
		orders = append(orders, Order{Symbol: exit, Side: Sell, Qty: acct.Positions[exit].Shares, Price: exitPrice})
	}
	if shares := int64(math.Floor(acct.LiquidationValue / targetPrice)); shares > 0 {
		orders = append(orders, Order{Symbol: target, Side: Buy, Qty: shares, Price: targetPrice})
	}
	return orders, nil
}
