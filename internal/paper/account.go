package paper

import (
	"fmt"
	"sync"
	"time"

	"github.com/wkokomoor/trading-v1/internal/execution"
	"github.com/wkokomoor/trading-v1/internal/metrics"
)

// Account holds the cash, market value and positions a strategy instance owns.
type Account struct {
	mu    sync.Mutex
	state execution.AccountState
}

// NewAccount constructs a flat account funded with starting cash.
func NewAccount(startingCash float64) *Account {
	return &Account{state: execution.AccountState{
		Cash:             startingCash,
		LiquidationValue: startingCash,
		Positions:        make(map[string]execution.Position),
	}}
}

// NewAccountFrom seeds an account from balances read elsewhere, e.g. a brokerage.
func NewAccountFrom(state execution.AccountState) *Account {
	return &Account{state: state.Clone()}
}

// Apply executes orders strictly in sequence, appending one ledger entry per
// order. Liquidation value is left untouched. An oversized or unheld sell
// stops processing with ErrInsufficientPosition; earlier orders stay applied.
func (a *Account) Apply(orders []execution.Order, ledger *Ledger, ts time.Time) (execution.AccountState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, order := range orders {
		if order.Qty <= 0 {
			return a.state.Clone(), fmt.Errorf("%s %s qty %d: quantity must be positive", order.Side, order.Symbol, order.Qty)
		}
		notional := order.Notional()
		pos := a.state.Positions[order.Symbol]

		switch order.Side {
		case execution.Sell:
			if !a.state.Holds(order.Symbol) || pos.Shares < order.Qty {
				return a.state.Clone(), fmt.Errorf("sell %d %s with %d held: %w", order.Qty, order.Symbol, pos.Shares, execution.ErrInsufficientPosition)
			}
			pos.Shares -= order.Qty
			if pos.Shares <= 0 {
				delete(a.state.Positions, order.Symbol)
			} else {
				pos.Value = float64(pos.Shares) * order.Price
				a.state.Positions[order.Symbol] = pos
			}
			a.state.Cash += notional
			a.state.LongMarketValue -= notional
			ledger.Append(Entry{Time: ts, Symbol: order.Symbol, Side: order.Side, Qty: -order.Qty, Price: order.Price, Notional: notional})

		case execution.Buy:
			pos.Shares += order.Qty
			pos.Value = float64(pos.Shares) * order.Price
			a.state.Positions[order.Symbol] = pos
			a.state.Cash -= notional
			a.state.LongMarketValue += notional
			ledger.Append(Entry{Time: ts, Symbol: order.Symbol, Side: order.Side, Qty: order.Qty, Price: order.Price, Notional: notional})

		default:
			return a.state.Clone(), fmt.Errorf("unknown order side %q", order.Side)
		}
		metrics.OrdersTotal.WithLabelValues(order.Symbol, string(order.Side)).Inc()
	}
	return a.state.Clone(), nil
}

// Valued returns the account revalued at prices without changing it.
// Symbols without a price keep their previous value.
func (a *Account) Valued(prices map[string]float64) execution.AccountState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return revalue(a.state.Clone(), prices)
}

// MarkToMarket revalues held positions at the supplied prices and commits
// the recomputed long market value and liquidation value.
func (a *Account) MarkToMarket(prices map[string]float64) execution.AccountState {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = revalue(a.state, prices)
	return a.state.Clone()
}

func revalue(state execution.AccountState, prices map[string]float64) execution.AccountState {
	var lmv float64
	for sym, pos := range state.Positions {
		if px, ok := prices[sym]; ok && px > 0 {
			pos.Value = float64(pos.Shares) * px
			state.Positions[sym] = pos
		}
		lmv += pos.Value
	}
	state.LongMarketValue = lmv
	state.LiquidationValue = state.Cash + lmv
	return state
}

// Snapshot returns a copy of balances and positions.
func (a *Account) Snapshot() execution.AccountState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Clone()
}
