package execution

import "fmt"

// Position is the holding of a single symbol.
type Position struct {
	Shares int64   `json:"shares"`
	Value  float64 `json:"value"`
}

// Balances are the cash figures an account provider reports.
type Balances struct {
	Cash             float64 `json:"cash_balance"`
	LongMarketValue  float64 `json:"long_market_value"`
	LiquidationValue float64 `json:"liquidation_value"`
}

// NewAccountState combines balances and positions into one state.
func NewAccountState(b Balances, positions map[string]Position) AccountState {
	state := AccountState{
		Cash:             b.Cash,
		LongMarketValue:  b.LongMarketValue,
		LiquidationValue: b.LiquidationValue,
		Positions:        make(map[string]Position, len(positions)),
	}
	for sym, pos := range positions {
		state.Positions[sym] = pos
	}
	return state
}

// AccountState is the cash and holdings a rebalance is sized against.
type AccountState struct {
	Cash             float64             `json:"cash_balance"`
	LongMarketValue  float64             `json:"long_market_value"`
	LiquidationValue float64             `json:"liquidation_value"`
	Positions        map[string]Position `json:"positions"`
}

// Clone returns a deep copy so callers cannot alias the positions map.
func (a AccountState) Clone() AccountState {
	out := a
	out.Positions = make(map[string]Position, len(a.Positions))
	for sym, pos := range a.Positions {
		out.Positions[sym] = pos
	}
	return out
}

// Holds reports whether the symbol has a live position entry.
func (a AccountState) Holds(symbol string) bool {
	_, ok := a.Positions[symbol]
	return ok
}

// Pair names the two tradable legs of the rotation.
type Pair struct {
	Long  string
	Short string
}

// Holding classifies an account relative to a pair.
type Holding int

const (
	Flat Holding = iota
	Long
	Short
)

func (h Holding) String() string {
	switch h {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// ClassifyHolding maps the account onto LONG, SHORT or FLAT.
func ClassifyHolding(acct AccountState, pair Pair) (Holding, error) {
	long, short := acct.Holds(pair.Long), acct.Holds(pair.Short)
	switch {
	case long && short:
		return Flat, fmt.Errorf("%s and %s: %w", pair.Long, pair.Short, ErrAmbiguousHolding)
	case long:
		return Long, nil
	case short:
		return Short, nil
	default:
		return Flat, nil
	}
}
