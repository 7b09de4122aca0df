// Package engine drives the daily rebalance: snapshot, evaluate, resolve,
// execute and record, either once against a brokerage account or over a
// window of historical trading dates.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wkokomoor/trading-v1/internal/config"
	"github.com/wkokomoor/trading-v1/internal/execution"
	"github.com/wkokomoor/trading-v1/internal/marketdata"
	"github.com/wkokomoor/trading-v1/internal/metrics"
	"github.com/wkokomoor/trading-v1/internal/paper"
	"github.com/wkokomoor/trading-v1/internal/risk"
	"github.com/wkokomoor/trading-v1/internal/signal"
	"github.com/wkokomoor/trading-v1/internal/strategy"
)

// ErrNotEnoughDates is returned when fewer than two trading dates are supplied.
var ErrNotEnoughDates = errors.New("at least two trading dates are required")

// TradePricer prices the tradable legs for a cycle.
type TradePricer interface {
	TradePrices(ctx context.Context, day time.Time, symbols ...string) (map[string]float64, error)
}

// AccountSource reads the brokerage account fresh for each live cycle.
type AccountSource interface {
	CurrentBalances(ctx context.Context) (execution.Balances, error)
	CurrentPositions(ctx context.Context) (map[string]execution.Position, error)
}

// Archiver stores the artifacts of a finished backtest.
type Archiver interface {
	Archive(ctx context.Context, runID string, entries []paper.Entry, report any) error
}

// Config holds the per-run settings of an Engine.
type Config struct {
	Mode         string
	Pair         execution.Pair
	Inputs       marketdata.Inputs
	StartingCash float64
	MarkToMarket bool
}

// Engine runs cycles for one pair. It is not safe for concurrent cycles.
type Engine struct {
	cfg      Config
	strategy strategy.Strategy
	reader   marketdata.PriceReader
	pricer   TradePricer
	source   AccountSource
	executor execution.Executor
	sinks    []paper.Recorder
	archiver Archiver
	account  *paper.Account
	ledger   *paper.Ledger
	kill     *risk.KillSwitch
	log      zerolog.Logger
	flushed  int
}

// Option configures optional collaborators.
type Option func(*Engine)

// WithPricer overrides trade pricing; by default legs are priced from candles.
func WithPricer(p TradePricer) Option { return func(e *Engine) { e.pricer = p } }

// WithAccountSource supplies the brokerage account for live and paper cycles.
func WithAccountSource(s AccountSource) Option { return func(e *Engine) { e.source = s } }

// WithExecutor supplies the venue orders are submitted to outside backtests.
func WithExecutor(x execution.Executor) Option { return func(e *Engine) { e.executor = x } }

// WithRecorder adds a ledger sink flushed after every cycle.
func WithRecorder(r paper.Recorder) Option {
	return func(e *Engine) { e.sinks = append(e.sinks, r) }
}

// WithArchiver uploads the ledger and report at the end of a backtest.
func WithArchiver(a Archiver) Option { return func(e *Engine) { e.archiver = a } }

// WithLedger replaces the run ledger, e.g. to pin the run ID.
func WithLedger(l *paper.Ledger) Option { return func(e *Engine) { e.ledger = l } }

// New assembles an engine. The simulated account starts with cfg.StartingCash.
func New(cfg Config, strat strategy.Strategy, reader marketdata.PriceReader, log zerolog.Logger, opts ...Option) (*Engine, error) {
	if strat == nil || reader == nil {
		return nil, fmt.Errorf("engine: strategy and price reader are required")
	}
	if cfg.Mode == "" {
		cfg.Mode = config.ModeBacktest
	}
	e := &Engine{
		cfg:      cfg,
		strategy: strat,
		reader:   reader,
		pricer:   marketdata.CandlePricer{Reader: reader},
		account:  paper.NewAccount(cfg.StartingCash),
		kill:     &risk.KillSwitch{},
		log:      log.With().Str("component", "engine").Str("mode", cfg.Mode).Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ledger == nil {
		e.ledger = paper.NewLedger("", 64)
	}
	if e.cfg.Mode != config.ModeBacktest && (e.source == nil || e.executor == nil) {
		return nil, fmt.Errorf("engine: mode %s needs an account source and an executor", e.cfg.Mode)
	}
	return e, nil
}

// Ledger exposes the run ledger.
func (e *Engine) Ledger() *paper.Ledger { return e.ledger }

// Account returns the simulated account state.
func (e *Engine) Account() execution.AccountState { return e.account.Snapshot() }

// KillSwitch exposes the run halt state.
func (e *Engine) KillSwitch() *risk.KillSwitch { return e.kill }

// CycleResult describes one decision point.
type CycleResult struct {
	Date     time.Time              `json:"date"`
	Snapshot signal.Snapshot        `json:"-"`
	Markers  signal.Markers         `json:"markers"`
	Prices   map[string]float64     `json:"prices"`
	Orders   []execution.Order      `json:"orders"`
	State    execution.AccountState `json:"state"`
}

// Cycle evaluates day against prev and trades toward the target leg.
func (e *Engine) Cycle(ctx context.Context, day, prev time.Time) (CycleResult, error) {
	res := CycleResult{Date: day}
	if err := e.kill.Check(); err != nil {
		return res, err
	}

	snap, err := marketdata.BuildSnapshot(ctx, e.reader, e.cfg.Inputs, day, prev)
	if err != nil {
		return res, fmt.Errorf("snapshot %s: %w", day.Format(time.DateOnly), err)
	}
	res.Snapshot = snap
	res.Markers = e.strategy.Evaluate(snap)
	metrics.Direction.Set(float64(res.Markers.BuySell))

	prices, err := e.pricer.TradePrices(ctx, day, e.cfg.Pair.Long, e.cfg.Pair.Short)
	if err != nil {
		return res, fmt.Errorf("trade prices %s: %w", day.Format(time.DateOnly), err)
	}
	res.Prices = prices

	acct, state, err := e.accountFor(ctx, prices)
	if err != nil {
		return res, err
	}

	orders, err := execution.Resolve(res.Markers.BuySell, state, e.cfg.Pair, prices[e.cfg.Pair.Long], prices[e.cfg.Pair.Short])
	if err != nil {
		if errors.Is(err, execution.ErrAmbiguousHolding) {
			e.kill.Trip(err)
		}
		res.State = state
		return res, fmt.Errorf("resolve %s: %w", day.Format(time.DateOnly), err)
	}
	res.Orders = orders
	if e.cfg.Mode == config.ModeBacktest && e.cfg.MarkToMarket {
		// Commit the revaluation only once the day is known to trade.
		e.account.MarkToMarket(prices)
	}

	state, err = e.execute(ctx, acct, orders, marketdata.At(day, marketdata.TradeTime))
	res.State = state
	e.flush(ctx)
	metrics.LiquidationValue.Set(state.LiquidationValue)
	if err != nil {
		return res, err
	}
	e.report(res)
	return res, nil
}

// accountFor returns the account the cycle trades against and its state.
// Backtests use the simulated account, whose liquidation value only moves
// through order deltas unless marking to market is enabled. Live and paper
// cycles mirror the brokerage account read fresh.
func (e *Engine) accountFor(ctx context.Context, prices map[string]float64) (*paper.Account, execution.AccountState, error) {
	if e.cfg.Mode == config.ModeBacktest {
		if e.cfg.MarkToMarket {
			return e.account, e.account.Valued(prices), nil
		}
		return e.account, e.account.Snapshot(), nil
	}
	bal, err := e.source.CurrentBalances(ctx)
	if err != nil {
		return nil, execution.AccountState{}, fmt.Errorf("current balances: %w", err)
	}
	positions, err := e.source.CurrentPositions(ctx)
	if err != nil {
		return nil, execution.AccountState{}, fmt.Errorf("current positions: %w", err)
	}
	state := execution.NewAccountState(bal, positions)
	e.account = paper.NewAccountFrom(state)
	return e.account, state, nil
}

// execute applies orders in sequence. Outside backtests each order is
// submitted first and mirrored locally only once the venue accepts it.
func (e *Engine) execute(ctx context.Context, acct *paper.Account, orders []execution.Order, ts time.Time) (execution.AccountState, error) {
	if e.cfg.Mode == config.ModeBacktest {
		state, err := acct.Apply(orders, e.ledger, ts)
		if err != nil {
			e.kill.Trip(err)
		}
		return state, err
	}

	state := acct.Snapshot()
	for _, order := range orders {
		if err := e.kill.Check(); err != nil {
			return state, err
		}
		fill, err := e.executor.Submit(ctx, order)
		if err != nil {
			if errors.Is(err, execution.ErrExecutionRejected) {
				e.kill.Trip(err)
			}
			return state, fmt.Errorf("submit %s %s: %w", order.Side, order.Symbol, err)
		}
		ts := fill.Ts
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		if state, err = acct.Apply([]execution.Order{order}, e.ledger, ts); err != nil {
			e.kill.Trip(err)
			return state, err
		}
	}
	return state, nil
}

func (e *Engine) flush(ctx context.Context) {
	entries := e.ledger.Since(e.flushed)
	if len(entries) == 0 {
		return
	}
	e.flushed += len(entries)
	for _, sink := range e.sinks {
		if err := sink.Record(ctx, entries); err != nil {
			e.log.Error().Err(err).Int("entries", len(entries)).Msg("record ledger entries")
		}
	}
}

func (e *Engine) report(res CycleResult) {
	ev := e.log.Info().
		Str("date", res.Date.Format(time.DateOnly)).
		Float64("vol", res.Snapshot.VolatilityOpen()).
		Float64("bench_change", res.Snapshot.BenchmarkChange()).
		Int("volatile", res.Markers.VolatileMarket.Int()).
		Int("boom", res.Markers.BenchmarkBoom.Int()).
		Int("buy_sell", res.Markers.BuySell.Int()).
		Int("orders", len(res.Orders)).
		Float64("cash", res.State.Cash).
		Float64("lmv", res.State.LongMarketValue).
		Float64("liquidation", res.State.LiquidationValue)
	for sym, pos := range res.State.Positions {
		ev = ev.Int64("shares_"+sym, pos.Shares)
	}
	ev.Msg("cycle")
}

// outcome labels a finished cycle for metrics.
func outcome(res CycleResult, err error) string {
	switch {
	case err == nil && len(res.Orders) > 0:
		return "rebalanced"
	case err == nil:
		return "held"
	case skippable(err):
		return "skipped"
	case fatal(err):
		return "halted"
	default:
		return "failed"
	}
}

// skippable errors are market-data problems that void one backtest day.
func skippable(err error) bool {
	return errors.Is(err, signal.ErrDataUnavailable) || errors.Is(err, execution.ErrInvalidPrice)
}

func fatal(err error) bool {
	return errors.Is(err, execution.ErrAmbiguousHolding) ||
		errors.Is(err, execution.ErrInsufficientPosition) ||
		errors.Is(err, execution.ErrExecutionRejected) ||
		errors.Is(err, risk.ErrHalted)
}
