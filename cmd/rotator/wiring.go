package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	s3archive "github.com/wkokomoor/trading-v1/internal/archive/s3"
	"github.com/wkokomoor/trading-v1/internal/broker"
	rediscache "github.com/wkokomoor/trading-v1/internal/cache/redis"
	"github.com/wkokomoor/trading-v1/internal/config"
	"github.com/wkokomoor/trading-v1/internal/engine"
	"github.com/wkokomoor/trading-v1/internal/execution"
	"github.com/wkokomoor/trading-v1/internal/marketdata"
	"github.com/wkokomoor/trading-v1/internal/metrics"
	"github.com/wkokomoor/trading-v1/internal/paper"
	"github.com/wkokomoor/trading-v1/internal/store/postgres"
	"github.com/wkokomoor/trading-v1/internal/strategy"
)

// runtime holds the assembled collaborators and their teardown.
type runtime struct {
	engine  *engine.Engine
	closers []func()
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// assemble wires the broker, optional cache, sinks and archive into an engine
// for cfg.App.Mode.
func assemble(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*runtime, error) {
	rt := &runtime{}
	fail := func(err error) (*runtime, error) {
		rt.Close()
		return nil, err
	}

	if cfg.App.MetricsAddr != "" {
		srv := metrics.Serve(cfg.App.MetricsAddr)
		rt.closers = append(rt.closers, func() { _ = srv.Close() })
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	client := broker.New(cfg.Broker, log.With().Str("component", "broker").Logger())

	var providerOpts []marketdata.Option
	if cfg.Cache.Enabled {
		rc, err := rediscache.New(ctx, cfg.Cache)
		if err != nil {
			return fail(err)
		}
		rt.closers = append(rt.closers, func() { _ = rc.Close() })
		ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
		providerOpts = append(providerOpts, marketdata.WithCache(rediscache.NewCandleCache(rc, ttl)))
	}
	provider := marketdata.NewProvider(client, log.With().Str("component", "marketdata").Logger(), providerOpts...)

	strat, err := strategy.Build(cfg.App.Strategy, cfg.Thresholds, log.With().Str("component", "strategy").Logger())
	if err != nil {
		return fail(err)
	}

	opts := []engine.Option{engine.WithLedger(paper.NewLedger("", 64))}

	if cfg.Paper.FillsPath != "" {
		rec, err := paper.NewJSONLRecorder(cfg.Paper.FillsPath)
		if err != nil {
			return fail(fmt.Errorf("open fills journal: %w", err))
		}
		rt.closers = append(rt.closers, func() { _ = rec.Close() })
		opts = append(opts, engine.WithRecorder(rec))
	}
	if cfg.Store.Enabled {
		pg, err := postgres.New(ctx, cfg.Store)
		if err != nil {
			return fail(err)
		}
		rt.closers = append(rt.closers, pg.Close)
		if err := pg.EnsureSchema(ctx); err != nil {
			return fail(err)
		}
		opts = append(opts, engine.WithRecorder(postgres.NewTradeStore(pg)))
	}

	switch cfg.App.Mode {
	case config.ModeBacktest:
		if cfg.Archive.Enabled {
			arc, err := s3archive.New(ctx, cfg.Archive)
			if err != nil {
				return fail(err)
			}
			opts = append(opts, engine.WithArchiver(arc))
		}
	case config.ModeLive:
		opts = append(opts, engine.WithPricer(client), engine.WithAccountSource(client), engine.WithExecutor(client))
	case config.ModePaper:
		opts = append(opts,
			engine.WithPricer(client),
			engine.WithAccountSource(client),
			engine.WithExecutor(execution.NewLogExecutor(log.With().Str("component", "executor").Logger())),
		)
	default:
		return fail(errors.New("unknown mode " + cfg.App.Mode))
	}

	ecfg := engine.Config{
		Mode:         cfg.App.Mode,
		Pair:         execution.Pair{Long: cfg.Symbols.Long, Short: cfg.Symbols.Short},
		Inputs:       marketdata.Inputs{Volatility: cfg.Symbols.Volatility, Benchmark: cfg.Symbols.Benchmark},
		StartingCash: cfg.Backtest.StartingCash,
		MarkToMarket: cfg.Backtest.MarkToMarket,
	}
	eng, err := engine.New(ecfg, strat, provider, log, opts...)
	if err != nil {
		return fail(err)
	}
	rt.engine = eng
	return rt, nil
}
