package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "rotator-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.App.Mode != ModePaper {
		t.Fatalf("unexpected App.Mode: %s", cfg.App.Mode)
	}
	if cfg.App.Strategy != "vix_spy" {
		t.Fatalf("expected default strategy, got %s", cfg.App.Strategy)
	}
	if cfg.Symbols.Long != "TQQQ" || cfg.Symbols.Short != "SQQQ" {
		t.Fatalf("unexpected legs: %+v", cfg.Symbols)
	}
	if cfg.Symbols.Volatility != "$VIX" || cfg.Symbols.Benchmark != "SPY" {
		t.Fatalf("expected default signal symbols, got %+v", cfg.Symbols)
	}
	if cfg.Thresholds.VolatilityHigh != 25 || cfg.Thresholds.BenchmarkLow != -0.01 {
		t.Fatalf("unexpected thresholds: %+v", cfg.Thresholds)
	}
	if cfg.Backtest.StartingCash != 5000 {
		t.Fatalf("expected starting cash 5000, got %.2f", cfg.Backtest.StartingCash)
	}
	if cfg.Backtest.MarkToMarket {
		t.Fatalf("expected mark_to_market disabled by file")
	}
	if cfg.Backtest.LookbackMonths != 1 {
		t.Fatalf("expected default lookback, got %d", cfg.Backtest.LookbackMonths)
	}
	if cfg.Broker.RequestsPerMinute != 60 || cfg.Broker.TimeoutSecs != 10 {
		t.Fatalf("unexpected broker pacing: %+v", cfg.Broker)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Addr != "redis.test:6379" || cfg.Cache.TTLHours != 48 {
		t.Fatalf("unexpected cache: %+v", cfg.Cache)
	}
	if !cfg.Archive.ForcePathStyle || cfg.Archive.Prefix != "backtests" {
		t.Fatalf("unexpected archive: %+v", cfg.Archive)
	}
	if cfg.Paper.FillsPath != "out/fills.jsonl" {
		t.Fatalf("unexpected fills path: %s", cfg.Paper.FillsPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("testdata config should validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadEmptyFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Symbols.Long != "UPRO" || cfg.Symbols.Short != "SPXU" || cfg.Thresholds.VolatilityHigh != 20 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ROTATOR_MODE", "live")
	t.Setenv("ROTATOR_VOLATILITY_HIGH", "30")
	t.Setenv("ROTATOR_BROKER_ACCESS_TOKEN", "")
	t.Setenv("app_key", "legacy-key")
	t.Setenv("ROTATOR_S3_ENABLED", "false")

	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.App.Mode != ModeLive {
		t.Fatalf("expected env mode override, got %s", cfg.App.Mode)
	}
	if cfg.Thresholds.VolatilityHigh != 30 {
		t.Fatalf("expected volatility_high 30, got %.2f", cfg.Thresholds.VolatilityHigh)
	}
	if cfg.Broker.AppKey != "legacy-key" {
		t.Fatalf("expected bare app_key fallback, got %s", cfg.Broker.AppKey)
	}
	if cfg.Broker.AccessToken != "token-from-file" {
		t.Fatalf("empty env must not clear file value")
	}
	if cfg.Archive.Enabled {
		t.Fatalf("expected archive disabled by env")
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.App.Mode = "yolo"
	cfg.Thresholds.VolatilityLow = 30
	cfg.Symbols.Short = cfg.Symbols.Long
	cfg.Store.Enabled = true

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"unknown mode", "volatility_low", "must differ", "store: dsn"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}

	cfg = Defaults()
	cfg.App.Mode = ModeLive
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "broker") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestValidateNormalizesMode(t *testing.T) {
	cfg := Defaults()
	cfg.App.Mode = " LIVE "
	cfg.Broker.AccessToken = "token"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if cfg.App.Mode != ModeLive {
		t.Fatalf("expected mode %q, got %q", ModeLive, cfg.App.Mode)
	}

	cfg = Defaults()
	cfg.App.Mode = "Paper"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "broker") {
		t.Fatalf("expected credential check for mixed-case paper mode, got %v", err)
	}
}

func TestDefaultsCarryLiquidationForward(t *testing.T) {
	if Defaults().Backtest.MarkToMarket {
		t.Fatalf("backtests must not mark to market unless asked")
	}
}

func TestBacktestRange(t *testing.T) {
	now := time.Date(2025, 5, 13, 18, 45, 0, 0, time.UTC)
	start, end, err := Backtest{LookbackMonths: 1}.Range(now)
	if err != nil {
		t.Fatalf("Range returned error: %v", err)
	}
	if !end.Equal(time.Date(2025, 5, 13, 0, 0, 0, 0, time.UTC)) || !start.Equal(time.Date(2025, 4, 13, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected window %s..%s", start, end)
	}

	if _, _, err := (Backtest{Start: "2025-06-01", End: "2025-05-01"}).Range(now); err == nil {
		t.Fatalf("expected inverted window error")
	}
	if _, _, err := (Backtest{End: "13/05/2025"}).Range(now); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := Defaults()
	cfg.Thresholds.VolatilityHigh = 22.5
	if err := Save(path, &cfg); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Thresholds.VolatilityHigh != 22.5 {
		t.Fatalf("expected persisted threshold, got %.2f", loaded.Thresholds.VolatilityHigh)
	}
	if err := Save(path, nil); err == nil {
		t.Fatalf("expected nil config error")
	}
}

func TestRedacted(t *testing.T) {
	cfg := Defaults()
	cfg.Broker.AppSecret = "shh"
	cfg.Store.DSN = "postgres://u:p@h/db"
	out := Redacted(&cfg)
	if out.Broker.AppSecret != redacted || out.Store.DSN != redacted {
		t.Fatalf("secrets not redacted: %+v", out.Broker)
	}
	if out.Broker.AppKey != "" {
		t.Fatalf("empty secrets should stay empty")
	}
	if cfg.Broker.AppSecret != "shh" {
		t.Fatalf("original config must be untouched")
	}
}
