package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// applyEnvOverrides loads .env when present, then lets ROTATOR_* variables
// override file values. The broker credentials also accept the bare
// app_key/app_secret/callback_url names used by existing .env files.
func applyEnvOverrides(cfg *Config) {
	_ = godotenv.Load()

	setStr(&cfg.App.Mode, "ROTATOR_MODE")
	setStr(&cfg.App.LogLevel, "ROTATOR_LOG_LEVEL")
	setStr(&cfg.App.MetricsAddr, "ROTATOR_METRICS_ADDR")

	setStr(&cfg.Symbols.Long, "ROTATOR_SYMBOL_LONG")
	setStr(&cfg.Symbols.Short, "ROTATOR_SYMBOL_SHORT")
	setStr(&cfg.Symbols.Volatility, "ROTATOR_SYMBOL_VOLATILITY")
	setStr(&cfg.Symbols.Benchmark, "ROTATOR_SYMBOL_BENCHMARK")

	setFloat64(&cfg.Thresholds.VolatilityHigh, "ROTATOR_VOLATILITY_HIGH")
	setFloat64(&cfg.Thresholds.VolatilityLow, "ROTATOR_VOLATILITY_LOW")
	setFloat64(&cfg.Thresholds.BenchmarkHigh, "ROTATOR_BENCHMARK_HIGH")
	setFloat64(&cfg.Thresholds.BenchmarkLow, "ROTATOR_BENCHMARK_LOW")

	setStr(&cfg.Backtest.Start, "ROTATOR_BACKTEST_START")
	setStr(&cfg.Backtest.End, "ROTATOR_BACKTEST_END")
	setFloat64(&cfg.Backtest.StartingCash, "ROTATOR_BACKTEST_STARTING_CASH")

	setStr(&cfg.Broker.BaseURL, "ROTATOR_BROKER_BASE_URL")
	setStr(&cfg.Broker.AppKey, "ROTATOR_BROKER_APP_KEY", "app_key")
	setStr(&cfg.Broker.AppSecret, "ROTATOR_BROKER_APP_SECRET", "app_secret")
	setStr(&cfg.Broker.CallbackURL, "ROTATOR_BROKER_CALLBACK_URL", "callback_url")
	setStr(&cfg.Broker.RefreshToken, "ROTATOR_BROKER_REFRESH_TOKEN")
	setStr(&cfg.Broker.AccessToken, "ROTATOR_BROKER_ACCESS_TOKEN")
	setStr(&cfg.Broker.AccountHash, "ROTATOR_BROKER_ACCOUNT_HASH")

	setStr(&cfg.Cache.Addr, "ROTATOR_REDIS_ADDR")
	setStr(&cfg.Cache.Password, "ROTATOR_REDIS_PASSWORD")
	setBool(&cfg.Cache.Enabled, "ROTATOR_REDIS_ENABLED")

	setStr(&cfg.Store.DSN, "ROTATOR_POSTGRES_DSN")
	setBool(&cfg.Store.Enabled, "ROTATOR_POSTGRES_ENABLED")

	setStr(&cfg.Archive.Bucket, "ROTATOR_S3_BUCKET")
	setStr(&cfg.Archive.Endpoint, "ROTATOR_S3_ENDPOINT")
	setStr(&cfg.Archive.AccessKey, "ROTATOR_S3_ACCESS_KEY")
	setStr(&cfg.Archive.SecretKey, "ROTATOR_S3_SECRET_KEY")
	setBool(&cfg.Archive.Enabled, "ROTATOR_S3_ENABLED")
}

// setStr takes the first non-empty variable among keys.
func setStr(dst *string, keys ...string) {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			*dst = v
			return
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
