// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wkokomoor/trading-v1/internal/strategy"
)

// Operating modes.
const (
	ModeLive     = "live"
	ModePaper    = "paper"
	ModeBacktest = "backtest"
)

// App captures process-wide runtime settings such as name, mode, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	Mode        string `yaml:"mode"`
	Strategy    string `yaml:"strategy"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Symbols names the two tradable legs and the two signal inputs.
type Symbols struct {
	Long       string `yaml:"long"`
	Short      string `yaml:"short"`
	Volatility string `yaml:"volatility"`
	Benchmark  string `yaml:"benchmark"`
}

// Backtest bounds the historical replay and seeds the simulated account.
type Backtest struct {
	Start          string  `yaml:"start"` // YYYY-MM-DD; empty means LookbackMonths before End
	End            string  `yaml:"end"`   // YYYY-MM-DD; empty means today
	LookbackMonths int     `yaml:"lookback_months"`
	StartingCash   float64 `yaml:"starting_cash"`
	MarkToMarket   bool    `yaml:"mark_to_market"`
}

// Broker describes the brokerage REST API used for quotes, history, balances and orders.
type Broker struct {
	BaseURL           string `yaml:"base_url"`
	AppKey            string `yaml:"app_key"`
	AppSecret         string `yaml:"app_secret"`
	CallbackURL       string `yaml:"callback_url"`
	RefreshToken      string `yaml:"refresh_token"`
	AccessToken       string `yaml:"access_token"`
	AccountHash       string `yaml:"account_hash"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	TimeoutSecs       int    `yaml:"timeout_secs"`
}

// Cache configures the Redis candle cache.
type Cache struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTLHours int    `yaml:"ttl_hours"`
}

// Store configures the PostgreSQL trade ledger sink.
type Store struct {
	Enabled  bool   `yaml:"enabled"`
	DSN      string `yaml:"dsn"`
	MaxConns int    `yaml:"max_conns"`
}

// Archive configures S3 uploads of backtest results.
type Archive struct {
	Enabled        bool   `yaml:"enabled"`
	Endpoint       string `yaml:"endpoint"`
	Region         string `yaml:"region"`
	Bucket         string `yaml:"bucket"`
	Prefix         string `yaml:"prefix"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	ForcePathStyle bool   `yaml:"force_path_style"`
}

// Paper captures local journaling of simulated and dry-run fills.
type Paper struct {
	FillsPath string `yaml:"fills_path"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App        App                 `yaml:"app"`
	Symbols    Symbols             `yaml:"symbols"`
	Thresholds strategy.Thresholds `yaml:"thresholds"`
	Backtest   Backtest            `yaml:"backtest"`
	Broker     Broker              `yaml:"broker"`
	Cache      Cache               `yaml:"cache"`
	Store      Store               `yaml:"store"`
	Archive    Archive             `yaml:"archive"`
	Paper      Paper               `yaml:"paper"`
}

// Defaults returns the configuration used when a key is absent from the file.
func Defaults() Config {
	return Config{
		App: App{
			Name:     "rotator",
			Env:      "dev",
			Mode:     ModeBacktest,
			Strategy: "vix_spy",
			LogLevel: "info",
		},
		Symbols: Symbols{
			Long:       "UPRO",
			Short:      "SPXU",
			Volatility: "$VIX",
			Benchmark:  "SPY",
		},
		Thresholds: strategy.DefaultThresholds(),
		Backtest: Backtest{
			LookbackMonths: 1,
			StartingCash:   1000,
		},
		Broker: Broker{
			BaseURL:           "https://api.schwabapi.com",
			CallbackURL:       "https://127.0.0.1",
			RequestsPerMinute: 120,
			TimeoutSecs:       10,
		},
		Cache: Cache{
			Addr:     "localhost:6379",
			TTLHours: 24 * 30,
		},
		Store: Store{
			MaxConns: 4,
		},
		Archive: Archive{
			Region: "us-east-1",
			Prefix: "backtests",
		},
		Paper: Paper{
			FillsPath: "data/fills.jsonl",
		},
	}
}

// Load reads a YAML file on top of the defaults and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// NormalizeMode folds a user-supplied mode to its canonical spelling.
func NormalizeMode(mode string) string {
	return strings.ToLower(strings.TrimSpace(mode))
}

// Validate normalizes the mode and reports every inconsistency at once.
func (c *Config) Validate() error {
	var errs []string

	c.App.Mode = NormalizeMode(c.App.Mode)
	switch c.App.Mode {
	case ModeLive, ModePaper, ModeBacktest:
	default:
		errs = append(errs, fmt.Sprintf("app: unknown mode %q (valid: live, paper, backtest)", c.App.Mode))
	}
	if err := c.Thresholds.Validate(); err != nil {
		errs = append(errs, "thresholds: "+err.Error())
	}
	s := c.Symbols
	if s.Long == "" || s.Short == "" || s.Volatility == "" || s.Benchmark == "" {
		errs = append(errs, "symbols: long, short, volatility and benchmark are all required")
	}
	if s.Long != "" && s.Long == s.Short {
		errs = append(errs, "symbols: long and short legs must differ")
	}
	if c.Backtest.StartingCash <= 0 {
		errs = append(errs, "backtest: starting_cash must be positive")
	}
	if _, _, err := c.Backtest.Range(time.Now()); err != nil {
		errs = append(errs, "backtest: "+err.Error())
	}
	if c.App.Mode == ModeLive || c.App.Mode == ModePaper {
		if c.Broker.AccessToken == "" && (c.Broker.RefreshToken == "" || c.Broker.AppKey == "" || c.Broker.AppSecret == "") {
			errs = append(errs, "broker: access_token, or refresh_token with app_key and app_secret, is required for mode "+c.App.Mode)
		}
	}
	if c.Broker.BaseURL == "" {
		errs = append(errs, "broker: base_url must not be empty")
	}
	if c.Store.Enabled && c.Store.DSN == "" {
		errs = append(errs, "store: dsn is required when enabled")
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		errs = append(errs, "archive: bucket is required when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// Range resolves the backtest window. now supplies the end when none is configured.
func (b Backtest) Range(now time.Time) (time.Time, time.Time, error) {
	end := now.UTC()
	if b.End != "" {
		parsed, err := time.Parse(time.DateOnly, b.End)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse end %q: %w", b.End, err)
		}
		end = parsed
	}
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	months := b.LookbackMonths
	if months <= 0 {
		months = 1
	}
	start := end.AddDate(0, -months, 0)
	if b.Start != "" {
		parsed, err := time.Parse(time.DateOnly, b.Start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse start %q: %w", b.Start, err)
		}
		start = parsed
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s must precede end %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	return start, end, nil
}
