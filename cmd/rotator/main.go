package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wkokomoor/trading-v1/internal/config"
	"github.com/wkokomoor/trading-v1/internal/util"
)

const defaultConfigPath = "internal/config/config.yaml"

var (
	configPath string
	logLevel   string
	jsonLogs   bool
)

// rootCmd is the base command for the rotator CLI
var rootCmd = &cobra.Command{
	Use:   "rotator",
	Short: "Daily leveraged-ETF volatility rotation",
	Long: `rotator decides once per trading day whether to hold the bull or the bear
leveraged ETF of a pair, driven by a volatility gauge and the benchmark's
open-to-open change, and trades toward that allocation.

Examples:
  rotator backtest --start 2025-04-01 --end 2025-05-01
  rotator run --mode paper
  rotator dates`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to YAML configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override app.log_level")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "Emit JSON logs instead of console output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads and validates the configuration, applying mutate before
// validation so flags can override file values.
func loadConfig(mutate func(*config.Config)) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if mutate != nil {
		mutate(cfg)
	}
	if logLevel != "" {
		cfg.App.LogLevel = logLevel
	}
	log := util.NewConsoleLogger(cfg.App.LogLevel)
	if jsonLogs {
		log = util.NewLogger(cfg.App.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		return nil, log, err
	}
	log.Debug().Interface("config", config.Redacted(cfg)).Msg("config loaded")
	return cfg, log, nil
}
