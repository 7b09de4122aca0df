package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/wkokomoor/trading-v1/internal/config"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== Rotator Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit thresholds")
		fmt.Println("3) Edit symbols")
		fmt.Println("4) Edit backtest window")
		fmt.Println("5) Save config")
		fmt.Println("6) Launch backtest")
		fmt.Println("7) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editThresholds(reader, cfg)
		case "3":
			editSymbols(reader, cfg)
		case "4":
			editBacktest(reader, cfg)
		case "5":
			if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "6":
			launchBacktest(reader)
		case "7":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	th := cfg.Thresholds
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Mode: %s | strategy: %s\n", cfg.App.Mode, cfg.App.Strategy)
	fmt.Printf("Pair: long %s / short %s\n", cfg.Symbols.Long, cfg.Symbols.Short)
	fmt.Printf("Signals: volatility %s, benchmark %s\n", cfg.Symbols.Volatility, cfg.Symbols.Benchmark)
	fmt.Printf("Volatility band: %.2f .. %.2f\n", th.VolatilityLow, th.VolatilityHigh)
	fmt.Printf("Benchmark band: %.2f%% .. %.2f%%\n", th.BenchmarkLow*100, th.BenchmarkHigh*100)
	start, end, err := cfg.Backtest.Range(time.Now())
	if err != nil {
		fmt.Printf("Backtest window: invalid (%v)\n", err)
	} else {
		fmt.Printf("Backtest window: %s .. %s\n", start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	fmt.Printf("Starting cash: $%.2f | mark to market: %t\n", cfg.Backtest.StartingCash, cfg.Backtest.MarkToMarket)
	if err := cfg.Validate(); err != nil {
		fmt.Println(err)
	}
}

func editThresholds(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Thresholds ---")
	th := &cfg.Thresholds
	th.VolatilityHigh = promptFloat(reader, "Volatility high", th.VolatilityHigh)
	th.VolatilityLow = promptFloat(reader, "Volatility low", th.VolatilityLow)
	th.BenchmarkHigh = promptPercent(reader, "Benchmark high (%)", th.BenchmarkHigh)
	th.BenchmarkLow = promptPercent(reader, "Benchmark low (%)", th.BenchmarkLow)
	if err := th.Validate(); err != nil {
		fmt.Printf("warning: %v\n", err)
	}
}

func editSymbols(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Symbols ---")
	s := &cfg.Symbols
	s.Long = promptString(reader, "Long leg", s.Long)
	s.Short = promptString(reader, "Short leg", s.Short)
	s.Volatility = promptString(reader, "Volatility gauge", s.Volatility)
	s.Benchmark = promptString(reader, "Benchmark", s.Benchmark)
}

func editBacktest(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Backtest Window ---")
	b := &cfg.Backtest
	b.Start = promptDate(reader, "Start (YYYY-MM-DD, '-' clears)", b.Start)
	b.End = promptDate(reader, "End (YYYY-MM-DD, '-' clears)", b.End)
	b.LookbackMonths = int(promptFloat(reader, "Lookback months when start is empty", float64(b.LookbackMonths)))
	b.StartingCash = promptFloat(reader, "Starting cash", b.StartingCash)
}

func launchBacktest(reader *bufio.Reader) {
	fmt.Println("Launching backtest (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/rotator", "backtest", "--config", locateConfig())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start backtest: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptString(reader *bufio.Reader, label, current string) string {
	fmt.Printf("%s [%s]: ", label, current)
	line, _ := reader.ReadString('\n')
	if line = strings.TrimSpace(line); line != "" {
		return line
	}
	return current
}

func promptDate(reader *bufio.Reader, label, current string) string {
	val := promptString(reader, label, current)
	if val == "-" {
		return ""
	}
	if val == current {
		return current
	}
	if _, err := time.Parse(time.DateOnly, val); err != nil {
		fmt.Printf("invalid date, keeping %q\n", current)
		return current
	}
	return val
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.4g]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.4g\n", current)
		return current
	}
	return val
}

func promptPercent(reader *bufio.Reader, label string, current float64) float64 {
	pct := promptFloat(reader, label, current*100)
	return pct / 100
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	if path := os.Getenv("ROTATOR_CONFIG"); path != "" {
		return filepath.Clean(path)
	}
	return filepath.Clean(defaultConfigPath)
}
