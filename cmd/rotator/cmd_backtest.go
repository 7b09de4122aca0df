package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/wkokomoor/trading-v1/internal/calendar"
	"github.com/wkokomoor/trading-v1/internal/config"
	"github.com/wkokomoor/trading-v1/internal/engine"
)

var (
	btStart        string
	btEnd          string
	btCash         float64
	btMark         bool
	btReportFormat string
)

// backtestCmd replays the strategy over a window of trading dates
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay the rotation over historical trading dates",
	Long: `Replay the rotation over the NYSE trading dates of the configured window
on a simulated account, then compare the result with buying and holding the
benchmark.

Examples:
  rotator backtest
  rotator backtest --start 2024-01-02 --end 2024-12-31 --cash 10000
  rotator backtest --format json > report.json`,
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.Flags().StringVar(&btStart, "start", "", "First date (YYYY-MM-DD); default one lookback before end")
	backtestCmd.Flags().StringVar(&btEnd, "end", "", "Last date (YYYY-MM-DD); default today")
	backtestCmd.Flags().Float64Var(&btCash, "cash", 0, "Override starting cash")
	backtestCmd.Flags().BoolVar(&btMark, "mark-to-market", false, "Revalue holdings at each day's trade prices before sizing")
	backtestCmd.Flags().StringVar(&btReportFormat, "format", "table", "Report format: table, json")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(func(c *config.Config) {
		c.App.Mode = config.ModeBacktest
		if btStart != "" {
			c.Backtest.Start = btStart
		}
		if btEnd != "" {
			c.Backtest.End = btEnd
		}
		if btCash > 0 {
			c.Backtest.StartingCash = btCash
		}
		if btMark {
			c.Backtest.MarkToMarket = true
		}
	})
	if err != nil {
		return err
	}

	start, end, err := cfg.Backtest.Range(time.Now())
	if err != nil {
		return err
	}
	dates := calendar.NYSE{}.TradingDates(start, end)

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := assemble(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	log.Info().
		Str("start", start.Format(time.DateOnly)).
		Str("end", end.Format(time.DateOnly)).
		Int("dates", len(dates)).
		Msg("backtest started")

	report, runErr := rt.engine.RunBacktest(ctx, dates)
	if report != nil {
		if err := printReport(cmd, report); err != nil {
			return err
		}
	}
	return runErr
}

func printReport(cmd *cobra.Command, r *engine.Report) error {
	out := cmd.OutOrStdout()
	if btReportFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tBUY_SELL\tORDERS\tLIQUIDATION\tBENCHMARK")
	for _, p := range r.Points {
		fmt.Fprintf(w, "%s\t%+d\t%d\t%.2f\t%.2f\n", p.Date.Format(time.DateOnly), p.BuySell, p.Orders, p.Liquidation, p.BenchmarkValue)
	}
	fmt.Fprintf(w, "\nrun\t%s\n", r.RunID)
	fmt.Fprintf(w, "trades\t%d\n", r.Trades)
	fmt.Fprintf(w, "skipped days\t%d\n", len(r.Skipped))
	fmt.Fprintf(w, "strategy\t%.2f\t%+.2f%%\n", r.FinalValue, r.StrategyReturn*100)
	fmt.Fprintf(w, "buy & hold\t%.2f\t%+.2f%%\n", r.BenchmarkValue, r.BenchmarkReturn*100)
	return w.Flush()
}
