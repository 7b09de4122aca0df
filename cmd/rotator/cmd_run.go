package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wkokomoor/trading-v1/internal/calendar"
	"github.com/wkokomoor/trading-v1/internal/config"
	"github.com/wkokomoor/trading-v1/internal/marketdata"
)

var runMode string

// runCmd executes one live or paper cycle
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run today's rebalance against the brokerage account",
	Long: `Evaluate the most recent trading day against the one before it, read the
brokerage account and trade toward the target leg. In paper mode orders are
logged instead of placed.

Examples:
  rotator run --mode paper
  rotator run --mode live`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runMode, "mode", "", "live or paper; default app.mode")
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(func(c *config.Config) {
		if runMode != "" {
			c.App.Mode = runMode
		}
		if config.NormalizeMode(c.App.Mode) == config.ModeBacktest {
			c.App.Mode = config.ModePaper
		}
	})
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	dates := settledSessions(now)
	if len(dates) < 2 {
		return fmt.Errorf("no trading dates before %s", now.Format(time.DateOnly))
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := assemble(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := rt.engine.RunOnce(ctx, dates)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s orders=%d liquidation=%.2f\n",
		res.Date.Format(time.DateOnly), res.Markers, len(res.Orders), res.State.LiquidationValue)
	for _, o := range res.Orders {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %s x%d @ %.2f\n", o.Side, o.Symbol, o.Qty, o.Price)
	}
	return nil
}

// settledSessions lists recent trading dates whose trade candle has opened by
// now. Today is left out until then, so a run scheduled before 15:00 UTC acts
// on the previous session.
func settledSessions(now time.Time) []time.Time {
	dates := calendar.NYSE{}.TradingDates(now.AddDate(0, 0, -10), now)
	if n := len(dates); n > 0 && now.Before(marketdata.At(dates[n-1], marketdata.TradeTime)) {
		dates = dates[:n-1]
	}
	return dates
}
