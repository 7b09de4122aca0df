package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wkokomoor/trading-v1/internal/calendar"
)

// datesCmd lists the trading dates of the backtest window
var datesCmd = &cobra.Command{
	Use:   "dates",
	Short: "List NYSE trading dates in the backtest window",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(nil)
		if err != nil {
			return err
		}
		start, end, err := cfg.Backtest.Range(time.Now())
		if err != nil {
			return err
		}
		for _, d := range (calendar.NYSE{}).TradingDates(start, end) {
			fmt.Fprintln(cmd.OutOrStdout(), d.Format(time.DateOnly))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(datesCmd)
}
