package broker

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wkokomoor/trading-v1/internal/calendar"
	"github.com/wkokomoor/trading-v1/internal/marketdata"
	"github.com/wkokomoor/trading-v1/internal/signal"
)

type candleDTO struct {
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   int64   `json:"volume"`
	Datetime int64   `json:"datetime"`
}

type priceHistoryDTO struct {
	Symbol  string      `json:"symbol"`
	Empty   bool        `json:"empty"`
	Candles []candleDTO `json:"candles"`
}

// DayCandles fetches the five-minute candles for one UTC day.
func (c *Client) DayCandles(ctx context.Context, symbol string, day time.Time) ([]marketdata.Candle, error) {
	start := calendar.Day(day)
	end := start.Add(24*time.Hour - time.Millisecond)

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("periodType", "day")
	q.Set("period", "1")
	q.Set("frequencyType", "minute")
	q.Set("frequency", "5")
	q.Set("startDate", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("endDate", strconv.FormatInt(end.UnixMilli(), 10))
	q.Set("needExtendedHoursData", "false")

	var dto priceHistoryDTO
	if err := c.getJSON(ctx, "price_history", "/marketdata/v1/pricehistory", q, &dto); err != nil {
		return nil, err
	}
	out := make([]marketdata.Candle, 0, len(dto.Candles))
	for _, cd := range dto.Candles {
		ts := time.UnixMilli(cd.Datetime).UTC()
		if !calendar.Day(ts).Equal(start) {
			continue
		}
		out = append(out, marketdata.Candle{
			Time:   ts,
			Open:   cd.Open,
			High:   cd.High,
			Low:    cd.Low,
			Close:  cd.Close,
			Volume: cd.Volume,
		})
	}
	return out, nil
}

type quoteDTO struct {
	Quote *struct {
		AskPrice float64 `json:"askPrice"`
	} `json:"quote"`
	Extended *struct {
		AskPrice float64 `json:"askPrice"`
	} `json:"extended"`
}

// TradePrices returns the current ask for each symbol, preferring the
// extended-hours ask when one is quoted. The day argument is ignored: quotes
// are always live.
func (c *Client) TradePrices(ctx context.Context, _ time.Time, symbols ...string) (map[string]float64, error) {
	q := url.Values{}
	q.Set("symbols", strings.Join(symbols, ","))
	q.Set("fields", "quote,extended")

	var dto map[string]quoteDTO
	if err := c.getJSON(ctx, "quotes", "/marketdata/v1/quotes", q, &dto); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		entry, ok := dto[sym]
		if !ok {
			return nil, fmt.Errorf("quote for %s: %w", sym, signal.ErrDataUnavailable)
		}
		px := askPrice(entry)
		if px <= 0 {
			return nil, fmt.Errorf("ask for %s: %w", sym, signal.ErrDataUnavailable)
		}
		out[sym] = px
	}
	return out, nil
}

func askPrice(q quoteDTO) float64 {
	if q.Extended != nil && q.Extended.AskPrice > 0 {
		return q.Extended.AskPrice
	}
	if q.Quote != nil {
		return q.Quote.AskPrice
	}
	return 0
}
