package broker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"

	"github.com/wkokomoor/trading-v1/internal/execution"
)

type instrumentDTO struct {
	Symbol    string `json:"symbol"`
	AssetType string `json:"assetType"`
}

type legDTO struct {
	Instruction string        `json:"instruction"`
	Quantity    int64         `json:"quantity"`
	Instrument  instrumentDTO `json:"instrument"`
}

type orderDTO struct {
	OrderType          string   `json:"orderType"`
	Session            string   `json:"session"`
	Duration           string   `json:"duration"`
	OrderStrategyType  string   `json:"orderStrategyType"`
	OrderLegCollection []legDTO `json:"orderLegCollection"`
}

func marketOrder(o execution.Order) orderDTO {
	return orderDTO{
		OrderType:         "MARKET",
		Session:           "NORMAL",
		Duration:          "DAY",
		OrderStrategyType: "SINGLE",
		OrderLegCollection: []legDTO{{
			Instruction: string(o.Side),
			Quantity:    o.Qty,
			Instrument:  instrumentDTO{Symbol: o.Symbol, AssetType: "EQUITY"},
		}},
	}
}

// Submit places a day market order. Any non-2xx answer is an
// execution.ErrExecutionRejected; the order is never retried.
func (c *Client) Submit(ctx context.Context, order execution.Order) (execution.Fill, error) {
	if order.Qty <= 0 {
		return execution.Fill{}, fmt.Errorf("%w: non-positive quantity %d", execution.ErrExecutionRejected, order.Qty)
	}
	hash, err := c.AccountHash(ctx)
	if err != nil {
		return execution.Fill{}, err
	}
	resp, err := c.authorized(ctx, "place_order", http.MethodPost, "/trader/v1/accounts/"+url.PathEscape(hash)+"/orders", nil, marketOrder(order))
	if err != nil {
		return execution.Fill{}, fmt.Errorf("%w: %w", execution.ErrExecutionRejected, err)
	}
	if resp.code < 200 || resp.code > 299 {
		return execution.Fill{}, fmt.Errorf("%w: %s %s x%d: status %d: %s",
			execution.ErrExecutionRejected, order.Side, order.Symbol, order.Qty, resp.code, snippet(resp.body))
	}

	fill := execution.Fill{
		Symbol: order.Symbol,
		Side:   order.Side,
		Qty:    order.Qty,
		Price:  order.Price,
		Ts:     c.now().UTC(),
	}
	if loc := resp.header.Get("Location"); loc != "" {
		fill.OrderID = path.Base(loc)
	}
	c.log.Info().
		Str("order_id", fill.OrderID).
		Str("sym", order.Symbol).
		Str("side", string(order.Side)).
		Int64("qty", order.Qty).
		Msg("order placed")
	return fill, nil
}
