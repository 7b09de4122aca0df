package broker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"

	"github.com/wkokomoor/trading-v1/internal/execution"
)

// ErrMalformedAccount flags an account payload missing required fields.
var ErrMalformedAccount = errors.New("broker: malformed account payload")

type accountNumberDTO struct {
	AccountNumber string `json:"accountNumber"`
	HashValue     string `json:"hashValue"`
}

type balancesDTO struct {
	CashBalance      *float64 `json:"cashBalance"`
	LongMarketValue  *float64 `json:"longMarketValue"`
	LiquidationValue *float64 `json:"liquidationValue"`
}

type positionDTO struct {
	Instrument struct {
		Symbol string `json:"symbol"`
	} `json:"instrument"`
	LongQuantity float64 `json:"longQuantity"`
	MarketValue  float64 `json:"marketValue"`
}

type accountDTO struct {
	SecuritiesAccount *struct {
		CurrentBalances *balancesDTO  `json:"currentBalances"`
		Positions       []positionDTO `json:"positions"`
	} `json:"securitiesAccount"`
}

// AccountHash resolves the encrypted account identifier used in trader
// paths, taking the first linked account when none is configured.
func (c *Client) AccountHash(ctx context.Context) (string, error) {
	c.hashMu.Lock()
	defer c.hashMu.Unlock()
	if c.hash != "" {
		return c.hash, nil
	}
	var numbers []accountNumberDTO
	if err := c.getJSON(ctx, "account_numbers", "/trader/v1/accounts/accountNumbers", nil, &numbers); err != nil {
		return "", err
	}
	if len(numbers) == 0 || numbers[0].HashValue == "" {
		return "", fmt.Errorf("%w: no linked accounts", ErrMalformedAccount)
	}
	c.hash = numbers[0].HashValue
	return c.hash, nil
}

func (c *Client) fetchAccount(ctx context.Context, fields string) (accountDTO, error) {
	hash, err := c.AccountHash(ctx)
	if err != nil {
		return accountDTO{}, err
	}
	q := url.Values{}
	if fields != "" {
		q.Set("fields", fields)
	}
	var dto accountDTO
	err = c.getJSON(ctx, "account", "/trader/v1/accounts/"+url.PathEscape(hash), q, &dto)
	return dto, err
}

// CurrentBalances reads cash, long market value and liquidation value.
func (c *Client) CurrentBalances(ctx context.Context) (execution.Balances, error) {
	dto, err := c.fetchAccount(ctx, "")
	if err != nil {
		return execution.Balances{}, err
	}
	return parseBalances(dto)
}

// CurrentPositions reads the long positions keyed by symbol.
func (c *Client) CurrentPositions(ctx context.Context) (map[string]execution.Position, error) {
	dto, err := c.fetchAccount(ctx, "positions")
	if err != nil {
		return nil, err
	}
	return parsePositions(dto)
}

func parseBalances(dto accountDTO) (execution.Balances, error) {
	if dto.SecuritiesAccount == nil {
		return execution.Balances{}, fmt.Errorf("%w: securitiesAccount missing", ErrMalformedAccount)
	}
	b := dto.SecuritiesAccount.CurrentBalances
	if b == nil {
		return execution.Balances{}, fmt.Errorf("%w: currentBalances missing", ErrMalformedAccount)
	}
	if b.CashBalance == nil || b.LiquidationValue == nil {
		return execution.Balances{}, fmt.Errorf("%w: cashBalance or liquidationValue missing", ErrMalformedAccount)
	}
	out := execution.Balances{Cash: *b.CashBalance, LiquidationValue: *b.LiquidationValue}
	if b.LongMarketValue != nil {
		out.LongMarketValue = *b.LongMarketValue
	}
	return out, nil
}

func parsePositions(dto accountDTO) (map[string]execution.Position, error) {
	if dto.SecuritiesAccount == nil {
		return nil, fmt.Errorf("%w: securitiesAccount missing", ErrMalformedAccount)
	}
	out := make(map[string]execution.Position)
	for _, p := range dto.SecuritiesAccount.Positions {
		shares := int64(math.Floor(p.LongQuantity))
		if p.Instrument.Symbol == "" || shares <= 0 {
			continue
		}
		out[p.Instrument.Symbol] = execution.Position{Shares: shares, Value: p.MarketValue}
	}
	return out, nil
}
