package broker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wkokomoor/trading-v1/internal/config"
	"github.com/wkokomoor/trading-v1/internal/execution"
	"github.com/wkokomoor/trading-v1/internal/signal"
)

func newTestClient(t *testing.T, h http.Handler, mutate func(*config.Broker)) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := config.Broker{BaseURL: srv.URL, AccessToken: "tok", AccountHash: "HASH", TimeoutSecs: 2}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg, zerolog.Nop())
}

func TestDayCandles(t *testing.T) {
	day := time.Date(2025, 5, 13, 0, 0, 0, 0, time.UTC)
	at := day.Add(14*time.Hour + 30*time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("/marketdata/v1/pricehistory", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "SPY", r.URL.Query().Get("symbol"))
		assert.Equal(t, "5", r.URL.Query().Get("frequency"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"symbol": "SPY",
			"candles": []map[string]any{
				{"open": 503.1, "high": 504, "low": 502, "close": 503.5, "volume": 1000, "datetime": at.UnixMilli()},
				{"open": 1, "datetime": day.Add(-time.Hour).UnixMilli()},
			},
		})
	})
	c := newTestClient(t, mux, nil)

	candles, err := c.DayCandles(context.Background(), "SPY", day.Add(5*time.Hour))
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.True(t, candles[0].Time.Equal(at))
	assert.Equal(t, 503.1, candles[0].Open)
	assert.Equal(t, int64(1000), candles[0].Volume)
}

func TestTradePricesPrefersExtendedAsk(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/marketdata/v1/quotes", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "UPRO,SPXU", r.URL.Query().Get("symbols"))
		_, _ = w.Write([]byte(`{
			"UPRO": {"quote": {"askPrice": 80.5}, "extended": {"askPrice": 80.9}},
			"SPXU": {"quote": {"askPrice": 20.1}, "extended": {"askPrice": 0}}
		}`))
	})
	c := newTestClient(t, mux, nil)

	prices, err := c.TradePrices(context.Background(), time.Time{}, "UPRO", "SPXU")
	require.NoError(t, err)
	assert.Equal(t, 80.9, prices["UPRO"])
	assert.Equal(t, 20.1, prices["SPXU"])

	_, err = c.TradePrices(context.Background(), time.Time{}, "UPRO", "TQQQ")
	assert.ErrorIs(t, err, signal.ErrDataUnavailable)
}

func TestAccount(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/trader/v1/accounts/accountNumbers", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"accountNumber":"123","hashValue":"ABC"}]`))
	})
	mux.HandleFunc("/trader/v1/accounts/ABC", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"securitiesAccount": {
			"currentBalances": {"cashBalance": 12.5, "longMarketValue": 4000, "liquidationValue": 4012.5},
			"positions": [
				{"instrument": {"symbol": "UPRO"}, "longQuantity": 50, "marketValue": 4000},
				{"instrument": {"symbol": "XYZ"}, "longQuantity": 0, "marketValue": 0}
			]}}`))
	})
	c := newTestClient(t, mux, func(b *config.Broker) { b.AccountHash = "" })

	bal, err := c.CurrentBalances(context.Background())
	require.NoError(t, err)
	assert.Equal(t, execution.Balances{Cash: 12.5, LongMarketValue: 4000, LiquidationValue: 4012.5}, bal)

	positions, err := c.CurrentPositions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]execution.Position{"UPRO": {Shares: 50, Value: 4000}}, positions)
}

func TestParseAccountMissingBalances(t *testing.T) {
	var dto accountDTO
	require.NoError(t, json.Unmarshal([]byte(`{"securitiesAccount": {"positions": []}}`), &dto))
	_, err := parseBalances(dto)
	assert.ErrorIs(t, err, ErrMalformedAccount)

	_, err = parsePositions(accountDTO{})
	assert.ErrorIs(t, err, ErrMalformedAccount)
}

func TestSubmit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/trader/v1/accounts/HASH/orders", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var got orderDTO
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "MARKET", got.OrderType)
		require.Len(t, got.OrderLegCollection, 1)
		leg := got.OrderLegCollection[0]
		if leg.Instrument.Symbol == "SPXU" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"insufficient buying power"}`))
			return
		}
		assert.Equal(t, "BUY", leg.Instruction)
		assert.Equal(t, int64(100), leg.Quantity)
		assert.Equal(t, "EQUITY", leg.Instrument.AssetType)
		w.Header().Set("Location", "/trader/v1/accounts/HASH/orders/98765")
		w.WriteHeader(http.StatusCreated)
	})
	c := newTestClient(t, mux, nil)

	fill, err := c.Submit(context.Background(), execution.Order{Symbol: "UPRO", Side: execution.Buy, Qty: 100, Price: 50})
	require.NoError(t, err)
	assert.Equal(t, "98765", fill.OrderID)
	assert.Equal(t, int64(100), fill.Qty)

	_, err = c.Submit(context.Background(), execution.Order{Symbol: "SPXU", Side: execution.Buy, Qty: 10, Price: 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, execution.ErrExecutionRejected))
	assert.Contains(t, err.Error(), "insufficient buying power")
}

func TestRefreshOnUnauthorized(t *testing.T) {
	var refreshes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		refreshes.Add(1)
		_, _ = w.Write([]byte(`{"access_token":"fresh","expires_in":1800}`))
	})
	mux.HandleFunc("/trader/v1/accounts/accountNumbers", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"accountNumber":"1","hashValue":"H1"}]`))
	})
	c := newTestClient(t, mux, func(b *config.Broker) {
		b.AccessToken = "stale"
		b.AccountHash = ""
		b.AppKey = "key"
		b.AppSecret = "secret"
		b.RefreshToken = "rt"
	})

	hash, err := c.AccountHash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "H1", hash)
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestMissingCredentials(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler(), func(b *config.Broker) { b.AccessToken = "" })
	_, err := c.CurrentBalances(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestServerErrorsTripBreaker(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/marketdata/v1/quotes", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	c := newTestClient(t, mux, nil)

	for i := 0; i < 8; i++ {
		_, err := c.TradePrices(context.Background(), time.Time{}, "UPRO")
		require.Error(t, err)
	}
	assert.Equal(t, int32(5), hits.Load())
}
