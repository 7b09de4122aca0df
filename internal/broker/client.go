// Package broker is a REST client for a Schwab-style brokerage API. It serves
// intraday candles, quotes and account state, and places market orders.
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/wkokomoor/trading-v1/internal/config"
	"github.com/wkokomoor/trading-v1/internal/metrics"
)

// ErrUnauthorized is returned when no usable access token can be obtained.
var ErrUnauthorized = errors.New("broker: unauthorized")

// StatusError carries a non-2xx response.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("broker %s: status %d: %s", e.Endpoint, e.Code, e.Body)
}

type response struct {
	code   int
	header http.Header
	body   []byte
}

// Client talks to the brokerage REST API.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	tokens  *tokenSource
	log     zerolog.Logger
	now     func() time.Time

	hashMu sync.Mutex
	hash   string
}

// Option adjusts a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New builds a client from broker config.
func New(cfg config.Broker, log zerolog.Logger, opts ...Option) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	st := gobreaker.Settings{Name: "broker", Timeout: 30 * time.Second}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 5 }
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit state change")
	}

	c := &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
		breaker: gobreaker.NewCircuitBreaker(st),
		log:     log,
		now:     time.Now,
		hash:    cfg.AccountHash,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tokens = &tokenSource{
		client:       c,
		appKey:       cfg.AppKey,
		appSecret:    cfg.AppSecret,
		refreshToken: cfg.RefreshToken,
		access:       cfg.AccessToken,
	}
	return c
}

// getJSON issues an authorized GET and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	resp, err := c.authorized(ctx, endpoint, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if resp.code != http.StatusOK {
		return &StatusError{Endpoint: endpoint, Code: resp.code, Body: snippet(resp.body)}
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("broker %s: decode: %w", endpoint, err)
	}
	return nil
}

// authorized sends a request with a bearer token, refreshing once on 401.
func (c *Client) authorized(ctx context.Context, endpoint, method, path string, query url.Values, body any) (*response, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("broker %s: encode: %w", endpoint, err)
		}
	}
	for attempt := 0; ; attempt++ {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		u := c.base + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.do(ctx, endpoint, req)
		if err != nil {
			return nil, err
		}
		if resp.code == http.StatusUnauthorized && attempt == 0 && c.tokens.canRefresh() {
			c.tokens.invalidate()
			continue
		}
		return resp, nil
	}
}

// do waits on the limiter and runs the request through the breaker. Only
// transport failures and 5xx responses count against the breaker.
func (c *Client) do(ctx context.Context, endpoint string, req *http.Request) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, err
		}
		r := &response{code: resp.StatusCode, header: resp.Header, body: body}
		if resp.StatusCode >= 500 {
			return r, &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: snippet(body)}
		}
		return r, nil
	})
	if err != nil {
		metrics.BrokerRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("broker %s: %w", endpoint, err)
	}
	r := out.(*response)
	metrics.BrokerRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(r.code/100)+"xx").Inc()
	c.log.Debug().Str("endpoint", endpoint).Int("status", r.code).Msg("broker call")
	return r, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}
