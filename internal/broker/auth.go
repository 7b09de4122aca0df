package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// tokenSource hands out a bearer token, refreshing it through the OAuth
// refresh-token grant when it is missing or about to expire.
type tokenSource struct {
	client       *Client
	appKey       string
	appSecret    string
	refreshToken string

	mu      sync.Mutex
	access  string
	expires time.Time
}

func (t *tokenSource) canRefresh() bool {
	return t.refreshToken != "" && t.appKey != "" && t.appSecret != ""
}

func (t *tokenSource) invalidate() {
	t.mu.Lock()
	t.access = ""
	t.mu.Unlock()
}

// Token returns a usable access token.
func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fresh := t.expires.IsZero() || t.client.now().Before(t.expires.Add(-time.Minute))
	if t.access != "" && fresh {
		return t.access, nil
	}
	if !t.canRefresh() {
		if t.access != "" {
			return t.access, nil
		}
		return "", fmt.Errorf("%w: no access token and no refresh credentials", ErrUnauthorized)
	}
	return t.refresh(ctx)
}

func (t *tokenSource) refresh(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", t.refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.client.base+"/v1/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(t.appKey, t.appSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.do(ctx, "oauth_token", req)
	if err != nil {
		return "", err
	}
	if resp.code != http.StatusOK {
		return "", fmt.Errorf("%w: token refresh status %d", ErrUnauthorized, resp.code)
	}
	var tok struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(resp.body, &tok); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: token response without access_token", ErrUnauthorized)
	}
	t.access = tok.AccessToken
	if tok.RefreshToken != "" {
		t.refreshToken = tok.RefreshToken
	}
	t.expires = time.Time{}
	if tok.ExpiresIn > 0 {
		t.expires = t.client.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	t.client.log.Info().Time("expires", t.expires).Msg("access token refreshed")
	return t.access, nil
}
