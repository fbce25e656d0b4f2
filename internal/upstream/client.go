// Package upstream talks to the identity provider's member API: credential
// login, authorization-code exchange and the subscription lookup used for
// the entitlement check.
package upstream

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	slogctx "github.com/veqryn/slog-context"
)

// ErrRejected reports a 4xx from the provider: it refused the submitted
// values rather than failing on its own. Transport errors and 5xx responses
// are not wrapped with it.
var ErrRejected = errors.New("rejected by provider")

// Config holds the provider endpoints. All calls are bounded by Timeout.
type Config struct {
	LoginURL        string
	TokenURL        string
	SubscriptionURL string
	ClientID        string
	Timeout         time.Duration
	SubscriptionTTL time.Duration
}

// Tokens is the provider's token-endpoint response.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

type Client struct {
	cfg        Config
	httpClient *http.Client

	// subscriptions caches tier lookups per member token; the provider
	// throttles this endpoint aggressively.
	subscriptions *gocache.Cache
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	ttl := cfg.SubscriptionTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Client{
		cfg:           cfg,
		httpClient:    httpClient,
		subscriptions: gocache.New(ttl, 2*ttl),
	}
}

// Authenticate relays the end-user credentials together with the caller's
// state and our PKCE challenge, and returns the provider's callback URL.
// The provider authenticates the user; this service never does.
func (c *Client) Authenticate(ctx context.Context, username, password, state, challenge, method string) (string, error) {
	data := url.Values{}
	data.Set("username", username)
	data.Set("password", password)
	data.Set("state", state)
	data.Set("client_id", c.cfg.ClientID)
	data.Set("code_challenge", challenge)
	data.Set("code_challenge_method", method)

	var resp struct {
		CallbackURL string `json:"callback_url"`
	}
	if err := c.postForm(ctx, c.cfg.LoginURL, data, &resp); err != nil {
		return "", fmt.Errorf("relaying credentials: %w", err)
	}

	if resp.CallbackURL == "" {
		return "", fmt.Errorf("provider returned no callback URL")
	}

	return resp.CallbackURL, nil
}

// ExchangeCode exchanges the provider's authorization code and our PKCE
// verifier for the member tokens.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (Tokens, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("code_verifier", verifier)
	data.Set("client_id", c.cfg.ClientID)

	var tokens Tokens
	if err := c.postForm(ctx, c.cfg.TokenURL, data, &tokens); err != nil {
		return Tokens{}, fmt.Errorf("exchanging code for tokens: %w", err)
	}

	return tokens, nil
}

// Subscription returns the member's subscription tier. Lookups are cached
// per member token.
func (c *Client) Subscription(ctx context.Context, memberToken string) (string, error) {
	cacheKey := tokenCacheKey(memberToken)
	if tier, ok := c.subscriptions.Get(cacheKey); ok {
		//nolint:forcetypeassert
		return tier.(string), nil
	}

	ctx, cancel := c.bounded(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.SubscriptionURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+memberToken)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("subscription lookup failed with status: %d", httpResp.StatusCode)
	}

	var resp struct {
		Tier string `json:"tier"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	c.subscriptions.Set(cacheKey, resp.Tier, 0)
	slogctx.Debug(ctx, "Resolved member subscription tier", "tier", resp.Tier)

	return resp.Tier, nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, data url.Values, decodeInto any) error {
	ctx, cancel := c.bounded(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
			return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
		}

		return fmt.Errorf("provider returned status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(decodeInto); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

func (c *Client) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.cfg.Timeout)
}

// tokenCacheKey avoids holding raw member tokens in the cache keys.
func tokenCacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
