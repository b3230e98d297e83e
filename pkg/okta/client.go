// Package okta is the authenticated transport to an Okta org's
// administrative API. It owns credential injection, rate-limit retries,
// pagination, and the typed error surface; nothing else in the codebase
// talks HTTP to the tenant.
package okta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/semaphore"
)

const (
	defaultTimeout     = 7 * time.Second
	defaultMaxRetries  = 5
	defaultMaxElapsed  = 90 * time.Second
	defaultMaxInFlight = 3
	maxResponseBytes   = 32 << 20
)

// Config describes how to reach and authenticate to an Okta org. Exactly
// one of Token (SSWS API token) or OAuth (client credentials for an API
// service app) must be set.
type Config struct {
	// OrgURL is the Okta org base URL, e.g. https://example.okta.com.
	OrgURL string

	// Token is an SSWS API token.
	Token string

	// OAuth authenticates with OAuth2 client credentials instead of an
	// API token.
	OAuth *clientcredentials.Config

	// MaxInFlight bounds simultaneous API calls. The engine shares this
	// bound as its worker-pool size so the org's rate limit is respected
	// once, not twice.
	MaxInFlight int64

	// MaxRetries and MaxElapsed bound the retry loop for rate-limited and
	// provider-side failures.
	MaxRetries uint64
	MaxElapsed time.Duration

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	HTTPClient *http.Client
	Log        *slog.Logger
}

type authState struct {
	mu     sync.Mutex
	source oauth2.TokenSource
}

// Client is the API client. The zero value is not usable; construct with
// New. Copies returned by ReadOnly share the in-flight gate and call
// counter with the original.
type Client struct {
	org   *url.URL
	httpc *http.Client

	token string
	oauth *clientcredentials.Config
	auth  *authState

	sem         *semaphore.Weighted
	maxInFlight int64
	maxRetries  uint64
	maxElapsed  time.Duration

	readOnly bool
	calls    *atomic.Int64
	log      *slog.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.OrgURL == "" {
		return nil, fmt.Errorf("okta org URL is required")
	}
	if cfg.Token == "" && cfg.OAuth == nil {
		return nil, fmt.Errorf("an SSWS API token or OAuth2 client credentials are required")
	}

	org, err := url.Parse(strings.TrimSuffix(cfg.OrgURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing org URL: %w", err)
	}
	if org.Scheme != "https" && org.Scheme != "http" {
		return nil, fmt.Errorf("org URL %q must be http(s)", cfg.OrgURL)
	}

	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = defaultMaxInFlight
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = defaultMaxElapsed
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{}
	}
	if httpc.Timeout == 0 {
		httpc.Timeout = cfg.Timeout
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		org:         org,
		httpc:       httpc,
		token:       cfg.Token,
		oauth:       cfg.OAuth,
		auth:        &authState{},
		sem:         semaphore.NewWeighted(cfg.MaxInFlight),
		maxInFlight: cfg.MaxInFlight,
		maxRetries:  cfg.MaxRetries,
		maxElapsed:  cfg.MaxElapsed,
		readOnly:    false,
		calls:       &atomic.Int64{},
		log:         log,
	}, nil
}

// ReadOnly returns a view of the client that refuses mutating methods.
// Used during dry runs; read-only calls are still permitted.
func (c *Client) ReadOnly() *Client {
	ro := *c
	ro.readOnly = true
	return &ro
}

// MaxInFlight reports the in-flight call bound, which the engine uses as
// its worker-pool ceiling.
func (c *Client) MaxInFlight() int64 {
	return c.maxInFlight
}

// Calls reports how many API requests the client has issued.
func (c *Client) Calls() int64 {
	return c.calls.Load()
}

// Authenticate validates the configured credentials by fetching the user
// they belong to (GET /users/me).
func (c *Client) Authenticate(ctx context.Context) (*User, error) {
	var me User
	if err := c.Get(ctx, "/users/me", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, query url.Values, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, query, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Do issues one API call with credential injection and bounded retries.
// path is relative to /api/v1 unless it targets the org-level /oauth2
// surface. Retries cover 429 (honoring x-rate-limit-reset) and 5xx; a 401
// triggers exactly one re-authentication before the failure propagates.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u, err := c.endpoint(path, query)
	if err != nil {
		return err
	}
	return c.doURL(ctx, method, u, body, out)
}

func (c *Client) endpoint(path string, query url.Values) (string, error) {
	if !strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("path %q must start with /", path)
	}

	u := *c.org
	if strings.HasPrefix(path, "/oauth2/") {
		u.Path = path
	} else {
		u.Path = "/api/v1" + path
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

func (c *Client) doURL(ctx context.Context, method, u string, body, out any) error {
	if c.readOnly && method != http.MethodGet && method != http.MethodHead {
		return fmt.Errorf("%s %s: %w", method, u, ErrReadOnly)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	state := &retryState{}
	reauthed := false

	op := func() error {
		// A cancelled run stops issuing new calls; requests already on
		// the wire below are detached from ctx and finish on their own.
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return backoff.Permanent(err)
		}
		defer c.sem.Release(1)

		req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), method, u, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")
		if err := c.setAuthorization(ctx, req); err != nil {
			return backoff.Permanent(err)
		}

		c.calls.Add(1)
		resp, err := c.httpc.Do(req)
		if err != nil {
			return &NetworkError{Op: method + " " + u, Err: err}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return &NetworkError{Op: method + " " + u, Err: err}
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if out != nil && len(data) > 0 {
				if err := json.Unmarshal(data, out); err != nil {
					return backoff.Permanent(fmt.Errorf("decoding response from %s: %w", u, err))
				}
			}
			if lp, ok := out.(linkPage); ok {
				lp.setLinks(resp.Header)
			}
			return nil

		case resp.StatusCode == http.StatusUnauthorized:
			code, summary := parseErrorBody(data)
			authErr := &AuthError{Status: resp.StatusCode, Code: code, Summary: summary}
			if !reauthed {
				reauthed = true
				if rerr := c.reauthenticate(ctx); rerr == nil {
					return authErr // one retry with fresh credentials
				}
			}
			return backoff.Permanent(authErr)

		case resp.StatusCode == http.StatusForbidden:
			code, summary := parseErrorBody(data)
			return backoff.Permanent(&AuthError{Status: resp.StatusCode, Code: code, Summary: summary})

		case resp.StatusCode == http.StatusTooManyRequests:
			rle := &RateLimitError{
				Reset:     parseRateLimitReset(resp.Header),
				Remaining: resp.Header.Get("x-rate-limit-remaining"),
			}
			state.waitUntil = rle.Reset
			c.log.Warn("rate limited", "url", u, "reset", rle.Reset)
			return rle

		case resp.StatusCode >= 500:
			code, summary := parseErrorBody(data)
			return &APIError{Status: resp.StatusCode, Code: code, Summary: summary}

		default:
			code, summary := parseErrorBody(data)
			return backoff.Permanent(&APIError{Status: resp.StatusCode, Code: code, Summary: summary})
		}
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 500 * time.Millisecond
	expo.MaxElapsedTime = c.maxElapsed

	bo := backoff.WithMaxRetries(&rateAwareBackoff{inner: expo, state: state}, c.maxRetries)
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		c.log.Error("api call failed", "method", method, "url", u, "error", err)
		return err
	}
	return nil
}

func (c *Client) setAuthorization(ctx context.Context, req *http.Request) error {
	if c.token != "" {
		req.Header.Set("Authorization", "SSWS "+c.token)
		return nil
	}

	c.auth.mu.Lock()
	if c.auth.source == nil {
		c.auth.source = oauth2.ReuseTokenSource(nil, c.oauth.TokenSource(ctx))
	}
	source := c.auth.source
	c.auth.mu.Unlock()

	tok, err := source.Token()
	if err != nil {
		return &AuthError{Status: http.StatusUnauthorized, Summary: fmt.Sprintf("fetching OAuth2 token: %v", err)}
	}
	tok.SetAuthHeader(req)
	return nil
}

// reauthenticate performs the single permitted re-authentication after an
// unauthorized response. SSWS tokens cannot be refreshed, so only the
// OAuth2 mode has anything to retry with.
func (c *Client) reauthenticate(ctx context.Context) error {
	if c.oauth == nil {
		return fmt.Errorf("API token rejected, nothing to re-authenticate with")
	}

	c.auth.mu.Lock()
	c.auth.source = oauth2.ReuseTokenSource(nil, c.oauth.TokenSource(ctx))
	source := c.auth.source
	c.auth.mu.Unlock()

	if _, err := source.Token(); err != nil {
		return err
	}
	c.log.Info("re-authenticated after 401")
	return nil
}

func parseErrorBody(data []byte) (code, summary string) {
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err != nil {
		return "", strings.TrimSpace(string(data))
	}
	return eb.ErrorCode, eb.ErrorSummary
}

func parseRateLimitReset(h http.Header) time.Time {
	raw := h.Get("x-rate-limit-reset")
	if raw == "" {
		return time.Time{}
	}
	epoch, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(epoch, 0)
}

type retryState struct {
	waitUntil time.Time
}

// rateAwareBackoff stretches the exponential delay to the org's advertised
// rate-limit reset when one was returned on the last 429.
type rateAwareBackoff struct {
	inner backoff.BackOff
	state *retryState
}

func (b *rateAwareBackoff) NextBackOff() time.Duration {
	d := b.inner.NextBackOff()
	if d == backoff.Stop {
		return backoff.Stop
	}
	if !b.state.waitUntil.IsZero() {
		if until := time.Until(b.state.waitUntil); until > d {
			d = until
		}
		b.state.waitUntil = time.Time{}
	}
	return d
}

func (b *rateAwareBackoff) Reset() {
	b.inner.Reset()
}
