// Package client executes outbound API calls for page code: proactive
// bearer-token refresh, CSRF header injection, tracing headers, and a
// bounded retry policy for transient failures.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/catchup-feed/edge-gateway/internal/csrf"
	"github.com/catchup-feed/edge-gateway/internal/storage"
	"github.com/catchup-feed/edge-gateway/internal/token"
)

const (
	// RequestIDHeader carries the per-request tracing ID.
	RequestIDHeader = "X-Request-ID"

	loginPath = "/login"

	// csrfErrorCode is the machine-readable marker backends attach to CSRF
	// rejections; the edge gate's human-readable error line is matched too.
	csrfErrorCode    = "CSRF_TOKEN_INVALID"
	csrfErrorMessage = "CSRF token validation failed"

	maxErrorBodyBytes = 1 << 20

	defaultTimeout        = 30 * time.Second
	defaultRefreshAhead   = 60 * time.Second
	defaultMaxRetries     = 3
	defaultRetryBaseDelay = 1000 * time.Millisecond
	defaultRetryMaxDelay  = 10000 * time.Millisecond
	retryJitterPercent    = 10
)

type Config struct {
	// BaseURL is the backend API root, e.g. "https://api.catchup.internal".
	BaseURL string

	// Timeout bounds each individual attempt.
	Timeout time.Duration

	// RefreshEnabled turns proactive token refresh on.
	RefreshEnabled bool

	// RefreshAhead is how close to expiry a token may get before a refresh
	// is attempted ahead of the request.
	RefreshAhead time.Duration

	MaxRetries     uint64
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

func (cfg *Config) applyDefaults() {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RefreshAhead == 0 {
		cfg.RefreshAhead = defaultRefreshAhead
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryBaseDelay == 0 {
		cfg.RetryBaseDelay = defaultRetryBaseDelay
	}
	if cfg.RetryMaxDelay == 0 {
		cfg.RetryMaxDelay = defaultRetryMaxDelay
	}
}

// NavigateFunc performs a client-side navigation, e.g. back to /login after
// the session died.
type NavigateFunc func(path string)

// ReloadFunc reloads the current page to obtain a fresh CSRF token.
type ReloadFunc func()

type Client struct {
	cfg        Config
	httpClient *http.Client
	tokens     *token.Store
	csrf       *csrf.Manager
	refresher  Refresher
	reloads    *reloadGuard
	navigate   NavigateFunc
	reload     ReloadFunc
	log        *zap.SugaredLogger

	refreshGroup singleflight.Group
}

// Option configures the Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithNavigateFunc(fn NavigateFunc) Option {
	return func(c *Client) { c.navigate = fn }
}

func WithReloadFunc(fn ReloadFunc) Option {
	return func(c *Client) { c.reload = fn }
}

func New(cfg Config, tokens *token.Store, csrfManager *csrf.Manager, refresher Refresher, kv storage.KV, log *zap.SugaredLogger, opts ...Option) *Client {
	cfg.applyDefaults()

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		tokens:     tokens,
		csrf:       csrfManager,
		refresher:  refresher,
		reloads:    newReloadGuard(kv, log),
		log:        log,
	}
	c.navigate = func(path string) { log.Infow("navigation requested", "path", path) }
	c.reload = func() { log.Infow("page reload requested") }

	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out, true)
}

func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out, true)
}

func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, out, true)
}

func (c *Client) Patch(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPatch, path, body, out, true)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, true)
}

// Health probes the backend without credentials; used by the edge readiness
// endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil, false)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, authRequired bool) error {
	if authRequired {
		c.maybeRefresh(ctx)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	backoff := retry.WithMaxRetries(c.cfg.MaxRetries,
		retry.WithJitterPercent(retryJitterPercent,
			retry.WithCappedDuration(c.cfg.RetryMaxDelay,
				retry.NewExponential(c.cfg.RetryBaseDelay))))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := c.attempt(ctx, method, path, payload, out, authRequired)
		if err == nil {
			return nil
		}
		if isRetryable(err) {
			c.log.Warnw("retryable request failure",
				"method", method, "path", path, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, out interface{}, authRequired bool) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(ctx, req, authRequired)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	// Capture a rotated CSRF token before any status handling can bail out.
	c.csrf.ExtractToken(ctx, resp.Header)

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized(ctx)
		return &AuthenticationRequiredError{}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response body: %w", err)
		}
		return nil
	}

	return c.errorFromResponse(ctx, resp)
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request, authRequired bool) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())

	if authRequired {
		if tok := c.tokens.AccessToken(ctx); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	// Safe methods carry no CSRF proof; only state-changing ones echo the
	// current token.
	switch req.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		req.Header = c.csrf.AddToHeaders(ctx, req.Header)
	}
}

// maybeRefresh renews the bearer token ahead of the request when it is close
// to expiry. Concurrent callers coalesce onto one in-flight refresh. A failed
// refresh clears the session but does not abort the request: if the token is
// truly dead the server answers 401 and the normal path takes over.
func (c *Client) maybeRefresh(ctx context.Context) {
	if !c.cfg.RefreshEnabled || c.refresher == nil {
		return
	}

	access := c.tokens.AccessToken(ctx)
	if access == "" || !token.IsExpiringSoon(access, c.cfg.RefreshAhead) {
		return
	}

	refresh := c.tokens.RefreshToken(ctx)
	if refresh == "" {
		return
	}

	_, err, _ := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		pair, err := c.refresher.Refresh(ctx, refresh)
		if err != nil {
			return nil, err
		}
		c.tokens.SetAccessToken(ctx, pair.AccessToken)
		if pair.RefreshToken != "" {
			c.tokens.SetRefreshToken(ctx, pair.RefreshToken)
		}
		return pair, nil
	})
	if err != nil {
		c.log.Warnw("proactive token refresh failed, clearing tokens", "error", err)
		c.tokens.Clear(ctx)
	}
}

func (c *Client) handleUnauthorized(ctx context.Context) {
	c.log.Warnw("received 401, clearing session and redirecting to login")
	c.tokens.Clear(ctx)
	c.csrf.ClearToken(ctx)
	c.navigate(loginPath)
}

func (c *Client) errorFromResponse(ctx context.Context, resp *http.Response) error {
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	var body struct {
		Error   string          `json:"error"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	}
	if readErr == nil {
		_ = json.Unmarshal(raw, &body)
	}

	message := body.Message
	if message == "" {
		message = body.Error
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	apiErr := APIError{Status: resp.StatusCode, Message: message, Details: body.Details}

	if resp.StatusCode == http.StatusForbidden && isCSRFFailure(body.Error) {
		c.csrf.ClearToken(ctx)
		c.scheduleReload(ctx)
		return &CSRFValidationError{APIError: apiErr}
	}

	return &apiErr
}

func isCSRFFailure(errorCode string) bool {
	return errorCode == csrfErrorCode || strings.Contains(errorCode, csrfErrorMessage)
}

// scheduleReload triggers the one-time page reload that recovers from a
// rejected CSRF token. The guard keeps a persistently broken endpoint from
// turning this into a reload loop.
func (c *Client) scheduleReload(ctx context.Context) {
	if !c.reloads.tryAcquire(ctx) {
		c.log.Warnw("CSRF recovery reload already attempted recently, giving up")
		return
	}
	c.log.Infow("CSRF token rejected, triggering one-time reload for a fresh token")
	c.reload()
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Err: err}
	}
	return &NetworkError{Err: err}
}
