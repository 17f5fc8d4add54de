package simrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/auth"
	"github.com/Smoke-Cloud/smoke-cloud-sdk/httpx"
	"github.com/Smoke-Cloud/smoke-cloud-sdk/simrun/internal/transport"
	"github.com/Smoke-Cloud/smoke-cloud-sdk/version"
)

// Client exposes the run lifecycle of the service. It is safe for concurrent
// use; iterators and followers it hands out are not.
type Client struct {
	provider auth.Provider
	tr       *transport.Client
	logger   *slog.Logger

	pollInterval time.Duration

	mu        sync.Mutex
	accountID string

	// providerReady is set once provider.Init has succeeded.
	providerReady bool
}

func New(provider auth.Provider, opts ...Option) (*Client, error) {
	if provider == nil {
		return nil, errors.New("simrun: nil credential provider")
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.userAgent == "" {
		o.userAgent = version.UserAgent()
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	after := o.after
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		after = append(after, httpx.LogHook(logger))
	}

	tr, err := transport.New(provider, transport.Config{
		APIEndpoint:     o.apiEndpoint,
		StorageEndpoint: o.storageEndpoint,
		HTTPClient:      o.httpClient,
		Transport:       o.transport,
		UserAgent:       o.userAgent,
		Logger:          logger,
		After:           after,
		Middleware:      o.middleware,
	})
	if err != nil {
		return nil, fmt.Errorf("simrun: %w", err)
	}
	return &Client{
		provider:     provider,
		tr:           tr,
		logger:       logger,
		pollInterval: o.pollInterval,
		accountID:    o.accountID,
	}, nil
}

// Init initializes the credential provider and resolves the caller's account.
func (c *Client) Init(ctx context.Context) error {
	if err := c.initProvider(ctx); err != nil {
		return err
	}
	if c.AccountID() != "" {
		return nil
	}
	me, err := c.Me(ctx)
	if err != nil {
		return err
	}
	id := me.Account()
	if id == "" {
		return &APIError{Kind: KindParse, Method: http.MethodGet, URL: "/me", Message: "no account_id in /me response"}
	}
	c.mu.Lock()
	c.accountID = id
	c.mu.Unlock()
	return nil
}

// initProvider runs provider.Init until it succeeds once.
func (c *Client) initProvider(ctx context.Context) error {
	c.mu.Lock()
	ready := c.providerReady
	c.mu.Unlock()
	if ready {
		return nil
	}
	if err := c.provider.Init(ctx); err != nil {
		return fmt.Errorf("simrun: init credentials: %w", err)
	}
	c.mu.Lock()
	c.providerReady = true
	c.mu.Unlock()
	return nil
}

// AccountID returns the resolved account, or "" before Init.
func (c *Client) AccountID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accountID
}

func (c *Client) Provider() auth.Provider { return c.provider }

// APIEndpoint and StorageEndpoint report the configured plane roots.
func (c *Client) APIEndpoint() string     { return c.tr.Endpoint(transport.API) }
func (c *Client) StorageEndpoint() string { return c.tr.Endpoint(transport.Storage) }

func (c *Client) account(ctx context.Context) (string, error) {
	if id := c.AccountID(); id != "" {
		return id, nil
	}
	if err := c.Init(ctx); err != nil {
		return "", err
	}
	return c.AccountID(), nil
}

func (c *Client) orgPath(ctx context.Context, override string, rest string) (string, error) {
	acct := override
	if acct == "" {
		var err error
		if acct, err = c.account(ctx); err != nil {
			return "", err
		}
	}
	return "/orgs/" + url.PathEscape(acct) + rest, nil
}

func runPath(runID RunID, rest string) string {
	return "/runs/" + url.PathEscape(runID) + rest
}

func (c *Client) do(ctx context.Context, p transport.Plane, method, path string, opts ...httpx.RequestOption) (*http.Response, error) {
	resp, err := c.tr.Do(ctx, p, method, path, opts...)
	if err != nil {
		return nil, mapError(err)
	}
	return resp, nil
}

// getData decodes a {data: T} envelope.
func getData[T any](ctx context.Context, c *Client, p transport.Plane, method, path string, opts ...httpx.RequestOption) (T, error) {
	var env struct {
		Data T `json:"data"`
	}
	if err := c.decode(ctx, p, method, path, &env, opts...); err != nil {
		var zero T
		return zero, err
	}
	return env.Data, nil
}

// getJSON decodes a bare JSON body.
func getJSON[T any](ctx context.Context, c *Client, p transport.Plane, method, path string, opts ...httpx.RequestOption) (T, error) {
	var out T
	if err := c.decode(ctx, p, method, path, &out, opts...); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (c *Client) decode(ctx context.Context, p transport.Plane, method, path string, dst any, opts ...httpx.RequestOption) error {
	resp, err := c.do(ctx, p, method, path, opts...)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := httpx.DecodeJSON(resp.Body, dst); err != nil {
		return parseError(method, path, err)
	}
	return nil
}

func (c *Client) text(ctx context.Context, p transport.Plane, method, path string, opts ...httpx.RequestOption) (string, error) {
	rc, err := c.body(ctx, p, method, path, opts...)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return "", &APIError{Kind: KindTransport, Method: method, URL: path, Message: err.Error(), Cause: err}
	}
	return string(b), nil
}

// body returns the raw response stream; the caller closes it.
func (c *Client) body(ctx context.Context, p transport.Plane, method, path string, opts ...httpx.RequestOption) (io.ReadCloser, error) {
	resp, err := c.do(ctx, p, method, path, opts...)
	if err != nil {
		return nil, err
	}
	if resp.Body == nil {
		return io.NopCloser(strings.NewReader("")), nil
	}
	return resp.Body, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
