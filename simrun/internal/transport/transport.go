// Package transport issues authenticated requests against the control-plane
// and storage-plane endpoints of the service.
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/httpx"
)

// TokenSource yields the bearer token attached to every request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Plane selects which endpoint root a request is resolved against.
type Plane int

const (
	API Plane = iota
	Storage
)

func (p Plane) String() string {
	if p == Storage {
		return "storage"
	}
	return "api"
}

type Config struct {
	APIEndpoint     string
	StorageEndpoint string

	HTTPClient *http.Client
	Transport  http.RoundTripper
	UserAgent  string
	Logger     *slog.Logger

	// Hooks and middleware are installed on both planes.
	After      []httpx.AfterHook
	Middleware []httpx.Middleware
}

type Client struct {
	planes [2]*httpx.Client
	tokens TokenSource
	logger *slog.Logger
}

func New(tokens TokenSource, cfg Config) (*Client, error) {
	if tokens == nil {
		return nil, fmt.Errorf("transport: nil token source")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Client{tokens: tokens, logger: logger}
	for p, endpoint := range map[Plane]string{API: cfg.APIEndpoint, Storage: cfg.StorageEndpoint} {
		hc, err := httpx.New(
			httpx.WithBaseURL(endpoint),
			httpx.WithHTTPClient(cfg.HTTPClient),
			httpx.WithTransport(cfg.Transport),
			httpx.WithUserAgent(cfg.UserAgent),
			httpx.WithDefaultHeader("Content-Type", "application/json"),
		)
		if err != nil {
			return nil, fmt.Errorf("transport: %s endpoint %q: %w", p, endpoint, err)
		}
		if len(cfg.After) > 0 {
			hc.WithHooks(nil, cfg.After)
		}
		hc.WithMiddleware(cfg.Middleware...)
		c.planes[p] = hc
	}
	return c, nil
}

// Endpoint reports the base URL of a plane.
func (c *Client) Endpoint(p Plane) string {
	if u := c.planes[p].BaseURL(); u != nil {
		return u.String()
	}
	return ""
}

// Do sends one request. Responses outside 2xx come back as *httpx.Error
// alongside a response whose body holds the captured error bytes.
func (c *Client) Do(ctx context.Context, p Plane, method, path string, opts ...httpx.RequestOption) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	hc := c.planes[p]
	all := make([]httpx.RequestOption, 0, len(opts)+1)
	all = append(all, httpx.WithBearerToken(token))
	all = append(all, opts...)

	req, err := hc.NewRequest(ctx, method, path, all...)
	if err != nil {
		return nil, err
	}

	resp, err := hc.DoStatus(req)
	if err != nil && httpx.IsTransport(err) {
		c.logger.Warn("apiRequest failed",
			"plane", p.String(),
			"method", req.Method,
			"url", req.URL.String(),
			"err", err,
		)
	}
	return resp, err
}
