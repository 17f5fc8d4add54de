package httpx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Client struct {
	httpClient *http.Client

	baseURL *url.URL

	timeout        time.Duration
	defaultHeaders http.Header
	userAgent      string

	maxErrBody int64

	requestID RequestIDConfig

	before []BeforeHook
	after  []AfterHook
}

// New constructs a Client from DefaultConfig() plus the provided options.
func New(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	for _, o := range opts {
		if o != nil {
			o.apply(&cfg)
		}
	}
	return NewWithConfig(cfg)
}

func NewWithConfig(cfg Config) (*Client, error) {
	var bu *url.URL
	if strings.TrimSpace(cfg.BaseURL) != "" {
		u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, &url.Error{Op: "parse", URL: cfg.BaseURL, Err: errors.New("base url must be absolute")}
		}
		// The base path is a prefix: "/v3" + "runs/1" must become "/v3/runs/1".
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		bu = u
	}

	hc := cfg.HTTPClient
	if hc == nil {
		rt := cfg.Transport
		if rt == nil {
			rt = DefaultTransport()
		}
		hc = &http.Client{Transport: rt}
	} else {
		cp := *hc
		hc = &cp
		if cfg.Transport != nil {
			hc.Transport = cfg.Transport
		}
	}
	if !cfg.FollowRedirects {
		hc.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	}

	maxErrBody := cfg.MaxErrorBodyBytes
	if maxErrBody == 0 {
		maxErrBody = DefaultMaxErrorBodyBytes
	}

	hdr := make(http.Header)
	for k, vv := range cfg.DefaultHeaders {
		for _, v := range vv {
			hdr.Add(k, v)
		}
	}

	c := &Client{
		httpClient:     hc,
		baseURL:        bu,
		timeout:        cfg.Timeout,
		defaultHeaders: hdr,
		userAgent:      cfg.UserAgent,
		maxErrBody:     maxErrBody,
		requestID:      cfg.RequestID,
	}
	if c.requestID.New == nil && c.requestID.Header != "" {
		c.requestID.New = DefaultRequestID
	}
	return c, nil
}

// BaseURL returns a copy of the configured base URL, or nil.
func (c *Client) BaseURL() *url.URL {
	if c.baseURL == nil {
		return nil
	}
	u := *c.baseURL
	return &u
}

// WithMiddleware wraps the underlying RoundTripper with middleware.
// Call this during initialization (before the client is used concurrently).
func (c *Client) WithMiddleware(mws ...Middleware) *Client {
	if len(mws) == 0 {
		return c
	}
	rt := c.httpClient.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	c.httpClient.Transport = chain(rt, mws)
	return c
}

// WithHooks adds hooks run around every request.
func (c *Client) WithHooks(before []BeforeHook, after []AfterHook) *Client {
	c.before = append(c.before, before...)
	c.after = append(c.after, after...)
	return c
}

func (c *Client) resolveURL(path string, q url.Values) (*url.URL, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty url/path")
	}
	u, err := url.Parse(p)
	if err != nil {
		return nil, err
	}
	var out *url.URL
	switch {
	case u.IsAbs():
		u2 := *u
		out = &u2
	case c.baseURL == nil:
		return nil, errors.New("relative path requires BaseURL")
	default:
		// A leading "/" is relative to the base path, not to the host root.
		if strings.HasPrefix(u.Path, "/") {
			u2 := *u
			u2.Path = strings.TrimPrefix(u2.Path, "/")
			if u2.RawPath != "" {
				u2.RawPath = strings.TrimPrefix(u2.RawPath, "/")
			}
			u = &u2
		}
		out = c.baseURL.ResolveReference(u)
	}
	if len(q) > 0 {
		qq := out.Query()
		for k, vv := range q {
			for _, v := range vv {
				qq.Add(k, v)
			}
		}
		out.RawQuery = qq.Encode()
	}
	return out, nil
}

func withEarlierDeadline(ctx context.Context, deadline time.Time) (context.Context, context.CancelFunc) {
	if deadline.IsZero() {
		return ctx, func() {}
	}
	if existing, ok := ctx.Deadline(); ok && !existing.After(deadline) {
		return ctx, func() {}
	}
	return context.WithDeadline(ctx, deadline)
}

func earliestDeadline(base context.Context, timeouts ...time.Duration) (time.Time, bool) {
	now := time.Now()
	var earliest time.Time
	for _, d := range timeouts {
		if d <= 0 {
			continue
		}
		dd := now.Add(d)
		if earliest.IsZero() || dd.Before(earliest) {
			earliest = dd
		}
	}
	if dl, ok := base.Deadline(); ok {
		if earliest.IsZero() || dl.Before(earliest) {
			earliest = dl
		}
	}
	if earliest.IsZero() {
		return time.Time{}, false
	}
	return earliest, true
}

// Do executes the request once. It mirrors net/http semantics:
// - transport errors are returned as *Error with StatusCode 0
// - every response, whatever its status, is returned with a nil error
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.do(req, false)
}

// DoStatus executes the request once and converts responses outside 2xx into *Error.
// It reads up to MaxErrorBodyBytes from such a response body and then closes it.
func (c *Client) DoStatus(req *http.Request) (*http.Response, error) {
	return c.do(req, true)
}

func (c *Client) do(req *http.Request, statusAsError bool) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	ctx := req.Context()
	var cancel context.CancelFunc = func() {}
	if dl, ok := earliestDeadline(ctx, c.timeout, requestTimeout(ctx)); ok {
		ctx, cancel = withEarlierDeadline(ctx, dl)
		req = req.Clone(ctx)
	}

	for _, h := range c.before {
		if h == nil {
			continue
		}
		if err := h(req); err != nil {
			cancel()
			return nil, err
		}
	}

	t0 := time.Now()
	resp, err := c.httpClient.Do(req)
	dur := time.Since(t0)

	for _, h := range c.after {
		if h != nil {
			h(req, resp, err, dur)
		}
	}

	if err != nil {
		cancel()
		// http.Client may hand back a response alongside an error (redirect policy).
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, &Error{
			Method:    req.Method,
			URL:       req.URL.String(),
			RequestID: strings.TrimSpace(req.Header.Get(c.requestID.Header)),
			Cause:     err,
		}
	}

	if statusAsError && !IsSuccess(resp.StatusCode) {
		defer cancel()
		return responseToError(req, resp, c.requestID.Header, c.maxErrBody)
	}
	if resp.Body != nil {
		resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	} else {
		cancel()
	}
	return resp, nil
}

// IsSuccess reports whether code is in the 2xx range.
func IsSuccess(code int) bool { return code >= 200 && code < 300 }

// cancelBody releases the per-request deadline once the caller is done with the body.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func responseToError(req *http.Request, resp *http.Response, requestIDHeader string, maxErrBody int64) (*http.Response, error) {
	if resp.Body != nil {
		defer resp.Body.Close()
	}

	var raw []byte
	if resp.Body != nil && maxErrBody != 0 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		raw = b
	}

	// Hand the captured bytes back without holding the connection open.
	resp.Body = io.NopCloser(bytes.NewReader(raw))

	rid := ""
	if requestIDHeader != "" {
		rid = strings.TrimSpace(resp.Header.Get(requestIDHeader))
		if rid == "" {
			rid = strings.TrimSpace(req.Header.Get(requestIDHeader))
		}
	}

	return resp, &Error{
		Method:     req.Method,
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
		Status:     statusText(resp),
		RequestID:  rid,
		RawBody:    raw,
		Cause:      errors.New(http.StatusText(resp.StatusCode)),
	}
}

// statusText extracts the reason phrase from resp.Status ("404 Not Found" -> "Not Found").
func statusText(resp *http.Response) string {
	s := strings.TrimSpace(resp.Status)
	code := strconv.Itoa(resp.StatusCode)
	if rest, ok := strings.CutPrefix(s, code); ok {
		if rest = strings.TrimSpace(rest); rest != "" {
			return rest
		}
	}
	return http.StatusText(resp.StatusCode)
}
