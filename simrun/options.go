package simrun

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/httpx"
)

const (
	DefaultAPIEndpoint     = "https://api.smokecloud.io/v3"
	DefaultStorageEndpoint = "https://store01.smokecloud.io/v3"

	// DefaultPollInterval paces both Follower and ConfirmClosed.
	DefaultPollInterval = 2 * time.Second
)

// Option configures a Client.
type Option func(*options)

type options struct {
	apiEndpoint     string
	storageEndpoint string

	httpClient *http.Client
	transport  http.RoundTripper
	userAgent  string
	logger     *slog.Logger
	after      []httpx.AfterHook
	middleware []httpx.Middleware

	pollInterval time.Duration
	accountID    string
}

func defaultOptions() options {
	return options{
		apiEndpoint:     DefaultAPIEndpoint,
		storageEndpoint: DefaultStorageEndpoint,
		pollInterval:    DefaultPollInterval,
	}
}

// WithAPIEndpoint sets the control-plane root, path prefix included.
func WithAPIEndpoint(u string) Option {
	return func(o *options) { o.apiEndpoint = u }
}

// WithStorageEndpoint sets the storage-plane root, path prefix included.
func WithStorageEndpoint(u string) Option {
	return func(o *options) { o.storageEndpoint = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// WithLogger sets the logger for request failures. When the logger is enabled
// at debug level every round trip is logged too.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHooks observes every round trip on both planes.
func WithHooks(after ...httpx.AfterHook) Option {
	return func(o *options) { o.after = append(o.after, after...) }
}

// WithMiddleware wraps the round tripper of both planes. The first middleware
// sees the request first.
func WithMiddleware(mws ...httpx.Middleware) Option {
	return func(o *options) { o.middleware = append(o.middleware, mws...) }
}

// WithPollInterval sets the delay between polls. Non-positive values disable
// the delay, which is only useful against a fake server.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}

// WithAccountID presets the account, skipping the /me lookup.
func WithAccountID(id string) Option {
	return func(o *options) { o.accountID = id }
}
