package httpx

import (
	"net/http"
	"time"
)

// Config configures a Client. Use DefaultConfig() as a baseline.
type Config struct {
	// BaseURL is optional. If set, relative paths passed to NewRequest are resolved against it.
	// Its path is treated as a prefix ("https://host/v3" + "/runs" -> "https://host/v3/runs").
	BaseURL string

	// Timeout bounds each request. Zero means no client-side bound; the
	// request context still applies.
	Timeout time.Duration

	// HTTPClient is copied and used as the underlying client when set.
	HTTPClient *http.Client

	// Transport is the underlying RoundTripper. If nil, a tuned default is used.
	// It overrides HTTPClient.Transport when both are set.
	Transport http.RoundTripper

	// FollowRedirects lets net/http follow 3xx responses. When false the 3xx
	// response itself is returned to the caller.
	FollowRedirects bool

	// DefaultHeaders are copied into every request (caller headers win).
	DefaultHeaders http.Header

	// UserAgent is set when the request does not already have a User-Agent header.
	UserAgent string

	// MaxErrorBodyBytes limits how many bytes are read into Error.RawBody for non-2xx responses.
	// If zero, DefaultMaxErrorBodyBytes is used.
	MaxErrorBodyBytes int64

	// RequestID configures correlation id propagation.
	RequestID RequestIDConfig
}

const DefaultMaxErrorBodyBytes int64 = 64 << 10 // 64KiB

// DefaultConfig returns the baseline used by New.
func DefaultConfig() Config {
	return Config{
		Transport:         DefaultTransport(),
		FollowRedirects:   true,
		DefaultHeaders:    make(http.Header),
		MaxErrorBodyBytes: DefaultMaxErrorBodyBytes,
		RequestID:         DefaultRequestIDConfig(),
	}
}
