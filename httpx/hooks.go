package httpx

import (
	"log/slog"
	"net/http"
	"time"
)

// BeforeHook runs before the request is sent. A non-nil error aborts the request.
type BeforeHook func(req *http.Request) error

// AfterHook observes every completed round trip, successful or not.
type AfterHook func(req *http.Request, resp *http.Response, err error, dur time.Duration)

type Middleware func(next http.RoundTripper) http.RoundTripper

func chain(rt http.RoundTripper, mws []Middleware) http.RoundTripper {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		rt = mws[i](rt)
	}
	return rt
}

// LogHook returns an AfterHook that writes one debug record per round trip.
func LogHook(logger *slog.Logger) AfterHook {
	return func(req *http.Request, resp *http.Response, err error, dur time.Duration) {
		if logger == nil {
			return
		}
		code := 0
		if resp != nil {
			code = resp.StatusCode
		}
		logger.Debug("http round trip",
			"method", req.Method,
			"url", req.URL.String(),
			"status", code,
			"dur", dur,
			"err", err,
		)
	}
}
