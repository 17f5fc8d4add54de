package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/httpx"
)

func main() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	client, err := httpx.New(httpx.WithBaseURL(srv.URL))
	if err != nil {
		panic(err)
	}

	// Middleware sits below the hooks and sees every round trip, redirects included.
	var trips int
	client.WithMiddleware(func(next http.RoundTripper) http.RoundTripper {
		return httpx.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			trips++
			return next.RoundTrip(req)
		})
	})

	client.WithHooks(
		[]httpx.BeforeHook{
			func(req *http.Request) error {
				req.Header.Set("X-Account", "acc-1")
				return nil
			},
		},
		[]httpx.AfterHook{httpx.LogHook(logger)},
	)

	req, err := client.NewRequest(context.Background(), http.MethodGet, "/")
	if err != nil {
		panic(err)
	}
	resp, err := client.DoStatus(req)
	if err != nil {
		panic(err)
	}
	_ = resp.Body.Close()
	logger.Info("done", "round_trips", trips)
}
