package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/httpx"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

type failingToken struct{ err error }

func (f failingToken) Token(context.Context) (string, error) { return "", f.err }

func TestDo_RoutesPlanes(t *testing.T) {
	var gotPath, gotAuth, gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotAuth, gotCT = r.URL.Path, r.Header.Get("Authorization"), r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(staticToken("tok"), Config{APIEndpoint: srv.URL + "/v3", StorageEndpoint: srv.URL + "/blob/v3"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, tc := range []struct {
		plane Plane
		want  string
	}{
		{API, "/v3/runs/1/err"},
		{Storage, "/blob/v3/runs/1/err"},
	} {
		resp, err := c.Do(context.Background(), tc.plane, http.MethodGet, "/runs/1/err")
		if err != nil {
			t.Fatalf("%s: Do: %v", tc.plane, err)
		}
		_ = resp.Body.Close()
		if gotPath != tc.want {
			t.Fatalf("%s: path = %q, want %q", tc.plane, gotPath, tc.want)
		}
		if gotAuth != "Bearer tok" {
			t.Fatalf("Authorization = %q", gotAuth)
		}
		if gotCT != "application/json" {
			t.Fatalf("Content-Type = %q", gotCT)
		}
	}

	if got := c.Endpoint(Storage); got != srv.URL+"/blob/v3/" {
		t.Fatalf("Endpoint(Storage) = %q", got)
	}
}

func TestDo_MiddlewareOnBothPlanes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var seen []string
	mw := func(next http.RoundTripper) http.RoundTripper {
		return httpx.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			seen = append(seen, r.URL.Path)
			return next.RoundTrip(r)
		})
	}
	c, err := New(staticToken("tok"), Config{
		APIEndpoint:     srv.URL + "/v3",
		StorageEndpoint: srv.URL + "/blob/v3",
		Middleware:      []httpx.Middleware{mw},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, p := range []Plane{API, Storage} {
		resp, err := c.Do(context.Background(), p, http.MethodGet, "/runs/1")
		if err != nil {
			t.Fatalf("%s: Do: %v", p, err)
		}
		_ = resp.Body.Close()
	}
	if len(seen) != 2 || seen[0] != "/v3/runs/1" || seen[1] != "/blob/v3/runs/1" {
		t.Fatalf("middleware saw %v", seen)
	}
}

func TestDo_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := New(staticToken("tok"), Config{APIEndpoint: srv.URL, StorageEndpoint: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Do(context.Background(), API, http.MethodGet, "/me")
	if !httpx.IsHTTPStatus(err, http.StatusForbidden) {
		t.Fatalf("err = %v, want 403", err)
	}
}

func TestDo_TokenError(t *testing.T) {
	want := errors.New("login rejected")
	c, err := New(failingToken{want}, Config{APIEndpoint: "http://127.0.0.1:1", StorageEndpoint: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Do(context.Background(), API, http.MethodGet, "/me"); !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(nil, Config{}); err == nil {
		t.Fatal("expected error for nil token source")
	}
	if _, err := New(staticToken("x"), Config{APIEndpoint: "relative/path", StorageEndpoint: "http://ok"}); err == nil {
		t.Fatal("expected error for relative endpoint")
	}
}
