package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/httpx"
)

func main() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v3/me":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"data":{"account_id":"acc-1"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"errors":[{"code":"not_found"}]}`)
		}
	}))
	defer srv.Close()

	client, err := httpx.New(
		httpx.WithBaseURL(srv.URL+"/v3"),
		httpx.WithTimeout(3*time.Second),
	)
	if err != nil {
		panic(err)
	}

	req, err := client.NewRequest(context.Background(), http.MethodGet, "/me")
	if err != nil {
		panic(err)
	}

	var out struct {
		Data struct {
			AccountID string `json:"account_id"`
		} `json:"data"`
	}
	if _, err := client.DoJSONInto(req, &out); err != nil {
		panic(err)
	}
	fmt.Println("account_id =", out.Data.AccountID)

	req, _ = client.NewRequest(context.Background(), http.MethodGet, "/runs/missing")
	if _, err := client.DoStatus(req); err != nil {
		he, _ := httpx.AsError(err)
		fmt.Printf("status=%d %s body=%s\n", he.StatusCode, he.Status, he.RawBody)
	}
}
