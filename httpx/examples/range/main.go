package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/httpx"
)

// Tails a growing log by asking only for the bytes past the last offset.
func main() {
	log := "step 1\nstep 2\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		from := 0
		if rg := r.Header.Get("Range"); rg != "" {
			from, _ = strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(rg, "bytes="), "-"))
		}
		if from >= len(log) {
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		w.WriteHeader(http.StatusPartialContent)
		_, _ = io.WriteString(w, log[from:])
	}))
	defer srv.Close()

	client, err := httpx.New(httpx.WithBaseURL(srv.URL + "/v3"))
	if err != nil {
		panic(err)
	}

	var offset int64
	for i := 0; i < 3; i++ {
		req, err := client.NewRequest(context.Background(), http.MethodGet, "/runs/r1/err", httpx.FromOffset(offset))
		if err != nil {
			panic(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			panic(err)
		}
		b, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
			fmt.Println("no new bytes")
		} else {
			fmt.Printf("read %q\n", b)
			offset += int64(len(b))
		}
		log += fmt.Sprintf("step %d\n", i+3)
	}
}
