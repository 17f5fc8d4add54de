package simrun

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/httpx"
	"github.com/Smoke-Cloud/smoke-cloud-sdk/simrun/internal/transport"
)

type page[T any] struct {
	Data  []T `json:"data"`
	Links *struct {
		Next string `json:"next,omitempty"`
	} `json:"links,omitempty"`
}

// RunIter walks the run listing of an account one page at a time. It is not
// restartable and not safe for concurrent use.
type RunIter struct {
	c    *Client
	next string
	buf  []RunRecord
	err  error
}

// Runs lists the runs of the caller's account, resolving the account first
// when Init has not run yet.
func (c *Client) Runs(ctx context.Context, f RunFilter) (*RunIter, error) {
	path, err := c.orgPath(ctx, "", "/runs")
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	if f.UpdatedSince != nil {
		q.Set("from_time", strconv.FormatInt(*f.UpdatedSince, 10))
	}
	if f.Chid != "" {
		q.Set("chid", f.Chid)
	}
	if f.Limit != nil {
		q.Set("limit", strconv.Itoa(*f.Limit))
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return &RunIter{c: c, next: path}, nil
}

// Next returns the next record in server order, io.EOF once the listing is
// exhausted, or the error that ended it. Errors are sticky.
func (it *RunIter) Next(ctx context.Context) (RunRecord, error) {
	for {
		if len(it.buf) > 0 {
			r := it.buf[0]
			it.buf = it.buf[1:]
			return r, nil
		}
		if it.err != nil {
			return RunRecord{}, it.err
		}
		if it.next == "" {
			return RunRecord{}, io.EOF
		}

		p, err := getJSON[page[RunRecord]](ctx, it.c, transport.API, http.MethodGet, it.next)
		if err != nil {
			it.err = err
			it.next = ""
			return RunRecord{}, err
		}
		it.buf = p.Data
		it.next = ""
		if p.Links != nil {
			it.next = p.Links.Next
		}
	}
}

// Collect drains the iterator.
func (it *RunIter) Collect(ctx context.Context) ([]RunRecord, error) {
	var out []RunRecord
	for {
		r, err := it.Next(ctx)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
}

// LatestRun scans the listing for the most recently opened run. A record
// without an open time is never preferred over one with an open time.
func (c *Client) LatestRun(ctx context.Context, f RunFilter) (RunRecord, bool, error) {
	it, err := c.Runs(ctx, f)
	if err != nil {
		return RunRecord{}, false, err
	}
	var (
		latest RunRecord
		found  bool
	)
	for {
		r, err := it.Next(ctx)
		if err == io.EOF {
			return latest, found, nil
		}
		if err != nil {
			return RunRecord{}, false, err
		}
		if !found || openedAfter(r, latest) {
			latest, found = r, true
		}
	}
}

func openedAfter(a, b RunRecord) bool {
	if a.OpenTime == "" {
		return false
	}
	if b.OpenTime == "" {
		return true
	}
	ta, okA := a.Opened()
	tb, okB := b.Opened()
	if okA && okB {
		return ta.After(tb)
	}
	return a.OpenTime > b.OpenTime
}

func (c *Client) Run(ctx context.Context, runID RunID) (RunRecord, error) {
	return getData[RunRecord](ctx, c, transport.API, http.MethodGet, runPath(runID, ""))
}

func (c *Client) Progress(ctx context.Context, runID RunID) (ProgressInfo, error) {
	return getData[ProgressInfo](ctx, c, transport.API, http.MethodGet, runPath(runID, "/progress"))
}

// Submit opens a new run for p.Chid with input as the model file. A 409 from
// the service is reported as an error matching ErrConflict.
func (c *Client) Submit(ctx context.Context, p SubmitParams, input io.Reader) (RunRecord, error) {
	if strings.TrimSpace(p.Chid) == "" {
		return RunRecord{}, ErrNoChid
	}
	it := p.InstanceType
	if it == "" {
		var err error
		if it, err = CoresToInstance(p.Cores); err != nil {
			return RunRecord{}, err
		}
	}
	path, err := c.orgPath(ctx, "", "/runs")
	if err != nil {
		return RunRecord{}, err
	}

	q := url.Values{}
	q.Set("chid", p.Chid)
	q.Set("fds_version", p.FDSVersion)
	q.Set("instance_type", string(it))
	if p.Project != "" {
		q.Set("project", p.Project)
	}
	q.Set("apply_mpi_transform", "true")

	return getData[RunRecord](ctx, c, transport.API, http.MethodPost, path,
		httpx.WithQuery(q),
		httpx.WithHeader("Idempotency-Key", uuid.NewString()),
		httpx.WithHeader("Content-Type", "application/octet-stream"),
		httpx.WithBody(input),
	)
}

// ConfirmClosed polls the run until the service reports it closed. Only ctx
// bounds the wait.
func (c *Client) ConfirmClosed(ctx context.Context, runID RunID) (RunRecord, error) {
	for {
		r, err := c.Run(ctx, runID)
		if err != nil {
			return RunRecord{}, err
		}
		if !r.Open {
			return r, nil
		}
		if err := sleepCtx(ctx, c.pollInterval); err != nil {
			return RunRecord{}, err
		}
	}
}

// Stop asks the run to finish cleanly. The effect is only visible through a
// later Run call.
func (c *Client) Stop(ctx context.Context, runID RunID) (string, error) {
	return c.text(ctx, transport.API, http.MethodPut, runPath(runID, "/stop"))
}

func (c *Client) Kill(ctx context.Context, runID RunID) (string, error) {
	return c.text(ctx, transport.API, http.MethodPut, runPath(runID, "/kill"))
}
