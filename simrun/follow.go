package simrun

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/httpx"
	"github.com/Smoke-Cloud/smoke-cloud-sdk/simrun/internal/transport"
)

// PhasePolicy decides which phase a poll cycle reads from.
type PhasePolicy int

const (
	// PhaseFromLatestPoll reads the storage phase as soon as the poll of the
	// current cycle sees the run closed. If closure and archival are not atomic
	// on the service the last running-phase bytes can be skipped.
	PhaseFromLatestPoll PhasePolicy = iota
	// PhaseFromPreviousPoll reads with the state seen before the current poll,
	// so the closing cycle still reads the running phase. Bytes that only
	// reach the archive are not read.
	PhaseFromPreviousPoll
)

type FollowOption func(*Follower)

func WithPhasePolicy(p PhasePolicy) FollowOption {
	return func(f *Follower) { f.policy = p }
}

// WithFollowInterval overrides the client's poll interval for one follower.
func WithFollowInterval(d time.Duration) FollowOption {
	return func(f *Follower) { f.interval = d }
}

// WithStartOffset skips the first n bytes of the stream.
func WithStartOffset(n int64) FollowOption {
	return func(f *Follower) {
		if n > 0 {
			f.nRead = n
		}
	}
}

// Follower tails the error stream of a run while it grows. Each instance owns
// its offset; followers of the same run do not share state.
type Follower struct {
	c        *Client
	runID    RunID
	interval time.Duration
	policy   PhasePolicy

	nRead  int64
	closed bool
	ended  bool
}

func (c *Client) Follow(runID RunID, opts ...FollowOption) *Follower {
	f := &Follower{c: c, runID: runID, interval: c.pollInterval}
	for _, o := range opts {
		if o != nil {
			o(f)
		}
	}
	return f
}

func (f *Follower) RunID() RunID { return f.runID }

// Offset is the number of bytes yielded so far, plus any start offset.
func (f *Follower) Offset() int64 { return f.nRead }

// Closed reports whether the latest poll saw the run closed.
func (f *Follower) Closed() bool { return f.closed }

// Next blocks until new bytes are available and returns them. It returns
// io.EOF after the cycle that observed the run closed, or when the service
// reports no content. A failed request is returned as is and leaves the
// follower state untouched, so the caller may call Next again.
func (f *Follower) Next(ctx context.Context) ([]byte, error) {
	for {
		if f.closed || f.ended {
			return nil, io.EOF
		}
		if err := sleepCtx(ctx, f.interval); err != nil {
			return nil, err
		}

		run, err := f.c.Run(ctx, f.runID)
		if err != nil {
			return nil, err
		}
		closed := !run.Open

		readClosed := closed
		if f.policy == PhaseFromPreviousPoll {
			readClosed = f.closed
		}
		phase := PhaseRunning
		if readClosed {
			phase = PhaseStorage
		}

		chunk, ended, err := f.fetch(ctx, phase)
		if err != nil {
			return nil, err
		}
		f.closed = closed
		if ended {
			f.ended = true
			return nil, io.EOF
		}
		if len(chunk) > 0 {
			f.nRead += int64(len(chunk))
			return chunk, nil
		}
	}
}

// fetch reads the bytes past nRead. ended reports a response without content.
func (f *Follower) fetch(ctx context.Context, phase Phase) (chunk []byte, ended bool, err error) {
	resp, err := f.c.tr.Do(ctx, transport.API, http.MethodGet, runPath(f.runID, "/err"),
		httpx.WithQueryParam("phase", string(phase)),
		httpx.FromOffset(f.nRead),
	)
	if err != nil {
		if httpx.IsHTTPStatus(err, http.StatusRequestedRangeNotSatisfiable) {
			return nil, false, nil
		}
		return nil, false, mapError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, true, nil
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, &APIError{Kind: KindTransport, Method: http.MethodGet, URL: runPath(f.runID, "/err"), Message: err.Error(), Cause: err}
	}

	start := int64(0)
	if resp.StatusCode == http.StatusPartialContent {
		start = f.nRead
		if s, ok := contentRangeStart(resp.Header.Get("Content-Range")); ok {
			start = s
		}
	}
	// b holds bytes [start, start+len(b)); keep what lies past nRead.
	if start > f.nRead {
		return nil, false, &APIError{
			Kind:       KindParse,
			Method:     http.MethodGet,
			URL:        runPath(f.runID, "/err"),
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("content range %q starts past offset %d", resp.Header.Get("Content-Range"), f.nRead),
		}
	}
	skip := f.nRead - start
	if skip >= int64(len(b)) {
		return nil, false, nil
	}
	return b[skip:], false, nil
}

// contentRangeStart parses the first byte position of "bytes 10-19/20".
func contentRangeStart(v string) (int64, bool) {
	v = strings.TrimSpace(v)
	rest, ok := strings.CutPrefix(v, "bytes ")
	if !ok {
		return 0, false
	}
	first, _, ok := strings.Cut(rest, "-")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(first), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Reader adapts the follower to an io.Reader bound to ctx.
func (f *Follower) Reader(ctx context.Context) io.Reader {
	return &followReader{f: f, ctx: ctx}
}

type followReader struct {
	f   *Follower
	ctx context.Context
	buf []byte
}

func (r *followReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(r.buf) == 0 {
		chunk, err := r.f.Next(r.ctx)
		if err != nil {
			return 0, err
		}
		r.buf = chunk
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
