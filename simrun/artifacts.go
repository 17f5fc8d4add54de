package simrun

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/httpx"
	"github.com/Smoke-Cloud/smoke-cloud-sdk/simrun/internal/transport"
)

// ReadOption narrows an artifact read.
type ReadOption func(*readOptions)

type readOptions struct {
	rng string
}

// WithRange sends a raw Range header value, e.g. "bytes=0-1023".
func WithRange(value string) ReadOption {
	return func(o *readOptions) { o.rng = value }
}

// FromOffset reads from byte n to the end.
func FromOffset(n int64) ReadOption {
	return WithRange(fmt.Sprintf("bytes=%d-", n))
}

func (c *Client) file(ctx context.Context, runID RunID, phase Phase, name string, opts []ReadOption) (io.ReadCloser, error) {
	var ro readOptions
	for _, o := range opts {
		if o != nil {
			o(&ro)
		}
	}
	return c.body(ctx, transport.API, http.MethodGet, runPath(runID, "/"+name),
		httpx.WithQueryParam("phase", string(phase)),
		httpx.WithRange(ro.rng),
	)
}

// Err streams the run's error output from the given phase.
func (c *Client) Err(ctx context.Context, runID RunID, phase Phase, opts ...ReadOption) (io.ReadCloser, error) {
	return c.file(ctx, runID, phase, "err", opts)
}

func (c *Client) ErrText(ctx context.Context, runID RunID, phase Phase, opts ...ReadOption) (string, error) {
	return readAllText(c.Err(ctx, runID, phase, opts...))
}

// Input streams the model file the run was submitted with.
func (c *Client) Input(ctx context.Context, runID RunID, phase Phase, opts ...ReadOption) (io.ReadCloser, error) {
	return c.file(ctx, runID, phase, "input", opts)
}

func (c *Client) InputText(ctx context.Context, runID RunID, phase Phase, opts ...ReadOption) (string, error) {
	return readAllText(c.Input(ctx, runID, phase, opts...))
}

func readAllText(rc io.ReadCloser, err error) (string, error) {
	if err != nil {
		return "", err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return "", &APIError{Kind: KindTransport, Message: err.Error(), Cause: err}
	}
	return string(b), nil
}

// Zip streams an archive of the stored run from the storage plane.
func (c *Client) Zip(ctx context.Context, runID RunID) (io.ReadCloser, error) {
	return c.body(ctx, transport.Storage, http.MethodGet, runPath(runID, "/zip"))
}

func (c *Client) MemLog(ctx context.Context, runID RunID) (DataVector[time.Time, float64], error) {
	return c.timeSeries(ctx, runID, "mem")
}

func (c *Client) CPULog(ctx context.Context, runID RunID) (DataVector[time.Time, float64], error) {
	return c.timeSeries(ctx, runID, "cpu")
}

func (c *Client) DiskLog(ctx context.Context, runID RunID) (DataVector[time.Time, float64], error) {
	return c.timeSeries(ctx, runID, "disk")
}

func (c *Client) timeSeries(ctx context.Context, runID RunID, name string) (DataVector[time.Time, float64], error) {
	path := runPath(runID, "/log/"+name)
	raw, err := getData[DataVector[json.RawMessage, float64]](ctx, c, transport.API, http.MethodGet, path)
	if err != nil {
		return DataVector[time.Time, float64]{}, err
	}
	out := DataVector[time.Time, float64]{
		Values: make([]Point[time.Time, float64], 0, len(raw.Values)),
		XUnits: raw.XUnits,
		XName:  raw.XName,
		YUnits: raw.YUnits,
		YName:  raw.YName,
	}
	for i, p := range raw.Values {
		t, err := parseInstant(p.X)
		if err != nil {
			return DataVector[time.Time, float64]{}, parseError(http.MethodGet, path, fmt.Errorf("values[%d].x: %w", i, err))
		}
		out.Values = append(out.Values, Point[time.Time, float64]{X: t, Y: p.Y})
	}
	return out, nil
}

// parseInstant accepts epoch milliseconds or an RFC 3339 string.
func parseInstant(b json.RawMessage) (time.Time, error) {
	var ms float64
	if err := json.Unmarshal(b, &ms); err == nil {
		return time.UnixMilli(int64(ms)).UTC(), nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return time.Time{}, fmt.Errorf("want epoch milliseconds or timestamp, got %s", b)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// Data fetches one named series of a CSV output file as parsed by the service.
func (c *Client) Data(ctx context.Context, runID RunID, phase Phase, csvType, value string) (DataVector[float64, float64], error) {
	q := url.Values{}
	q.Set("phase", string(phase))
	q.Set("csvtype", csvType)
	q.Set("value", value)
	return getData[DataVector[float64, float64]](ctx, c, transport.API, http.MethodGet, runPath(runID, "/data"), httpx.WithQuery(q))
}

// RunData fetches the run's time step summary. An empty phase lets the
// service choose.
func (c *Client) RunData(ctx context.Context, runID RunID, phase Phase) (RunData, error) {
	var opts []httpx.RequestOption
	if phase != "" {
		opts = append(opts, httpx.WithQueryParam("phase", string(phase)))
	}
	return getData[RunData](ctx, c, transport.API, http.MethodGet, runPath(runID, "/data/run"), opts...)
}

// Snapshots lists the stored snapshots of a run. The storage plane sends bare
// JSON without the data envelope.
func (c *Client) Snapshots(ctx context.Context, runID RunID) ([]Snapshot, error) {
	return getJSON[[]Snapshot](ctx, c, transport.Storage, http.MethodGet, runPath(runID, "/snapshots"))
}

// LatestSnapshot returns the snapshot with the greatest time, if any.
func (c *Client) LatestSnapshot(ctx context.Context, runID RunID) (Snapshot, bool, error) {
	snaps, err := c.Snapshots(ctx, runID)
	if err != nil {
		return Snapshot{}, false, err
	}
	var (
		latest Snapshot
		found  bool
	)
	for _, s := range snaps {
		if !found || snapshotAfter(s, latest) {
			latest, found = s, true
		}
	}
	return latest, found, nil
}

func snapshotAfter(a, b Snapshot) bool {
	ta, okA := parseTime(a.Time)
	tb, okB := parseTime(b.Time)
	if okA && okB {
		return ta.After(tb)
	}
	return a.Time > b.Time
}

func snapshotPath(runID RunID, snapshotID string) string {
	return runPath(runID, "/snapshots/"+url.PathEscape(snapshotID)+"/contents")
}

// SnapshotContents lists the file paths inside a snapshot.
func (c *Client) SnapshotContents(ctx context.Context, runID RunID, snapshotID string) ([]string, error) {
	return getJSON[[]string](ctx, c, transport.Storage, http.MethodGet, snapshotPath(runID, snapshotID))
}

// SnapshotFile streams one file of a snapshot. name may contain "/".
func (c *Client) SnapshotFile(ctx context.Context, runID RunID, snapshotID, name string) (io.ReadCloser, error) {
	segs := strings.Split(strings.TrimPrefix(name, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return c.body(ctx, transport.Storage, http.MethodGet, snapshotPath(runID, snapshotID)+"/"+strings.Join(segs, "/"))
}
