package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/auth"
)

type harness struct {
	srv   *httptest.Server
	creds string
	dir   string
}

func newHarness(t *testing.T, h http.Handler) *harness {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	b, err := auth.MarshalCredential(auth.KeyCredential{IDKey: "aWQ=", SecretKey: "c2VjcmV0", AccountID: "acct-1"})
	require.NoError(t, err)
	creds := filepath.Join(dir, "credentials.yaml")
	require.NoError(t, os.WriteFile(creds, b, 0o600))

	t.Setenv("SMOKECLOUD_POLL_INTERVAL", "1ms")
	t.Setenv("SMOKECLOUD_ORG_CACHE_FILE", filepath.Join(dir, "orgs.yaml"))
	return &harness{srv: srv, creds: creds, dir: dir}
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{
		"--config", filepath.Join(h.dir, "absent.yaml"),
		"--credentials", h.creds,
		"--api-endpoint", h.srv.URL + "/v3",
		"--storage-endpoint", h.srv.URL + "/store",
	}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeData(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": v})
}

func TestVersion(t *testing.T) {
	h := newHarness(t, http.NotFoundHandler())

	out, err := h.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "gitVersion:")

	out, err = h.run(t, "version", "-o", "json")
	require.NoError(t, err)
	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "gitVersion")
}

func TestRuns_JSON(t *testing.T) {
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/orgs/acct-1/runs" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{
			map[string]any{"run_id": "r1", "open": true, "sim_id": map[string]any{"chid": "room"}},
		}})
	}))

	out, err := h.run(t, "runs", "-o", "json")
	require.NoError(t, err)

	var runs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0]["run_id"])
}

func TestStatus_Table(t *testing.T) {
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []any{map[string]any{
			"run_id": "r1", "account_id": "acct-1", "chid": "room",
			"cpu": map[string]any{"Value": 50}, "cpu_max": map[string]any{"Value": 100},
		}})
	}))

	out, err := h.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "room")
	assert.Contains(t, out, "50/100%")
}

func TestFollow(t *testing.T) {
	var polls atomic.Int32
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v3/runs/r1":
			n := polls.Add(1)
			writeData(w, map[string]any{"run_id": "r1", "open": n < 2})
		case "/v3/runs/r1/err":
			content := "step 1\n"
			if r.URL.Query().Get("phase") == "storage" {
				content = "step 1\nstep 2\n"
			}
			_, _ = w.Write([]byte(content))
		default:
			http.NotFound(w, r)
		}
	}))

	out, err := h.run(t, "follow", "r1")
	require.NoError(t, err)
	assert.Equal(t, "step 1\nstep 2\n", out)
}

func TestSubmit_Conflict(t *testing.T) {
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"errors":[{"code":"model_open"}]}`))
	}))
	model := filepath.Join(h.dir, "room.fds")
	require.NoError(t, os.WriteFile(model, []byte("&HEAD CHID='room' /"), 0o600))

	_, err := h.run(t, "submit", model, "--cores", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"room" is already open`)
}

func TestWhoami_CachesOrg(t *testing.T) {
	h := newHarness(t, http.NotFoundHandler())

	out, err := h.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "acct-1")
	assert.Contains(t, out, "aWQ=")

	_, err = os.Stat(filepath.Join(h.dir, "orgs.yaml"))
	assert.NoError(t, err)
}

func TestWhoami_Refresh(t *testing.T) {
	h := newHarness(t, http.NotFoundHandler())
	stale := "keys.aWQ=:\n  user:\n    display_name: stale-name\n"
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "orgs.yaml"), []byte(stale), 0o600))

	out, err := h.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "stale-name")

	out, err = h.run(t, "whoami", "--refresh")
	require.NoError(t, err)
	assert.NotContains(t, out, "stale-name")
	assert.Contains(t, out, "aWQ=")

	b, err := os.ReadFile(filepath.Join(h.dir, "orgs.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(b), "stale-name")
}

func TestMissingCredentials(t *testing.T) {
	h := newHarness(t, http.NotFoundHandler())
	h.creds = filepath.Join(h.dir, "nope.yaml")

	_, err := h.run(t, "load")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read credential file")
}

func TestSettings_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n  format: json\n"), 0o600))
	t.Setenv("SMOKECLOUD_API_ENDPOINT", "http://localhost:8080/v3")

	cfg, err := loadSettings(path)
	require.NoError(t, err)
	s := cfg.Get()
	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, "json", s.Log.Format)
	assert.Equal(t, "http://localhost:8080/v3", s.APIEndpoint)
	assert.Equal(t, "2s", s.PollInterval.String())

	_, err = newLogger(&bytes.Buffer{}, "xml", nil)
	assert.Error(t, err)
	_, err = parseLevel("loud")
	assert.Error(t, err)
}
