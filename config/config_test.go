package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSettings struct {
	APIEndpoint string `mapstructure:"api_endpoint"`
	Log         struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

var testDefaults = map[string]any{
	"api_endpoint": "https://api.example.test/v3",
	"log.level":    "info",
	"log.format":   "text",
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smokecloud.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))

	c, err := Load(path, WithDefaults[testSettings](testDefaults), WithoutWatch[testSettings]())
	require.NoError(t, err)

	got := c.Get()
	assert.Equal(t, "debug", got.Log.Level)
	assert.Equal(t, "text", got.Log.Format)
	assert.Equal(t, "https://api.example.test/v3", got.APIEndpoint)
	assert.Equal(t, path, c.Path())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smokecloud.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))
	t.Setenv("SCTEST_LOG_LEVEL", "error")
	t.Setenv("SCTEST_API_ENDPOINT", "http://localhost:9000")

	c, err := Load(path,
		WithDefaults[testSettings](testDefaults),
		WithEnv[testSettings]("SCTEST"),
		WithoutWatch[testSettings](),
	)
	require.NoError(t, err)

	got := c.Get()
	assert.Equal(t, "error", got.Log.Level)
	assert.Equal(t, "http://localhost:9000", got.APIEndpoint)
}

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	_, err := Load(path, WithDefaults[testSettings](testDefaults))
	require.Error(t, err)

	c, err := Load(path, WithDefaults[testSettings](testDefaults), Optional[testSettings]())
	require.NoError(t, err)
	assert.Equal(t, "info", c.Get().Log.Level)
}

func TestLoad_NoPath(t *testing.T) {
	c, err := Load("", WithDefaults[testSettings](testDefaults))
	require.NoError(t, err)
	assert.Equal(t, "text", c.Get().Log.Format)
}

func TestReload_NotifiesOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smokecloud.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o600))

	c, err := Load(path, WithDefaults[testSettings](testDefaults), WithoutWatch[testSettings]())
	require.NoError(t, err)

	var calls int
	var oldLevel, newLevel string
	c.OnChange(func(old, new testSettings) {
		calls++
		oldLevel, newLevel = old.Log.Level, new.Log.Level
	})
	c.OnChange(func(old, new testSettings) { panic("boom") })

	// 内容不变时不触发回调
	require.NoError(t, c.Reload())
	assert.Equal(t, 0, calls)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o600))
	require.NoError(t, c.Reload())
	assert.Equal(t, 1, calls)
	assert.Equal(t, "info", oldLevel)
	assert.Equal(t, "warn", newLevel)
	assert.Equal(t, "warn", c.Get().Log.Level)
}

func TestChanged(t *testing.T) {
	type pair struct{ A, B string }
	assert.False(t, Changed(pair{"a", "b"}, pair{"a", "b"}))
	assert.True(t, Changed(pair{"a", "b"}, pair{"a", "c"}))
}
