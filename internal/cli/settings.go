package cli

import (
	"os"
	"path/filepath"
	"time"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/auth"
	"github.com/Smoke-Cloud/smoke-cloud-sdk/config"
	"github.com/Smoke-Cloud/smoke-cloud-sdk/simrun"
)

// EnvPrefix binds settings to SMOKECLOUD_* variables, e.g. SMOKECLOUD_LOG_LEVEL.
const EnvPrefix = "SMOKECLOUD"

// Settings is the CLI configuration file.
type Settings struct {
	APIEndpoint     string `mapstructure:"api_endpoint" json:"api_endpoint"`
	StorageEndpoint string `mapstructure:"storage_endpoint" json:"storage_endpoint"`
	LoginEndpoint   string `mapstructure:"login_endpoint" json:"login_endpoint"`

	// Credentials is the path of the YAML credential file.
	Credentials string `mapstructure:"credentials" json:"credentials"`
	AccountID   string `mapstructure:"account_id" json:"account_id"`

	PollInterval time.Duration `mapstructure:"poll_interval" json:"poll_interval"`

	OrgCache OrgCacheSettings `mapstructure:"org_cache" json:"org_cache"`
	Log      LogSettings      `mapstructure:"log" json:"log"`
}

type OrgCacheSettings struct {
	// File is a YAML cache; ignored when DSN is set.
	File string `mapstructure:"file" json:"file"`
	// DSN selects the PostgreSQL cache.
	DSN string `mapstructure:"dsn" json:"dsn"`
}

type LogSettings struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

func defaultSettings() map[string]any {
	return map[string]any{
		"api_endpoint":     simrun.DefaultAPIEndpoint,
		"storage_endpoint": simrun.DefaultStorageEndpoint,
		"login_endpoint":   auth.DefaultLoginEndpoint,
		"credentials":      filepath.Join(configDir(), "credentials.yaml"),
		"account_id":       "",
		"poll_interval":    simrun.DefaultPollInterval.String(),
		"org_cache.file":   filepath.Join(cacheDir(), "orgs.yaml"),
		"org_cache.dsn":    "",
		"log.level":        "warn",
		"log.format":       "text",
	}
}

func configDir() string {
	if d, err := os.UserConfigDir(); err == nil {
		return filepath.Join(d, "smokecloud")
	}
	return ".smokecloud"
}

func cacheDir() string {
	if d, err := os.UserCacheDir(); err == nil {
		return filepath.Join(d, "smokecloud")
	}
	return ".smokecloud"
}

func defaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// loadSettings reads the settings file if present, then SMOKECLOUD_* overrides.
func loadSettings(path string) (*config.Config[Settings], error) {
	return config.Load(path,
		config.WithDefaults[Settings](defaultSettings()),
		config.WithEnv[Settings](EnvPrefix),
		config.Optional[Settings](),
	)
}
