package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/auth"
	"github.com/Smoke-Cloud/smoke-cloud-sdk/auth/pgstore"
	"github.com/Smoke-Cloud/smoke-cloud-sdk/config"
	"github.com/Smoke-Cloud/smoke-cloud-sdk/simrun"
)

type rootFlags struct {
	ConfigPath      string
	Credentials     string
	APIEndpoint     string
	StorageEndpoint string
	AccountID       string
	LogLevel        string
	Output          string
}

// app carries what commands share for one invocation.
type app struct {
	flags rootFlags

	cfg    *config.Config[Settings]
	level  *slog.LevelVar
	logger *slog.Logger
	stderr io.Writer

	client  *simrun.Client
	orgs    *auth.OrgCache
	credID  string
	closers []func()
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func NewRootCmd() *cobra.Command {
	a := &app{level: new(slog.LevelVar)}

	rootCmd := &cobra.Command{
		Use:          "smokecloud",
		Short:        "Submit, monitor and fetch fire simulation runs on Smoke Cloud",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.flags.ConfigPath, "config", defaultConfigPath(), "settings file (optional)")
	pf.StringVar(&a.flags.Credentials, "credentials", "", "credential file (overrides settings)")
	pf.StringVar(&a.flags.APIEndpoint, "api-endpoint", "", "control-plane endpoint (overrides settings)")
	pf.StringVar(&a.flags.StorageEndpoint, "storage-endpoint", "", "storage-plane endpoint (overrides settings)")
	pf.StringVar(&a.flags.AccountID, "account", "", "account id, skips the /me lookup")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "debug, info, warn or error (overrides settings)")
	pf.StringVarP(&a.flags.Output, "output", "o", "table", "output format (table, json)")

	rootCmd.AddCommand(runsCmd(a))
	rootCmd.AddCommand(runCmd(a))
	rootCmd.AddCommand(progressCmd(a))
	rootCmd.AddCommand(submitCmd(a))
	rootCmd.AddCommand(followCmd(a))
	rootCmd.AddCommand(waitCmd(a))
	rootCmd.AddCommand(stopCmd(a))
	rootCmd.AddCommand(killCmd(a))
	rootCmd.AddCommand(statusCmd(a))
	rootCmd.AddCommand(loadCmd(a))
	rootCmd.AddCommand(billingCmd(a))
	rootCmd.AddCommand(whoamiCmd(a))
	rootCmd.AddCommand(snapshotsCmd(a))
	rootCmd.AddCommand(versionCmd(a))

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	a.stderr = cmd.ErrOrStderr()

	cfg, err := loadSettings(a.flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	a.cfg = cfg
	s := a.settings()

	lvl, err := parseLevel(s.Log.Level)
	if err != nil {
		return err
	}
	a.level.Set(lvl)
	if a.logger, err = newLogger(a.stderr, s.Log.Format, a.level); err != nil {
		return err
	}

	// Level changes in the settings file apply to a running follow/wait.
	cfg.OnChange(func(old, new Settings) {
		if a.flags.LogLevel != "" || !config.Changed(old.Log.Level, new.Log.Level) {
			return
		}
		if l, err := parseLevel(new.Log.Level); err == nil {
			a.level.Set(l)
			a.logger.Info("log level changed", "level", l)
		}
	})
	return nil
}

// settings returns the current settings with flag overrides applied.
func (a *app) settings() Settings {
	s := a.cfg.Get()
	if a.flags.Credentials != "" {
		s.Credentials = a.flags.Credentials
	}
	if a.flags.APIEndpoint != "" {
		s.APIEndpoint = a.flags.APIEndpoint
	}
	if a.flags.StorageEndpoint != "" {
		s.StorageEndpoint = a.flags.StorageEndpoint
	}
	if a.flags.AccountID != "" {
		s.AccountID = a.flags.AccountID
	}
	if a.flags.LogLevel != "" {
		s.Log.Level = a.flags.LogLevel
	}
	return s
}

// connect builds the API client on first use so offline commands never read
// credentials.
func (a *app) connect(ctx context.Context) (*simrun.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	s := a.settings()

	cred, err := auth.ReadCredentialFile(s.Credentials)
	if err != nil {
		return nil, err
	}

	store, err := a.orgStore(ctx, s.OrgCache)
	if err != nil {
		return nil, err
	}

	orgs := auth.NewOrgCache(store)
	provider, err := auth.New(cred,
		auth.WithLogger(a.logger),
		auth.WithLoginEndpoint(s.LoginEndpoint),
		auth.WithOrgCache(orgs),
	)
	if err != nil {
		return nil, err
	}

	poll := s.PollInterval
	if poll <= 0 {
		poll = simrun.DefaultPollInterval
	}
	account := s.AccountID
	if account == "" {
		account = auth.AccountOf(cred)
	}
	c, err := simrun.New(provider,
		simrun.WithAPIEndpoint(s.APIEndpoint),
		simrun.WithStorageEndpoint(s.StorageEndpoint),
		simrun.WithLogger(a.logger),
		simrun.WithPollInterval(poll),
		simrun.WithAccountID(account),
	)
	if err != nil {
		return nil, err
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	a.client = c
	a.orgs = orgs
	a.credID = cred.ID()
	return c, nil
}

func (a *app) orgStore(ctx context.Context, s OrgCacheSettings) (auth.OrgStore, error) {
	if s.DSN != "" {
		st, err := pgstore.Open(ctx, s.DSN)
		if err != nil {
			return nil, fmt.Errorf("org cache: %w", err)
		}
		a.closers = append(a.closers, st.Close)
		if err := st.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("org cache: %w", err)
		}
		return st, nil
	}
	if s.File == "" {
		return auth.NewMemoryStore(), nil
	}
	return auth.NewFileStore(s.File), nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// run adapts a command body, releasing what the invocation opened.
func (a *app) run(fn func(ctx context.Context, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.close()
		return fn(cmd.Context(), cmd, args)
	}
}

// api is run for commands that talk to the service.
func (a *app) api(fn func(ctx context.Context, c *simrun.Client, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
		c, err := a.connect(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, c, cmd, args)
	})
}
