package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/simrun"
)

func runsCmd(a *app) *cobra.Command {
	var (
		chid   string
		since  time.Duration
		limit  int
		latest bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs of the account",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.api(func(ctx context.Context, c *simrun.Client, cmd *cobra.Command, args []string) error {
		f := simrun.RunFilter{Chid: chid}
		if since > 0 {
			ms := time.Now().Add(-since).UnixMilli()
			f.UpdatedSince = &ms
		}
		if limit > 0 {
			f.Limit = &limit
		}

		var runs []simrun.RunRecord
		if latest {
			r, ok, err := c.LatestRun(ctx, f)
			if err != nil {
				return err
			}
			if ok {
				runs = append(runs, r)
			}
		} else {
			it, err := c.Runs(ctx, f)
			if err != nil {
				return err
			}
			if runs, err = it.Collect(ctx); err != nil {
				return err
			}
		}
		return a.render(cmd.OutOrStdout(), runs, func(t *uitable.Table) {
			t.AddRow("RUN", "CHID", "OPEN", "OPENED", "USER", "PROGRESS")
			for _, r := range runs {
				t.AddRow(r.RunID, r.SimID.Chid, r.Open, orDash(r.OpenTime), orDash(r.Username), progressText(r.Running, r.Stored))
			}
		})
	})
	cmd.Flags().StringVar(&chid, "chid", "", "only runs of this CHID")
	cmd.Flags().DurationVar(&since, "since", 0, "only runs updated within this duration")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size hint")
	cmd.Flags().BoolVar(&latest, "latest", false, "only the most recently opened run")
	return cmd
}

func progressText(running, stored simrun.PresenceProgress) string {
	if sp, ok := simrun.ToSimpleProgress(stored); ok {
		return fmt.Sprintf("%.1f/%.1f s (stored)", sp.Current, sp.Total)
	}
	if sp, ok := simrun.ToSimpleProgress(running); ok {
		return fmt.Sprintf("%.1f/%.1f s (%.0f%%)", sp.Current, sp.Total, 100*sp.Fraction())
	}
	return "-"
}

func renderRun(a *app, w io.Writer, r simrun.RunRecord) error {
	return a.render(w, r, func(t *uitable.Table) {
		t.AddRow("run:", r.RunID)
		t.AddRow("account:", r.SimID.AccountID)
		t.AddRow("chid:", r.SimID.Chid)
		t.AddRow("open:", r.Open)
		t.AddRow("opened:", orDash(r.OpenTime))
		t.AddRow("updated:", orDash(r.UpdateTime))
		t.AddRow("user:", orDash(r.Username))
		t.AddRow("project:", orDash(r.ProjectNumber))
		if p := r.RunParams; p != nil {
			t.AddRow("instance:", p.InstanceType)
			t.AddRow("fds:", p.FDSVersion)
		}
		t.AddRow("progress:", progressText(r.Running, r.Stored))
	})
}

func runCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run RUN_ID",
		Short: "Show one run",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = a.api(func(ctx context.Context, c *simrun.Client, cmd *cobra.Command, args []string) error {
		r, err := c.Run(ctx, args[0])
		if err != nil {
			return err
		}
		return renderRun(a, cmd.OutOrStdout(), r)
	})
	return cmd
}

func progressCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress RUN_ID",
		Short: "Show simulated time reached while running and archived",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = a.api(func(ctx context.Context, c *simrun.Client, cmd *cobra.Command, args []string) error {
		p, err := c.Progress(ctx, args[0])
		if err != nil {
			return err
		}
		return a.render(cmd.OutOrStdout(), p, func(t *uitable.Table) {
			for _, row := range []struct {
				name string
				p    simrun.PresenceProgress
			}{{"running:", p.Running}, {"stored:", p.Stored}} {
				text := row.p.State.String()
				if sp, ok := simrun.ToSimpleProgress(row.p); ok {
					text = fmt.Sprintf("%.1f/%.1f s (%.0f%%)", sp.Current, sp.Total, 100*sp.Fraction())
				}
				t.AddRow(row.name, text)
			}
		})
	})
	return cmd
}

func submitCmd(a *app) *cobra.Command {
	var (
		p      simrun.SubmitParams
		follow bool
	)
	cmd := &cobra.Command{
		Use:   "submit FILE.fds",
		Short: "Upload a model and open a new run",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = a.api(func(ctx context.Context, c *simrun.Client, cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		if p.Chid == "" {
			p.Chid = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}
		r, err := c.Submit(ctx, p, f)
		if simrun.IsConflict(err) {
			return fmt.Errorf("a run of %q is already open or this upload was already accepted: %w", p.Chid, err)
		}
		if err != nil {
			return err
		}
		if !follow {
			return renderRun(a, cmd.OutOrStdout(), r)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "submitted %s\n", r.RunID)
		return tail(ctx, c.Follow(r.RunID), cmd.OutOrStdout())
	})
	cmd.Flags().StringVar(&p.Chid, "chid", "", "case id (default: file name without extension)")
	cmd.Flags().StringVar(&p.FDSVersion, "fds-version", "6.9.1", "FDS version to run")
	cmd.Flags().StringVar(&p.Project, "project", "", "project number for billing")
	cmd.Flags().IntVar(&p.Cores, "cores", 1, "cores (1, 2, 4, 8, 16 or 32)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "tail the error stream after submitting")
	return cmd
}

func tail(ctx context.Context, f *simrun.Follower, w io.Writer) error {
	_, err := io.Copy(w, f.Reader(ctx))
	return err
}

func followCmd(a *app) *cobra.Command {
	var (
		offset   int64
		previous bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "follow RUN_ID",
		Short: "Tail the error stream of a run until it closes",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = a.api(func(ctx context.Context, c *simrun.Client, cmd *cobra.Command, args []string) error {
		opts := []simrun.FollowOption{simrun.WithStartOffset(offset)}
		if previous {
			opts = append(opts, simrun.WithPhasePolicy(simrun.PhaseFromPreviousPoll))
		}
		if interval > 0 {
			opts = append(opts, simrun.WithFollowInterval(interval))
		}
		return tail(ctx, c.Follow(args[0], opts...), cmd.OutOrStdout())
	})
	cmd.Flags().Int64Var(&offset, "offset", 0, "skip this many bytes")
	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval for this follow (default: poll_interval setting)")
	cmd.Flags().BoolVar(&previous, "running-phase-on-close", false, "read the running phase on the closing poll")
	return cmd
}

func waitCmd(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "wait RUN_ID",
		Short: "Block until the service reports the run closed",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = a.api(func(ctx context.Context, c *simrun.Client, cmd *cobra.Command, args []string) error {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		r, err := c.ConfirmClosed(ctx, args[0])
		if err != nil {
			return err
		}
		return renderRun(a, cmd.OutOrStdout(), r)
	})
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long (0 waits forever)")
	return cmd
}

func stopCmd(a *app) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "stop RUN_ID",
		Short: "Ask a run to finish cleanly",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = a.api(func(ctx context.Context, c *simrun.Client, cmd *cobra.Command, args []string) error {
		return control(ctx, a, c, cmd, args[0], c.Stop, wait)
	})
	cmd.Flags().BoolVar(&wait, "wait", false, "wait until the run is closed")
	return cmd
}

func killCmd(a *app) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "kill RUN_ID",
		Short: "Terminate a run immediately",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = a.api(func(ctx context.Context, c *simrun.Client, cmd *cobra.Command, args []string) error {
		return control(ctx, a, c, cmd, args[0], c.Kill, wait)
	})
	cmd.Flags().BoolVar(&wait, "wait", false, "wait until the run is closed")
	return cmd
}

func control(ctx context.Context, a *app, c *simrun.Client, cmd *cobra.Command, runID simrun.RunID,
	send func(context.Context, simrun.RunID) (string, error), wait bool) error {
	msg, err := send(ctx, runID)
	if err != nil {
		return err
	}
	if msg = strings.TrimSpace(msg); msg != "" {
		fmt.Fprintln(cmd.OutOrStdout(), msg)
	}
	if !wait {
		return nil
	}
	r, err := c.ConfirmClosed(ctx, runID)
	if err != nil {
		return err
	}
	return renderRun(a, cmd.OutOrStdout(), r)
}
