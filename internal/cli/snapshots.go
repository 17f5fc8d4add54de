package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/simrun"
)

func snapshotsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Browse archived run outputs",
	}
	cmd.AddCommand(snapshotsListCmd(a))
	cmd.AddCommand(snapshotsFilesCmd(a))
	cmd.AddCommand(snapshotsGetCmd(a))
	cmd.AddCommand(snapshotsSeriesCmd(a))
	return cmd
}

func snapshotsListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list RUN_ID",
		Short: "List the snapshots of a run",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = a.api(func(ctx context.Context, c *simrun.Client, cmd *cobra.Command, args []string) error {
		snaps, err := c.Snapshots(ctx, args[0])
		if err != nil {
			return err
		}
		return a.render(cmd.OutOrStdout(), snaps, func(t *uitable.Table) {
			t.AddRow("SNAPSHOT", "TIME", "SIZE")
			for _, s := range snaps {
				t.AddRow(s.ID, s.Time, s.Size)
			}
		})
	})
	return cmd
}

// snapshotID resolves "" to the latest snapshot.
func snapshotID(ctx context.Context, c *simrun.Client, runID, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	s, ok, err := c.LatestSnapshot(ctx, runID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("run %s has no snapshots", runID)
	}
	return s.ID, nil
}

func snapshotsFilesCmd(a *app) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "files RUN_ID",
		Short: "List the files in a snapshot",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = a.api(func(ctx context.Context, c *simrun.Client, cmd *cobra.Command, args []string) error {
		sid, err := snapshotID(ctx, c, args[0], id)
		if err != nil {
			return err
		}
		files, err := c.SnapshotContents(ctx, args[0], sid)
		if err != nil {
			return err
		}
		return a.render(cmd.OutOrStdout(), files, func(t *uitable.Table) {
			for _, f := range files {
				t.AddRow(f)
			}
		})
	})
	cmd.Flags().StringVar(&id, "snapshot", "", "snapshot id (default: latest)")
	return cmd
}

func snapshotsGetCmd(a *app) *cobra.Command {
	var id, out string
	cmd := &cobra.Command{
		Use:   "get RUN_ID FILE",
		Short: "Download one file of a snapshot",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = a.api(func(ctx context.Context, c *simrun.Client, cmd *cobra.Command, args []string) error {
		sid, err := snapshotID(ctx, c, args[0], id)
		if err != nil {
			return err
		}
		rc, err := c.SnapshotFile(ctx, args[0], sid, args[1])
		if err != nil {
			return err
		}
		defer rc.Close()

		var w io.Writer = cmd.OutOrStdout()
		if out != "" {
			if out == "." {
				out = path.Base(args[1])
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		_, err = io.Copy(w, rc)
		return err
	})
	cmd.Flags().StringVar(&id, "snapshot", "", "snapshot id (default: latest)")
	cmd.Flags().StringVarP(&out, "out", "O", "", `write to this file ("." keeps the file name) instead of stdout`)
	return cmd
}

func snapshotsSeriesCmd(a *app) *cobra.Command {
	var id, column string
	cmd := &cobra.Command{
		Use:   "series RUN_ID FILE.csv",
		Short: "Extract one column of a CSV output against Time",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = a.api(func(ctx context.Context, c *simrun.Client, cmd *cobra.Command, args []string) error {
		sid, err := snapshotID(ctx, c, args[0], id)
		if err != nil {
			return err
		}
		rc, err := c.SnapshotFile(ctx, args[0], sid, args[1])
		if err != nil {
			return err
		}
		defer rc.Close()
		v, err := simrun.ParseCSVData(rc, column)
		if err != nil {
			return err
		}
		return a.render(cmd.OutOrStdout(), v, func(t *uitable.Table) {
			t.AddRow(fmt.Sprintf("%s (%s)", v.XName, v.XUnits), fmt.Sprintf("%s (%s)", v.YName, v.YUnits))
			for _, p := range v.Values {
				t.AddRow(p.X, p.Y)
			}
		})
	})
	cmd.Flags().StringVar(&id, "snapshot", "", "snapshot id (default: latest)")
	cmd.Flags().StringVar(&column, "column", "HRR", "column to extract")
	return cmd
}
