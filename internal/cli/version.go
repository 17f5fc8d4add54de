package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/version"
)

func versionCmd(a *app) *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.run(func(_ context.Context, cmd *cobra.Command, args []string) error {
		info := version.Get()
		switch {
		case short:
			fmt.Fprintln(cmd.OutOrStdout(), info.ShortString())
		case a.flags.Output == "json":
			s, err := info.ToJSONIndent()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
		default:
			fmt.Fprintln(cmd.OutOrStdout(), info.Text())
		}
		return nil
	})
	cmd.Flags().BoolVar(&short, "short", false, "print only the version number")
	return cmd
}
