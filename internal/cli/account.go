package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/auth"
	"github.com/Smoke-Cloud/smoke-cloud-sdk/simrun"
)

func statusCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what is running in the account",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.api(func(ctx context.Context, c *simrun.Client, cmd *cobra.Command, args []string) error {
		status, err := c.Status(ctx)
		if err != nil {
			return err
		}
		rows := simrun.ToTable(status)
		return a.render(cmd.OutOrStdout(), status, func(t *uitable.Table) {
			t.AddRow("RUN", "CHID", "PROGRESS", "CPU", "MEMORY", "RATE")
			for _, r := range rows {
				t.AddRow(r.RunID, r.Chid, r.Progress, r.CPU, r.Memory, r.RunRate)
			}
		})
	})
	return cmd
}

func loadCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Show cores used and reserved by the account",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.api(func(ctx context.Context, c *simrun.Client, cmd *cobra.Command, args []string) error {
		u, err := c.Load(ctx)
		if err != nil {
			return err
		}
		return a.render(cmd.OutOrStdout(), u, func(t *uitable.Table) {
			t.AddRow("used cores:", u.UsedCores)
			t.AddRow("reserved cores:", u.ReservedCores)
		})
	})
	return cmd
}

func billingCmd(a *app) *cobra.Command {
	var account string
	cmd := &cobra.Command{
		Use:   "billing",
		Short: "Show unbilled runs, the outstanding total and coupon balance",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.api(func(ctx context.Context, c *simrun.Client, cmd *cobra.Command, args []string) error {
		runs, err := c.Outstanding(ctx, account)
		if err != nil {
			return err
		}
		out := struct {
			Outstanding []simrun.RunBilling `json:"outstanding"`
			Total       *simrun.Money       `json:"total,omitempty"`
			Coupons     *simrun.Money       `json:"coupons,omitempty"`
		}{Outstanding: runs}
		// Totals are only served for the caller's own account.
		if account == "" {
			total, err := c.OutstandingTotal(ctx)
			if err != nil {
				return err
			}
			coupons, err := c.CouponsTotal(ctx)
			if err != nil {
				return err
			}
			out.Total, out.Coupons = &total, &coupons
		}
		return a.render(cmd.OutOrStdout(), out, func(t *uitable.Table) {
			t.AddRow("RUN", "PROJECT", "USER", "DURATION", "COST")
			for _, b := range runs {
				t.AddRow(b.RunID, orDash(b.Project), orDash(b.User), b.Duration.Std(), b.Cost)
			}
			if out.Total != nil {
				t.AddRow("", "", "", "total:", *out.Total)
				t.AddRow("", "", "", "coupons:", *out.Coupons)
			}
		})
	})
	cmd.Flags().StringVar(&account, "for-account", "", "query another account")
	return cmd
}

func whoamiCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated user and organization",
		Args:  cobra.NoArgs,
	}
	var refresh bool
	cmd.Flags().BoolVar(&refresh, "refresh", false, "drop the cached organization details before the lookup")
	cmd.RunE = a.api(func(ctx context.Context, c *simrun.Client, cmd *cobra.Command, args []string) error {
		if refresh {
			if err := a.orgs.Invalidate(ctx, a.credID); err != nil {
				return fmt.Errorf("refresh org cache: %w", err)
			}
		}
		info, err := c.Org(ctx)
		if err != nil {
			return err
		}
		out := struct {
			AccountID string        `json:"account_id"`
			Scheme    string        `json:"scheme"`
			Org       *auth.OrgInfo `json:"org_info,omitempty"`
		}{AccountID: c.AccountID(), Scheme: string(c.Provider().Scheme()), Org: info}
		return a.render(cmd.OutOrStdout(), out, func(t *uitable.Table) {
			t.AddRow("account:", c.AccountID())
			t.AddRow("scheme:", c.Provider().Scheme())
			if info == nil {
				return
			}
			if u := info.User; u != nil {
				t.AddRow("user:", orDash(u.DisplayName))
				if u.Mail != "" {
					t.AddRow("mail:", u.Mail)
				}
			}
			if o := info.Org; o != nil {
				t.AddRow("organization:", orDash(o.DisplayName))
			}
			if info.LogoDataURL != "" {
				t.AddRow("logo:", truncate(info.LogoDataURL, 32)+"...")
			}
		})
	})
	return cmd
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n])
}
