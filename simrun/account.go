package simrun

import (
	"context"
	"net/http"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/auth"
	"github.com/Smoke-Cloud/smoke-cloud-sdk/simrun/internal/transport"
)

// Me returns the authenticated user as the service sees it.
func (c *Client) Me(ctx context.Context) (User, error) {
	return getData[User](ctx, c, transport.API, http.MethodGet, "/me")
}

// Org returns human-readable user and organization details from the
// credential provider.
func (c *Client) Org(ctx context.Context) (*auth.OrgInfo, error) {
	return c.provider.Org(ctx)
}

// Status lists what is currently running in the account.
func (c *Client) Status(ctx context.Context) ([]RunningStatus, error) {
	path, err := c.orgPath(ctx, "", "/running_status")
	if err != nil {
		return nil, err
	}
	return getData[[]RunningStatus](ctx, c, transport.API, http.MethodGet, path)
}

// Load reports the cores used and reserved by the account.
func (c *Client) Load(ctx context.Context) (CurrentUsage, error) {
	path, err := c.orgPath(ctx, "", "/load")
	if err != nil {
		return CurrentUsage{}, err
	}
	return getData[CurrentUsage](ctx, c, transport.API, http.MethodGet, path)
}

// Outstanding lists unbilled runs. A non-empty accountOverride queries that
// account instead of the caller's.
func (c *Client) Outstanding(ctx context.Context, accountOverride string) ([]RunBilling, error) {
	path, err := c.orgPath(ctx, accountOverride, "/billing/outstanding")
	if err != nil {
		return nil, err
	}
	return getData[[]RunBilling](ctx, c, transport.API, http.MethodGet, path)
}

func (c *Client) OutstandingTotal(ctx context.Context) (Money, error) {
	path, err := c.orgPath(ctx, "", "/billing/outstanding/total")
	if err != nil {
		return Money{}, err
	}
	return getData[Money](ctx, c, transport.API, http.MethodGet, path)
}

// CouponsTotal returns the remaining coupon balance.
func (c *Client) CouponsTotal(ctx context.Context) (Money, error) {
	path, err := c.orgPath(ctx, "", "/billing/coupons")
	if err != nil {
		return Money{}, err
	}
	return getData[Money](ctx, c, transport.API, http.MethodGet, path)
}
