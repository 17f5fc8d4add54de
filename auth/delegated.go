package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
)

// Account is an identity cached by the broker, opaque to this package
// beyond its fields.
type Account struct {
	ID       string
	Username string
	TenantID string
}

// IdentityBroker owns the delegated sign-in flows (token cache, redirects,
// consent). CachedAccount returns nil when no identity is cached.
type IdentityBroker interface {
	CachedAccount(ctx context.Context) (*Account, error)
	AcquireSilent(ctx context.Context, acct Account) (Token, error)
	AcquireInteractive(ctx context.Context) (Token, error)
}

// Directory looks up the signed-in user and their organization with a
// delegated token.
type Directory interface {
	Me(ctx context.Context, token string) (UserInfo, error)
	Organization(ctx context.Context, token string) (Organization, error)
	// SquareLogo returns the organization logo and its media type.
	SquareLogo(ctx context.Context, token, orgID string) (data []byte, contentType string, err error)
}

// DelegatedProvider keeps one token from the broker and refreshes it when it
// is missing or about to expire: silently when an identity is cached,
// interactively otherwise or when the silent attempt fails.
type DelegatedProvider struct {
	cred DelegatedCredential
	o    options

	mu      sync.Mutex
	current Token
}

func NewDelegatedProvider(cred DelegatedCredential, opts ...Option) (*DelegatedProvider, error) {
	o := buildOptions(opts)
	if o.broker == nil {
		return nil, errors.New("auth: delegated credential needs an identity broker")
	}
	return &DelegatedProvider{cred: cred, o: o}, nil
}

func (p *DelegatedProvider) Scheme() Scheme { return SchemeDelegated }

func (p *DelegatedProvider) Credential() DelegatedCredential { return p.cred }

// Init runs the broker's own initialization when it has one.
func (p *DelegatedProvider) Init(ctx context.Context) error {
	if in, ok := p.o.broker.(interface{ Init(context.Context) error }); ok {
		if err := in.Init(ctx); err != nil {
			return fmt.Errorf("auth: delegated init: %w", err)
		}
	}
	return nil
}

func (p *DelegatedProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.o.now()
	if p.current.Valid(now.Add(p.o.refreshSkew)) {
		return p.current.Value, nil
	}

	tok, err := p.acquire(ctx)
	if err != nil {
		return "", err
	}
	if tok.Value == "" {
		return "", ErrNoIdentity
	}
	if tok.IssuedAt.IsZero() {
		tok.IssuedAt = now
	}
	p.current = tok
	return tok.Value, nil
}

func (p *DelegatedProvider) acquire(ctx context.Context) (Token, error) {
	acct, err := p.o.broker.CachedAccount(ctx)
	if err != nil {
		p.o.logger.Warn("cached account lookup failed", "client_id", p.cred.ClientID, "err", err)
		acct = nil
	}
	if acct != nil {
		tok, err := p.o.broker.AcquireSilent(ctx, *acct)
		if err == nil {
			return tok, nil
		}
		if ctx.Err() != nil {
			return Token{}, ctx.Err()
		}
		p.o.logger.Info("silent token refresh failed, falling back to interactive",
			"client_id", p.cred.ClientID,
			"account", acct.Username,
			"err", err,
		)
	}
	tok, err := p.o.broker.AcquireInteractive(ctx)
	if err != nil {
		return Token{}, fmt.Errorf("auth: delegated sign-in: %w", err)
	}
	return tok, nil
}

// Current returns the token held right now without refreshing it.
func (p *DelegatedProvider) Current() Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Org looks the user and organization up in the directory. A missing logo
// only leaves LogoDataURL empty.
func (p *DelegatedProvider) Org(ctx context.Context) (*OrgInfo, error) {
	return p.o.orgs.lookup(ctx, p.cred.ID(), p.o.logger, p.fetchOrg)
}

func (p *DelegatedProvider) fetchOrg(ctx context.Context) (*OrgInfo, error) {
	dir := p.o.directory
	if dir == nil {
		return nil, nil
	}
	token, err := p.Token(ctx)
	if err != nil {
		return nil, err
	}
	user, err := dir.Me(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("auth: directory user: %w", err)
	}
	org, err := dir.Organization(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("auth: directory organization: %w", err)
	}
	info := &OrgInfo{User: &user, Org: &org}

	data, ct, err := dir.SquareLogo(ctx, token, org.ID)
	switch {
	case err != nil:
		p.o.logger.Warn("no logo for organization", "org", org.DisplayName, "id", org.ID, "err", err)
	case len(data) > 0:
		if ct == "" {
			ct = "application/octet-stream"
		}
		info.LogoDataURL = "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data)
	}
	return info, nil
}

func (p *DelegatedProvider) sealed() {}
