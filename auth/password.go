package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/httpx"
	"github.com/Smoke-Cloud/smoke-cloud-sdk/version"
)

// PasswordProvider exchanges account, username and password for a signed
// token once. The token is kept for the provider's lifetime; after it expires
// on the service a new provider is needed.
type PasswordProvider struct {
	cred PasswordCredential
	hc   *httpx.Client
	o    options

	mu    sync.Mutex
	token string
}

func NewPasswordProvider(cred PasswordCredential, opts ...Option) (*PasswordProvider, error) {
	o := buildOptions(opts)
	hc, err := httpx.New(
		httpx.WithBaseURL(o.loginEndpoint),
		httpx.WithHTTPClient(o.httpClient),
		httpx.WithTransport(o.transport),
		httpx.WithUserAgent(version.UserAgent()),
		httpx.WithoutRedirects(),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: login endpoint: %w", err)
	}
	return &PasswordProvider{cred: cred, hc: hc, o: o}, nil
}

func (p *PasswordProvider) Scheme() Scheme { return SchemePassword }

func (p *PasswordProvider) Credential() PasswordCredential { return p.cred }

// Init logs in, replacing any token already held.
func (p *PasswordProvider) Init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.login(ctx)
}

func (p *PasswordProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token == "" {
		if err := p.login(ctx); err != nil {
			return "", err
		}
	}
	return p.token, nil
}

type loginResponse struct {
	JWT string `json:"jwt"`
}

// login must be called with mu held. 200 and 302 both carry the token.
func (p *PasswordProvider) login(ctx context.Context) error {
	form := url.Values{}
	form.Set("accountid", p.cred.AccountID)
	form.Set("username", p.cred.Username)
	form.Set("password", p.cred.Password)

	req, err := p.hc.NewRequest(ctx, http.MethodPost, "login3", httpx.WithForm(form))
	if err != nil {
		return fmt.Errorf("auth: password login: %w", err)
	}
	resp, err := p.hc.Do(req)
	if err != nil {
		return fmt.Errorf("auth: password login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusFound {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, httpx.DefaultMaxErrorBodyBytes))
		p.o.logger.Error("password login rejected",
			"account_id", p.cred.AccountID,
			"username", p.cred.Username,
			"status", resp.StatusCode,
			"body", strings.TrimSpace(string(b)),
		)
		return fmt.Errorf("%w: %s", ErrAuthorization, resp.Status)
	}

	var out loginResponse
	if err := httpx.DecodeJSON(resp.Body, &out); err != nil {
		return fmt.Errorf("auth: password login response: %w", err)
	}
	if out.JWT == "" {
		return fmt.Errorf("%w: login response has no jwt", ErrAuthorization)
	}
	p.token = "pwd:" + out.JWT
	return nil
}

func (p *PasswordProvider) Org(ctx context.Context) (*OrgInfo, error) {
	return p.o.orgs.lookup(ctx, p.cred.ID(), p.o.logger, func(context.Context) (*OrgInfo, error) {
		return &OrgInfo{User: &UserInfo{DisplayName: p.cred.Username}}, nil
	})
}

func (p *PasswordProvider) sealed() {}
