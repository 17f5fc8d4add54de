package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

type Scheme string

const (
	SchemeKeys      Scheme = "keys"
	SchemePassword  Scheme = "password"
	SchemeDelegated Scheme = "delegated"
)

var (
	// ErrAuthorization is returned when the service rejects a credential exchange.
	ErrAuthorization = errors.New("auth: authorisation failed")
	// ErrNoIdentity is returned when the delegated flow yields no token.
	ErrNoIdentity = errors.New("auth: no identity available")
)

// Provider produces bearer tokens for one credential. The set of
// implementations is closed: KeyProvider, PasswordProvider and
// DelegatedProvider.
type Provider interface {
	Scheme() Scheme
	// Init performs any setup the scheme needs; it may reach the network.
	Init(ctx context.Context) error
	// Token returns a bearer token, refreshing it first if the scheme tracks expiry.
	Token(ctx context.Context) (string, error)
	// Org returns display details for the caller. Missing branding never fails it.
	Org(ctx context.Context) (*OrgInfo, error)

	sealed()
}

type UserInfo struct {
	DisplayName string `json:"displayName" yaml:"display_name"`
	Mail        string `json:"mail,omitempty" yaml:"mail,omitempty"`
}

type Organization struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	DisplayName string `json:"displayName,omitempty" yaml:"display_name,omitempty"`
}

type OrgInfo struct {
	User        *UserInfo     `json:"user,omitempty" yaml:"user,omitempty"`
	Org         *Organization `json:"org,omitempty" yaml:"org,omitempty"`
	LogoDataURL string        `json:"logoDataUrl,omitempty" yaml:"logo_data_url,omitempty"`
}

// Token is a bearer value with optional expiry tracking. A zero Lifetime means
// the token does not expire as far as the client knows.
type Token struct {
	Value    string
	IssuedAt time.Time
	Lifetime time.Duration
}

func (t Token) Expiry() time.Time {
	if t.Lifetime <= 0 {
		return time.Time{}
	}
	return t.IssuedAt.Add(t.Lifetime)
}

func (t Token) Valid(now time.Time) bool {
	if t.Value == "" {
		return false
	}
	if t.Lifetime <= 0 {
		return true
	}
	return now.Before(t.Expiry())
}

const (
	DefaultLoginEndpoint = "https://api.smokecloud.io/v3"
	DefaultRefreshSkew   = 60 * time.Second
)

type Option func(*options)

type options struct {
	logger        *slog.Logger
	orgs          *OrgCache
	httpClient    *http.Client
	transport     http.RoundTripper
	loginEndpoint string
	broker        IdentityBroker
	directory     Directory
	refreshSkew   time.Duration
	now           func() time.Time
}

func defaultOptions() options {
	return options{
		loginEndpoint: DefaultLoginEndpoint,
		refreshSkew:   DefaultRefreshSkew,
		now:           time.Now,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithOrgCache makes Org consult and fill the cache, keyed by credential ID.
func WithOrgCache(c *OrgCache) Option {
	return func(o *options) { o.orgs = c }
}

// WithHTTPClient is used by the password login call.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithLoginEndpoint sets the versioned API root the password scheme logs in against.
func WithLoginEndpoint(u string) Option {
	return func(o *options) { o.loginEndpoint = u }
}

// WithIdentityBroker supplies the delegated scheme's identity collaborator.
func WithIdentityBroker(b IdentityBroker) Option {
	return func(o *options) { o.broker = b }
}

// WithDirectory supplies the user and organization lookup for the delegated scheme.
func WithDirectory(d Directory) Option {
	return func(o *options) { o.directory = d }
}

// WithRefreshSkew refreshes delegated tokens this long before they expire.
func WithRefreshSkew(d time.Duration) Option {
	return func(o *options) { o.refreshSkew = d }
}

// New builds the provider matching the credential's scheme.
func New(cred Credential, opts ...Option) (Provider, error) {
	switch c := cred.(type) {
	case KeyCredential:
		return NewKeyProvider(c, opts...)
	case PasswordCredential:
		return NewPasswordProvider(c, opts...)
	case DelegatedCredential:
		return NewDelegatedProvider(c, opts...)
	case nil:
		return nil, errors.New("auth: nil credential")
	default:
		return nil, fmt.Errorf("auth: unsupported credential %T", cred)
	}
}
