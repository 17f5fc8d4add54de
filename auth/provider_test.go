package auth

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyProvider_TokenIsDeterministic(t *testing.T) {
	p, err := NewKeyProvider(KeyCredential{IDKey: "aWQ=", SecretKey: "c2VjcmV0"})
	require.NoError(t, err)

	const want = "aWQ=:DaW0BSq96wu9EZl4xJR5iTBZ1RoZUipw5GciWabXILU="
	for i := 0; i < 3; i++ {
		got, err := p.Token(context.Background())
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	q, err := NewKeyProvider(KeyCredential{IDKey: "aWQ=", SecretKey: "c2VjcmV0"})
	require.NoError(t, err)
	got, _ := q.Token(context.Background())
	assert.Equal(t, want, got)
}

func TestKeyProvider_MalformedBase64(t *testing.T) {
	_, err := NewKeyProvider(KeyCredential{IDKey: "not base64!", SecretKey: "c2VjcmV0"})
	require.Error(t, err)
	_, err = NewKeyProvider(KeyCredential{IDKey: "aWQ=", SecretKey: "%%%"})
	require.Error(t, err)
}

func TestKeyProvider_Org(t *testing.T) {
	p, err := NewKeyProvider(KeyCredential{IDKey: "aWQ=", SecretKey: "c2VjcmV0"})
	require.NoError(t, err)
	info, err := p.Org(context.Background())
	require.NoError(t, err)
	require.Equal(t, "aWQ=", info.User.DisplayName)
}

func TestPasswordProvider_LoginOnce(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/v3/login3" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		if r.PostForm.Get("accountid") != "acc-1" || r.PostForm.Get("username") != "alice" || r.PostForm.Get("password") != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Location", "/somewhere")
		w.WriteHeader(http.StatusFound)
		_, _ = io.WriteString(w, `{"jwt":"abc.def"}`)
	}))
	t.Cleanup(srv.Close)

	p, err := NewPasswordProvider(PasswordCredential{AccountID: "acc-1", Username: "alice", Password: "pw"},
		WithLoginEndpoint(srv.URL+"/v3"))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		tok, err := p.Token(context.Background())
		require.NoError(t, err)
		require.Equal(t, "pwd:abc.def", tok)
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))

	info, err := p.Org(context.Background())
	require.NoError(t, err)
	require.Equal(t, "alice", info.User.DisplayName)
}

func TestPasswordProvider_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "bad password")
	}))
	t.Cleanup(srv.Close)

	var logs bytes.Buffer
	p, err := NewPasswordProvider(PasswordCredential{AccountID: "acc-1", Username: "alice", Password: "nope"},
		WithLoginEndpoint(srv.URL+"/v3"),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)
	require.NoError(t, err)

	_, err = p.Token(context.Background())
	require.ErrorIs(t, err, ErrAuthorization)
	require.Contains(t, logs.String(), "bad password")
}

type fakeBroker struct {
	account     *Account
	silentErr   error
	silent      int
	interactive int
	lifetime    time.Duration
}

func (b *fakeBroker) CachedAccount(context.Context) (*Account, error) { return b.account, nil }

func (b *fakeBroker) AcquireSilent(_ context.Context, acct Account) (Token, error) {
	b.silent++
	if b.silentErr != nil {
		return Token{}, b.silentErr
	}
	return Token{Value: "silent-" + acct.Username, Lifetime: b.lifetime}, nil
}

func (b *fakeBroker) AcquireInteractive(context.Context) (Token, error) {
	b.interactive++
	return Token{Value: "interactive", Lifetime: b.lifetime}, nil
}

func withClock(now *time.Time) Option {
	return func(o *options) { o.now = func() time.Time { return *now } }
}

func TestDelegatedProvider_RefreshPolicy(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no cached account goes interactive", func(t *testing.T) {
		b := &fakeBroker{lifetime: time.Hour}
		p, err := NewDelegatedProvider(DelegatedCredential{ClientID: "c"}, WithIdentityBroker(b), withClock(&now))
		require.NoError(t, err)
		tok, err := p.Token(context.Background())
		require.NoError(t, err)
		require.Equal(t, "interactive", tok)
		require.Equal(t, 0, b.silent)
	})

	t.Run("silent refresh when cached", func(t *testing.T) {
		b := &fakeBroker{account: &Account{Username: "bob"}, lifetime: time.Hour}
		p, err := NewDelegatedProvider(DelegatedCredential{ClientID: "c"}, WithIdentityBroker(b), withClock(&now))
		require.NoError(t, err)
		tok, err := p.Token(context.Background())
		require.NoError(t, err)
		require.Equal(t, "silent-bob", tok)
		require.Equal(t, 0, b.interactive)
	})

	t.Run("silent failure falls back", func(t *testing.T) {
		b := &fakeBroker{account: &Account{Username: "bob"}, silentErr: errors.New("expired refresh token"), lifetime: time.Hour}
		p, err := NewDelegatedProvider(DelegatedCredential{ClientID: "c"}, WithIdentityBroker(b), withClock(&now))
		require.NoError(t, err)
		tok, err := p.Token(context.Background())
		require.NoError(t, err)
		require.Equal(t, "interactive", tok)
		require.Equal(t, 1, b.silent)
	})

	t.Run("reuses until within skew of expiry", func(t *testing.T) {
		clock := now
		b := &fakeBroker{account: &Account{Username: "bob"}, lifetime: 10 * time.Minute}
		p, err := NewDelegatedProvider(DelegatedCredential{ClientID: "c"}, WithIdentityBroker(b), withClock(&clock))
		require.NoError(t, err)

		_, err = p.Token(context.Background())
		require.NoError(t, err)
		clock = clock.Add(8 * time.Minute)
		_, err = p.Token(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, b.silent)

		clock = clock.Add(90 * time.Second)
		_, err = p.Token(context.Background())
		require.NoError(t, err)
		require.Equal(t, 2, b.silent)
		require.Equal(t, clock, p.Current().IssuedAt)
	})
}

func TestNewDelegatedProvider_RequiresBroker(t *testing.T) {
	_, err := New(DelegatedCredential{ClientID: "c"})
	require.Error(t, err)
}

type fakeDirectory struct {
	logoErr error
}

func (fakeDirectory) Me(context.Context, string) (UserInfo, error) {
	return UserInfo{DisplayName: "Bob", Mail: "bob@example.com"}, nil
}

func (fakeDirectory) Organization(context.Context, string) (Organization, error) {
	return Organization{ID: "o1", DisplayName: "Acme"}, nil
}

func (d fakeDirectory) SquareLogo(context.Context, string, string) ([]byte, string, error) {
	if d.logoErr != nil {
		return nil, "", d.logoErr
	}
	return []byte{0x89, 'P', 'N', 'G'}, "image/png", nil
}

func TestDelegatedProvider_Org(t *testing.T) {
	b := &fakeBroker{lifetime: time.Hour}

	p, err := NewDelegatedProvider(DelegatedCredential{ClientID: "c"},
		WithIdentityBroker(b), WithDirectory(fakeDirectory{}))
	require.NoError(t, err)
	info, err := p.Org(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Acme", info.Org.DisplayName)
	require.Equal(t, "data:image/png;base64,iVBORw==", info.LogoDataURL)

	var logs bytes.Buffer
	p, err = NewDelegatedProvider(DelegatedCredential{ClientID: "c"},
		WithIdentityBroker(b),
		WithDirectory(fakeDirectory{logoErr: errors.New("404")}),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)
	require.NoError(t, err)
	info, err = p.Org(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bob", info.User.DisplayName)
	require.Empty(t, info.LogoDataURL)
	require.Contains(t, logs.String(), "no logo for organization")
}

type countingStore struct {
	*MemoryStore
	gets, puts int
	failGet    bool
}

func (s *countingStore) Get(ctx context.Context, key string) (*OrgInfo, bool, error) {
	s.gets++
	if s.failGet {
		return nil, false, errors.New("store offline")
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *countingStore) Put(ctx context.Context, key string, info *OrgInfo) error {
	s.puts++
	return s.MemoryStore.Put(ctx, key, info)
}

func TestOrgCache(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	p, err := NewKeyProvider(KeyCredential{IDKey: "aWQ=", SecretKey: "c2VjcmV0"}, WithOrgCache(NewOrgCache(store)))
	require.NoError(t, err)

	first, err := p.Org(context.Background())
	require.NoError(t, err)
	second, err := p.Org(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 2, store.gets)
	require.Equal(t, 1, store.puts)

	store.failGet = true
	third, err := p.Org(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, third)
}

// getPutStore hides the Delete method of the store it wraps.
type getPutStore struct{ s *MemoryStore }

func (g getPutStore) Get(ctx context.Context, key string) (*OrgInfo, bool, error) {
	return g.s.Get(ctx, key)
}

func (g getPutStore) Put(ctx context.Context, key string, info *OrgInfo) error {
	return g.s.Put(ctx, key, info)
}

func TestOrgCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	cred := KeyCredential{IDKey: "aWQ=", SecretKey: "c2VjcmV0"}

	store := &countingStore{MemoryStore: NewMemoryStore()}
	cache := NewOrgCache(store)
	p, err := NewKeyProvider(cred, WithOrgCache(cache))
	require.NoError(t, err)

	_, err = p.Org(ctx)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, cred.ID()))
	_, ok, err := store.MemoryStore.Get(ctx, cred.ID())
	require.NoError(t, err)
	require.False(t, ok)

	_, err = p.Org(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, store.puts)

	mem := NewMemoryStore()
	require.NoError(t, mem.Put(ctx, "k", &OrgInfo{}))
	require.NoError(t, NewOrgCache(getPutStore{s: mem}).Invalidate(ctx, "k"))
	_, ok, err = mem.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	var none *OrgCache
	require.NoError(t, none.Invalidate(ctx, "k"))
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "orgs.yaml")
	s := NewFileStore(path)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "keys.a")
	require.NoError(t, err)
	require.False(t, ok)

	in := &OrgInfo{User: &UserInfo{DisplayName: "alice"}, Org: &Organization{ID: "o1"}, LogoDataURL: "data:image/png;base64,AA=="}
	require.NoError(t, s.Put(ctx, "keys.a", in))
	require.NoError(t, s.Put(ctx, "password.acc.bob", &OrgInfo{User: &UserInfo{DisplayName: "bob"}}))

	got, ok, err := NewFileStore(path).Get(ctx, "keys.a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in, got)

	require.NoError(t, s.Delete(ctx, "keys.a"))
	_, ok, err = s.Get(ctx, "keys.a")
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = s.Get(ctx, "password.acc.bob")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestNew_Dispatch(t *testing.T) {
	p, err := New(KeyCredential{IDKey: "aWQ=", SecretKey: "c2VjcmV0"})
	require.NoError(t, err)
	require.Equal(t, SchemeKeys, p.Scheme())

	p, err = New(PasswordCredential{AccountID: "a", Username: "u"})
	require.NoError(t, err)
	require.Equal(t, SchemePassword, p.Scheme())

	p, err = New(DelegatedCredential{ClientID: "c"}, WithIdentityBroker(&fakeBroker{}))
	require.NoError(t, err)
	require.Equal(t, SchemeDelegated, p.Scheme())

	_, err = New(nil)
	require.Error(t, err)
}

func TestToken_Valid(t *testing.T) {
	now := time.Now()
	require.False(t, Token{}.Valid(now))
	require.True(t, Token{Value: "x"}.Valid(now.Add(1000*time.Hour)))
	tok := Token{Value: "x", IssuedAt: now, Lifetime: time.Minute}
	require.True(t, tok.Valid(now.Add(59*time.Second)))
	require.False(t, tok.Valid(now.Add(time.Minute)))
}
