package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// KeyProvider signs the id key with the secret key. The token is derived once
// at construction and never touches the network.
type KeyProvider struct {
	cred  KeyCredential
	idKey string
	token string
	o     options
}

func NewKeyProvider(cred KeyCredential, opts ...Option) (*KeyProvider, error) {
	id, err := base64.StdEncoding.DecodeString(strings.TrimSpace(cred.IDKey))
	if err != nil {
		return nil, fmt.Errorf("auth: id key is not valid base64: %w", err)
	}
	secret, err := base64.StdEncoding.DecodeString(strings.TrimSpace(cred.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("auth: secret key is not valid base64: %w", err)
	}
	return &KeyProvider{
		cred:  cred,
		idKey: base64.StdEncoding.EncodeToString(id),
		token: KeyToken(id, secret),
		o:     buildOptions(opts),
	}, nil
}

// KeyToken is base64(id) ":" base64(HMAC-SHA256(secret, id)).
func KeyToken(id, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(id)
	return base64.StdEncoding.EncodeToString(id) + ":" + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (p *KeyProvider) Scheme() Scheme { return SchemeKeys }

func (p *KeyProvider) Credential() KeyCredential { return p.cred }

func (p *KeyProvider) Init(context.Context) error { return nil }

func (p *KeyProvider) Token(context.Context) (string, error) { return p.token, nil }

func (p *KeyProvider) Org(ctx context.Context) (*OrgInfo, error) {
	return p.o.orgs.lookup(ctx, p.cred.ID(), p.o.logger, func(context.Context) (*OrgInfo, error) {
		return &OrgInfo{User: &UserInfo{DisplayName: p.idKey}}, nil
	})
}

func (p *KeyProvider) sealed() {}
