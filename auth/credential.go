package auth

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Credential is one of KeyCredential, PasswordCredential or DelegatedCredential.
type Credential interface {
	Scheme() Scheme
	// ID is stable for the same credential and is used as a cache key.
	ID() string

	credential()
}

type KeyCredential struct {
	IDKey     string
	SecretKey string
	AccountID string
}

func (KeyCredential) Scheme() Scheme { return SchemeKeys }
func (c KeyCredential) ID() string   { return "keys." + c.IDKey }
func (KeyCredential) credential()    {}

type PasswordCredential struct {
	AccountID string
	Username  string
	Password  string
}

func (PasswordCredential) Scheme() Scheme { return SchemePassword }
func (c PasswordCredential) ID() string   { return "password." + c.AccountID + "." + c.Username }
func (PasswordCredential) credential()    {}

type DelegatedCredential struct {
	ClientID  string
	AccountID string
}

func (DelegatedCredential) Scheme() Scheme { return SchemeDelegated }
func (c DelegatedCredential) ID() string   { return "delegated." + c.ClientID + "." + c.AccountID }
func (DelegatedCredential) credential()    {}

// AccountOf returns the account a credential is bound to, if it names one.
func AccountOf(c Credential) string {
	switch c := c.(type) {
	case KeyCredential:
		return c.AccountID
	case PasswordCredential:
		return c.AccountID
	case DelegatedCredential:
		return c.AccountID
	default:
		return ""
	}
}

// credentialFile is the on-disk shape. customerid is the older name of
// account_id for key credentials.
type credentialFile struct {
	Type       Scheme `yaml:"type"`
	AccountID  string `yaml:"account_id,omitempty"`
	CustomerID string `yaml:"customerid,omitempty"`
	IDKey      string `yaml:"id_key,omitempty"`
	SecretKey  string `yaml:"secret_key,omitempty"`
	Username   string `yaml:"username,omitempty"`
	Password   string `yaml:"password,omitempty"`
	ClientID   string `yaml:"client_id,omitempty"`
}

// ParseCredential decodes a YAML credential document.
func ParseCredential(b []byte) (Credential, error) {
	var f credentialFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("auth: parse credential: %w", err)
	}
	account := f.AccountID
	if account == "" {
		account = f.CustomerID
	}
	switch Scheme(strings.ToLower(strings.TrimSpace(string(f.Type)))) {
	case SchemeKeys:
		if f.IDKey == "" || f.SecretKey == "" {
			return nil, fmt.Errorf("auth: keys credential needs id_key and secret_key")
		}
		return KeyCredential{IDKey: f.IDKey, SecretKey: f.SecretKey, AccountID: account}, nil
	case SchemePassword:
		if account == "" || f.Username == "" {
			return nil, fmt.Errorf("auth: password credential needs account_id and username")
		}
		return PasswordCredential{AccountID: account, Username: f.Username, Password: f.Password}, nil
	case SchemeDelegated:
		if f.ClientID == "" {
			return nil, fmt.Errorf("auth: delegated credential needs client_id")
		}
		return DelegatedCredential{ClientID: f.ClientID, AccountID: account}, nil
	case "":
		return nil, fmt.Errorf("auth: credential has no type")
	default:
		return nil, fmt.Errorf("auth: unrecognised credential type %q", f.Type)
	}
}

func ReadCredentialFile(path string) (Credential, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("auth: read credential file: %w", err)
	}
	return ParseCredential(b)
}

func MarshalCredential(c Credential) ([]byte, error) {
	var f credentialFile
	switch c := c.(type) {
	case KeyCredential:
		f = credentialFile{Type: SchemeKeys, AccountID: c.AccountID, IDKey: c.IDKey, SecretKey: c.SecretKey}
	case PasswordCredential:
		f = credentialFile{Type: SchemePassword, AccountID: c.AccountID, Username: c.Username, Password: c.Password}
	case DelegatedCredential:
		f = credentialFile{Type: SchemeDelegated, AccountID: c.AccountID, ClientID: c.ClientID}
	default:
		return nil, fmt.Errorf("auth: unsupported credential %T", c)
	}
	return yaml.Marshal(f)
}
