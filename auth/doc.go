// Package auth turns a credential into bearer tokens for the run service.
//
// Three schemes exist and no others: keys (an id key signed with a secret
// key, derived locally), password (a one-time login exchange) and delegated
// (tokens from an external identity broker with silent refresh). New picks the
// provider for a Credential; credentials can be read from a YAML file with
// ReadCredentialFile.
//
// Org results can be cached per credential through an OrgCache backed by
// MemoryStore, FileStore or the PostgreSQL store in auth/pgstore.
package auth
