// Package pgstore is an auth.OrgStore on PostgreSQL, for deployments where
// several processes share one org cache.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/auth"
)

const DefaultTable = "smokecloud_org_info"

type Store struct {
	pool  *pgxpool.Pool
	table string
	owned bool
}

// Open connects and pings. The returned store owns the pool.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, table: DefaultTable, owned: true}, nil
}

// New wraps a pool the caller keeps ownership of.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, table: DefaultTable}
}

// WithTable returns a copy of the store using another table name. The name is
// quoted as an identifier.
func (s *Store) WithTable(name string) *Store {
	cp := *s
	cp.table = name
	cp.owned = false
	return &cp
}

func (s *Store) Close() {
	if s.owned {
		s.pool.Close()
	}
}

func (s *Store) ident() string {
	return pgx.Identifier{s.table}.Sanitize()
}

// Migrate creates the table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+s.ident()+` (
		  credential_id text PRIMARY KEY,
		  info jsonb NOT NULL,
		  updated_at timestamptz NOT NULL DEFAULT now()
		)
	`)
	return err
}

func (s *Store) Get(ctx context.Context, key string) (*auth.OrgInfo, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT info FROM `+s.ident()+` WHERE credential_id=$1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var info auth.OrgInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, false, fmt.Errorf("decode org info %q: %w", key, err)
	}
	return &info, true, nil
}

func (s *Store) Put(ctx context.Context, key string, info *auth.OrgInfo) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO `+s.ident()+` (credential_id, info)
		VALUES ($1, $2::jsonb)
		ON CONFLICT (credential_id) DO UPDATE SET
		  info=EXCLUDED.info,
		  updated_at=now()
	`, key, raw)
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM `+s.ident()+` WHERE credential_id=$1`, key)
	return err
}

var _ auth.OrgStore = (*Store)(nil)
