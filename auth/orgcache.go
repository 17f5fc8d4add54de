package auth

import (
	"context"
	"log/slog"
	"sync"
)

// OrgStore persists OrgInfo by credential ID. Get reports ok=false on a miss.
type OrgStore interface {
	Get(ctx context.Context, key string) (info *OrgInfo, ok bool, err error)
	Put(ctx context.Context, key string, info *OrgInfo) error
}

// OrgCache fronts Org lookups with a store. Store failures are logged and
// fall back to a live lookup; they never fail the call.
type OrgCache struct {
	store OrgStore
}

func NewOrgCache(store OrgStore) *OrgCache {
	if store == nil {
		store = NewMemoryStore()
	}
	return &OrgCache{store: store}
}

// lookup is safe on a nil cache, which always fetches.
func (c *OrgCache) lookup(ctx context.Context, key string, logger *slog.Logger, fetch func(context.Context) (*OrgInfo, error)) (*OrgInfo, error) {
	if c == nil {
		return fetch(ctx)
	}
	info, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		logger.Warn("org cache read failed", "key", key, "err", err)
	case ok:
		return info, nil
	}

	info, err = fetch(ctx)
	if err != nil || info == nil {
		return info, err
	}
	if err := c.store.Put(ctx, key, info); err != nil {
		logger.Warn("org cache write failed", "key", key, "err", err)
	}
	return info, nil
}

// Invalidate removes key so the next lookup refetches. It is a no-op for
// stores without a Delete method.
func (c *OrgCache) Invalidate(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	if d, ok := c.store.(interface {
		Delete(ctx context.Context, key string) error
	}); ok {
		return d.Delete(ctx, key)
	}
	return nil
}

type MemoryStore struct {
	mu sync.RWMutex
	m  map[string]OrgInfo
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]OrgInfo)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*OrgInfo, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	return &v, true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, info *OrgInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = *info
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
