package repository

import (
	"context"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/coachpro/go-auth"
)

// MemoryStore keeps envelopes in process memory. Every entry lives for the
// cache life window, refreshed on each write; per call TTLs are ignored.
type MemoryStore struct {
	cache *bigcache.BigCache
}

// MemoryConfig returns a bigcache config sized for session envelopes
func MemoryConfig(lifeWindow time.Duration) bigcache.Config {
	cleanWindow := time.Minute
	if lifeWindow > 0 && lifeWindow < cleanWindow {
		cleanWindow = lifeWindow
	}
	return bigcache.Config{
		Shards:             64,
		LifeWindow:         lifeWindow,
		CleanWindow:        cleanWindow,
		MaxEntriesInWindow: 10000,
		MaxEntrySize:       1024,
		StatsEnabled:       false,
		Verbose:            false,
		HardMaxCacheSize:   0,
		Logger:             bigcache.DefaultLogger(),
	}
}

// NewMemoryStore creates a store whose entries live for lifeWindow
func NewMemoryStore(ctx context.Context, lifeWindow time.Duration) (*MemoryStore, error) {
	cache, err := bigcache.New(ctx, MemoryConfig(lifeWindow))
	if err != nil {
		return nil, err
	}
	return &MemoryStore{cache: cache}, nil
}

var _ auth.ScopeBackend = (*MemoryStore)(nil)

// Load implements auth.ScopeBackend
func (s *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, auth.ErrMissingVisitor
	}
	val, err := s.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, auth.ErrEnvelopeNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Store implements auth.ScopeBackend
func (s *MemoryStore) Store(_ context.Context, key string, blob []byte, _ time.Duration) error {
	if key == "" {
		return auth.ErrMissingVisitor
	}
	return s.cache.Set(key, blob)
}

// Delete implements auth.ScopeBackend
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return auth.ErrMissingVisitor
	}
	err := s.cache.Delete(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

// Len is the number of stored envelopes
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

// Close releases the cache
func (s *MemoryStore) Close() error {
	return s.cache.Close()
}
