package repository

import (
	"context"
	"errors"
	"time"

	"github.com/coachpro/go-auth"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces envelope keys
const DefaultRedisPrefix = "coachpro:envelope:"

// RedisStore keeps envelopes in Redis with a key TTL
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a store on client. An empty prefix uses DefaultRedisPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

var _ auth.ScopeBackend = (*RedisStore)(nil)

// Ping checks the connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Load implements auth.ScopeBackend
func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, auth.ErrMissingVisitor
	}
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, auth.ErrEnvelopeNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Store implements auth.ScopeBackend. A zero ttl keeps the key until deleted.
func (s *RedisStore) Store(ctx context.Context, key string, blob []byte, ttl time.Duration) error {
	if key == "" {
		return auth.ErrMissingVisitor
	}
	return s.client.Set(ctx, s.prefix+key, blob, ttl).Err()
}

// Delete implements auth.ScopeBackend
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return auth.ErrMissingVisitor
	}
	return s.client.Del(ctx, s.prefix+key).Err()
}
