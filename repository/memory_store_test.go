package repository

import (
	"context"
	"testing"
	"time"

	"github.com/coachpro/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore(ctx, time.Hour)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Load(ctx, "v1")
	assert.ErrorIs(t, err, auth.ErrEnvelopeNotFound)

	require.NoError(t, store.Store(ctx, "v1", []byte(`{"auth_token":"a"}`), time.Second))
	blob, err := store.Load(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, `{"auth_token":"a"}`, string(blob))
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Delete(ctx, "v1"))
	require.NoError(t, store.Delete(ctx, "v1"))
	assert.Equal(t, 0, store.Len())

	assert.ErrorIs(t, store.Store(ctx, "", nil, 0), auth.ErrMissingVisitor)
}

func TestMemoryConfig(t *testing.T) {
	cfg := MemoryConfig(10 * time.Second)
	assert.Equal(t, 10*time.Second, cfg.CleanWindow)
	assert.Equal(t, 64, cfg.Shards)

	cfg = MemoryConfig(12 * time.Hour)
	assert.Equal(t, time.Minute, cfg.CleanWindow)
}
