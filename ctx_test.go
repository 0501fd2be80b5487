package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionContext(t *testing.T) {
	ctx := context.Background()

	_, ok := SessionFromContext(ctx)
	assert.False(t, ok)
	_, ok = VisitorFromContext(ctx)
	assert.False(t, ok)

	record := sampleRecord()
	ctx = WithVisitor(WithSession(ctx, &record), "v1")

	got, ok := SessionFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u-42", got.ID)

	visitor, ok := VisitorFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "v1", visitor)

	_, ok = SessionFromContext(WithSession(context.Background(), nil))
	assert.False(t, ok)
}

func TestGetSession(t *testing.T) {
	record := sampleRecord()

	app := newTestRouter(func(r router.Router[*fiber.App]) {
		r.Get("/none", func(c router.Context) error {
			_, err := GetSession(c)
			assert.ErrorIs(t, err, ErrNoSession)
			return nil
		})
		r.Get("/wrong", func(c router.Context) error {
			c.Locals(LocalsSessionKey, "not a record")
			_, err := GetSession(c)
			assert.ErrorIs(t, err, ErrCorruptSession)
			return nil
		})
		r.Get("/set", func(c router.Context) error {
			setSessionLocals(c, "v1", &record)

			got, err := GetSession(c)
			require.NoError(t, err)
			assert.Same(t, &record, got)
			assert.Equal(t, "v1", c.Locals(LocalsVisitorKey))

			fromCtx, ok := SessionFromContext(c.Context())
			assert.True(t, ok)
			assert.Same(t, &record, fromCtx)
			visitor, ok := VisitorFromContext(c.Context())
			assert.True(t, ok)
			assert.Equal(t, "v1", visitor)
			return nil
		})
	})

	for _, path := range []string{"/none", "/wrong", "/set"} {
		_, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		require.NoError(t, err)
	}
}
