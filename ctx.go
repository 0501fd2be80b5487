package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

// LocalsSessionKey is the request locals key holding the *SessionRecord
const LocalsSessionKey = "session"

// LocalsVisitorKey is the request locals key holding the visitor id
const LocalsVisitorKey = "visitor"

var sessionCtxKey = &contextKey{"session"}
var visitorCtxKey = &contextKey{"visitor"}

type contextKey struct {
	name string
}

// WithSession sets the Session Record in the given context
func WithSession(ctx context.Context, record *SessionRecord) context.Context {
	return context.WithValue(ctx, sessionCtxKey, record)
}

// SessionFromContext finds the Session Record in the context
func SessionFromContext(ctx context.Context) (*SessionRecord, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(*SessionRecord)
	return raw, ok && raw != nil
}

// WithVisitor sets the visitor id in the given context
func WithVisitor(ctx context.Context, visitor string) context.Context {
	return context.WithValue(ctx, visitorCtxKey, visitor)
}

// VisitorFromContext finds the visitor id in the context
func VisitorFromContext(ctx context.Context) (string, bool) {
	raw, ok := ctx.Value(visitorCtxKey).(string)
	return raw, ok && raw != ""
}

// GetSession extracts the Session Record placed by the guard
func GetSession(c router.Context) (*SessionRecord, error) {
	raw := c.Locals(LocalsSessionKey)
	if raw == nil {
		return nil, ErrNoSession
	}
	record, ok := raw.(*SessionRecord)
	if !ok || record == nil {
		return nil, ErrCorruptSession
	}
	return record, nil
}

func setSessionLocals(c router.Context, visitor string, record *SessionRecord) {
	c.Locals(LocalsSessionKey, record)
	c.Locals(LocalsVisitorKey, visitor)
	c.SetContext(WithSession(WithVisitor(c.Context(), visitor), record))
}
