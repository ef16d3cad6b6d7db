package api

import (
	"context"

	"morakib/core"
)

// contextKey is a private type to prevent context key collisions across
// packages: only this package can create keys, so authenticated identity
// can't be injected from outside.
type contextKey string

const (
	// ContextKeySession stores the authenticated session (*core.Session)
	ContextKeySession contextKey = "session"

	// ContextKeyRequestID stores the request identifier for log correlation
	ContextKeyRequestID contextKey = "request_id"
)

// GetSession extracts the authenticated session from the context.
func GetSession(ctx context.Context) (*core.Session, bool) {
	session, ok := ctx.Value(ContextKeySession).(*core.Session)
	return session, ok
}

// WithSession attaches an authenticated session to the context.
func WithSession(ctx context.Context, session *core.Session) context.Context {
	return context.WithValue(ctx, ContextKeySession, session)
}

// GetRequestID extracts the request ID from the context, or "unknown".
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyRequestID).(string); ok && id != "" {
		return id
	}
	return "unknown"
}

// WithRequestID attaches a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}
