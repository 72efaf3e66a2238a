package utils

import (
	"context"
	"time"
)

type contextKey string

const (
	ContextUserIDKey  contextKey = "userID"
	ContextSessionKey contextKey = "session"
)

// SessionData is what the session middleware knows about the caller.
type SessionData struct {
	SessionID string
	UserID    string
	ExpiresAt time.Time
	EditMode  bool
}

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID := ctx.Value(ContextUserIDKey)
	userIDStr, ok := userID.(string)
	return userIDStr, ok
}

func GetSessionFromContext(ctx context.Context) (SessionData, bool) {
	session, ok := ctx.Value(ContextSessionKey).(SessionData)
	return session, ok
}

// WithSession stores the session and its user id on the context.
func WithSession(ctx context.Context, session SessionData) context.Context {
	ctx = context.WithValue(ctx, ContextUserIDKey, session.UserID)
	return context.WithValue(ctx, ContextSessionKey, session)
}
