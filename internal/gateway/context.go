package gateway

import (
	"context"

	"learningfun/internal/models"
)

// AuthSession identifies the signed-in caller of a gateway operation.
type AuthSession struct {
	UserID    int64
	SessionID string
	UserType  models.UserType
}

type authSessionKey struct{}

// WithAuthSession returns a context carrying s.
func WithAuthSession(ctx context.Context, s AuthSession) context.Context {
	return context.WithValue(ctx, authSessionKey{}, s)
}

// AuthSessionFrom returns the session stored in ctx, if any.
func AuthSessionFrom(ctx context.Context) (AuthSession, bool) {
	s, ok := ctx.Value(authSessionKey{}).(AuthSession)
	if !ok || s.UserID == 0 {
		return AuthSession{}, false
	}
	return s, true
}

func caller(ctx context.Context) (AuthSession, error) {
	s, ok := AuthSessionFrom(ctx)
	if !ok {
		return AuthSession{}, ErrNotAuthenticated
	}
	return s, nil
}
