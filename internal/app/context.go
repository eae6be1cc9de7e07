package app

import "context"

type sessionKey struct{}

// WithSession binds model to ctx so transport hooks can reach it.
func WithSession(ctx context.Context, model *AuthModel) context.Context {
	return context.WithValue(ctx, sessionKey{}, model)
}

// SessionFromContext returns the model bound by WithSession, or nil.
func SessionFromContext(ctx context.Context) *AuthModel {
	m, _ := ctx.Value(sessionKey{}).(*AuthModel)
	return m
}
