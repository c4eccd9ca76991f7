package auth

import "context"

type ctxSessionKey struct{}

// ContextWithSession embeds the authenticated session into ctx
func ContextWithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, ctxSessionKey{}, session)
}

// SessionFromContext returns the session set by the route guard, or nil
func SessionFromContext(ctx context.Context) *Session {
	session, _ := ctx.Value(ctxSessionKey{}).(*Session)
	return session
}
