package http

import (
	"context"

	"github.com/example/mediation-platform/internal/application"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	caseIDContextKey    contextKey = "case_id"
	sessionIDContextKey contextKey = "session_id"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithCaseID injects the case identifier resolved from the request path.
func ContextWithCaseID(ctx context.Context, caseID int64) context.Context {
	return context.WithValue(ctx, caseIDContextKey, caseID)
}

// CaseIDFromContext extracts a case identifier previously associated with the context.
func CaseIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(caseIDContextKey).(int64)
	return id, ok
}

// ContextWithSessionID injects the session identifier resolved from the request path.
func ContextWithSessionID(ctx context.Context, sessionID int64) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, sessionID)
}

// SessionIDFromContext extracts a session identifier previously associated with the context.
func SessionIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(sessionIDContextKey).(int64)
	return id, ok
}
