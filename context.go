package shiftAuth

import (
	"context"
	"sync"

	"github.com/MrEthical07/shiftAuth/permission"
)

type clientIPContextKey struct{}
type requestScopeContextKey struct{}

// requestScope caches what the authorization gate resolved for one request.
// Each field is assigned at most once.
type requestScope struct {
	identityMu sync.Mutex
	resolved   bool
	userID     int64
	scheme     AuthScheme

	roleMu       sync.Mutex
	roleResolved bool
	role         permission.Role
}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses it
// for per-IP login throttling and in auth logs.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

// WithRequestScope attaches an empty per-request authentication cache to ctx.
// Within that scope, [Engine.Authorize] and [Engine.ResolveRole] resolve at
// most once no matter how many guards run. Calling it on a context that
// already carries a scope returns ctx unchanged.
func WithRequestScope(ctx context.Context) context.Context {
	if scopeFromContext(ctx) != nil {
		return ctx
	}
	return context.WithValue(ctx, requestScopeContextKey{}, &requestScope{})
}

func scopeFromContext(ctx context.Context) *requestScope {
	if ctx == nil {
		return nil
	}
	scope, _ := ctx.Value(requestScopeContextKey{}).(*requestScope)
	return scope
}

// UserIDFromContext returns the user id resolved for the current request.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	scope := scopeFromContext(ctx)
	if scope == nil {
		return 0, false
	}
	scope.identityMu.Lock()
	defer scope.identityMu.Unlock()
	return scope.userID, scope.resolved
}

// AuthSchemeFromContext returns the scheme that authenticated the current request.
func AuthSchemeFromContext(ctx context.Context) (AuthScheme, bool) {
	scope := scopeFromContext(ctx)
	if scope == nil {
		return "", false
	}
	scope.identityMu.Lock()
	defer scope.identityMu.Unlock()
	return scope.scheme, scope.resolved
}

// RoleFromContext returns the role resolved for the current request, if a
// role-gated guard has already run.
func RoleFromContext(ctx context.Context) (permission.Role, bool) {
	scope := scopeFromContext(ctx)
	if scope == nil {
		return "", false
	}
	scope.roleMu.Lock()
	defer scope.roleMu.Unlock()
	return scope.role, scope.roleResolved
}
