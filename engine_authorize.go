package shiftAuth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/shiftAuth/internal"
	"github.com/MrEthical07/shiftAuth/permission"
)

// Guard is a pre-handler check bound to a role set. It returns nil to admit
// the request.
type Guard func(ctx context.Context, creds Credentials) error

// Authorize resolves the user behind creds.
//
// An API key, when presented, is authoritative and the session cookie is
// ignored. Otherwise the session cookie is resolved and its TTL slid.
// Within a [WithRequestScope] context the result is cached, so repeated
// calls for one request touch Redis and the directory once.
func (e *Engine) Authorize(ctx context.Context, creds Credentials) (int64, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}

	scope := scopeFromContext(ctx)
	if scope == nil {
		userID, _, err := e.authenticate(ctx, creds)
		return userID, err
	}

	scope.identityMu.Lock()
	defer scope.identityMu.Unlock()

	if scope.resolved {
		e.metricInc(MetricAuthCacheHit)
		return scope.userID, nil
	}

	userID, scheme, err := e.authenticate(ctx, creds)
	if err != nil {
		return 0, err
	}

	scope.userID = userID
	scope.scheme = scheme
	scope.resolved = true
	return userID, nil
}

func (e *Engine) authenticate(ctx context.Context, creds Credentials) (int64, AuthScheme, error) {
	start := time.Now()
	defer e.metricObserve(MetricAuthorizeLatency, start)

	if creds.HasAPIKey && e.config.APIKey.Enabled {
		userID, reason, err := e.authenticateAPIKey(ctx, creds.APIKey)
		e.logAuthEvent(ctx, AuthSchemeAPIKey, userID, reason, err)
		if err != nil {
			return 0, AuthSchemeAPIKey, err
		}
		return userID, AuthSchemeAPIKey, nil
	}

	if creds.HasSession {
		userID, err := e.sessions.Resolve(ctx, creds.SessionID)
		if err != nil {
			reason := "session expired or invalid"
			switch {
			case errors.Is(err, ErrSessionNotFound):
				reason = "empty session token"
			case !errors.Is(err, ErrSessionExpiredOrInvalid):
				reason = "session store unavailable"
				err = internalError(err)
			}
			e.logAuthEvent(ctx, AuthSchemeSession, 0, reason, err)
			return 0, AuthSchemeSession, err
		}
		e.logAuthEvent(ctx, AuthSchemeSession, userID, "", nil)
		return userID, AuthSchemeSession, nil
	}

	e.logAuthEvent(ctx, AuthSchemeNone, 0, "no credentials", ErrAuthenticationRequired)
	return 0, AuthSchemeNone, ErrAuthenticationRequired
}

func (e *Engine) authenticateAPIKey(ctx context.Context, token string) (int64, string, error) {
	keyID, secret, err := internal.DecodeAPIKey(token)
	if err != nil {
		return 0, "malformed key", ErrInvalidAPIKey
	}

	acct, err := e.directory.FindByAPIKeyID(ctx, keyID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return 0, "unknown key", ErrInvalidAPIKey
		}
		return 0, "directory unavailable", internalError(err)
	}
	if acct.APIKey == nil || acct.APIKey.KeyID != keyID {
		return 0, "unknown key", ErrInvalidAPIKey
	}

	ok, err := e.verifier.Verify(secret, acct.APIKey.SecretHash)
	if err != nil {
		return acct.UserID, "stored key hash unreadable", internalError(err)
	}
	if !ok {
		return acct.UserID, "secret mismatch", ErrInvalidAPIKey
	}
	return acct.UserID, "", nil
}

// ResolveRole authorizes creds and returns the caller's current role.
// Within a request scope the role is looked up once. A caller whose account
// has disappeared is [ErrForbidden].
func (e *Engine) ResolveRole(ctx context.Context, creds Credentials) (int64, permission.Role, error) {
	if e == nil || e.directory == nil {
		return 0, "", ErrEngineNotReady
	}

	scope := scopeFromContext(ctx)
	if scope != nil {
		scope.roleMu.Lock()
		defer scope.roleMu.Unlock()
	}

	userID, err := e.Authorize(ctx, creds)
	if err != nil {
		return 0, "", err
	}

	if scope != nil && scope.roleResolved {
		return userID, scope.role, nil
	}

	role, err := e.directory.RoleOf(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return userID, "", ErrForbidden
		}
		return userID, "", internalError(err)
	}
	if !role.Valid() {
		return userID, "", internalError(permission.ErrUnknownRole)
	}

	if scope != nil {
		scope.role = role
		scope.roleResolved = true
	}
	return userID, role, nil
}

// RequireRoles returns a guard that admits callers holding one of allowed.
// Owners and Admins are always admitted. Failed authentication is reported
// as-is; a caller outside the set gets [ErrForbidden].
func (e *Engine) RequireRoles(allowed ...permission.Role) Guard {
	set := permission.NewSet(allowed...)

	return func(ctx context.Context, creds Credentials) error {
		userID, role, err := e.ResolveRole(ctx, creds)
		if err != nil {
			if errors.Is(err, ErrForbidden) {
				e.recordRoleGate(ctx, userID, "", set, false)
			}
			return err
		}

		if !permission.Permits(role, set) {
			e.recordRoleGate(ctx, userID, role, set, false)
			return ErrForbidden
		}

		e.recordRoleGate(ctx, userID, role, set, true)
		return nil
	}
}

func (e *Engine) recordRoleGate(ctx context.Context, userID int64, role permission.Role, set permission.Set, allowed bool) {
	if allowed {
		e.metricInc(MetricRoleGateAllowed)
		return
	}

	e.metricInc(MetricRoleGateForbidden)
	e.logger.WarnContext(ctx, "role gate refused caller",
		"host", clientIPFromContext(ctx),
		"user_id", userID,
		"role", role.String(),
	)
	e.emitAudit(ctx, auditEventRoleGate, false, userID, "", ErrForbidden, func() map[string]string {
		return map[string]string{
			"role":    role.String(),
			"allowed": joinRoles(set.Slice()),
		}
	})
}

func joinRoles(roles []permission.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	return strings.Join(names, ",")
}
