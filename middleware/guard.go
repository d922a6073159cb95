package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	shiftAuth "github.com/MrEthical07/shiftAuth"
	"github.com/MrEthical07/shiftAuth/permission"
)

type credentialsContextKey struct{}

// CredentialsFromContext returns the credentials extracted by a guard for the
// current request.
func CredentialsFromContext(ctx context.Context) (shiftAuth.Credentials, bool) {
	creds, ok := ctx.Value(credentialsContextKey{}).(shiftAuth.Credentials)
	return creds, ok
}

// CredentialsFromRequest reads the API key header and the session cookie
// named by engine's config. A present but empty cookie is reported as present.
func CredentialsFromRequest(r *http.Request, engine *shiftAuth.Engine) shiftAuth.Credentials {
	var creds shiftAuth.Credentials

	if header := engine.APIKeyHeader(); header != "" {
		if values := r.Header.Values(header); len(values) > 0 {
			creds.APIKey = values[0]
			creds.HasAPIKey = true
		}
	}

	if cookie, err := r.Cookie(engine.SessionCookieName()); err == nil {
		creds.SessionID = cookie.Value
		creds.HasSession = true
	}

	return creds
}

// ClientIP returns the host part of r.RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Authenticate admits requests carrying a valid API key or session.
func Authenticate(engine *shiftAuth.Engine) func(http.Handler) http.Handler {
	return guard(engine, func(ctx context.Context, creds shiftAuth.Credentials) error {
		_, err := engine.Authorize(ctx, creds)
		return err
	})
}

// RequireRoles admits authenticated callers whose role is in roles, plus
// Owner and Admin.
func RequireRoles(engine *shiftAuth.Engine, roles ...permission.Role) func(http.Handler) http.Handler {
	var check shiftAuth.Guard
	if engine != nil {
		check = engine.RequireRoles(roles...)
	}
	return guard(engine, check)
}

func guard(engine *shiftAuth.Engine, check shiftAuth.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil || check == nil {
				WriteError(w, nil, shiftAuth.ErrEngineNotReady)
				return
			}

			ctx := shiftAuth.WithRequestScope(shiftAuth.WithClientIP(r.Context(), ClientIP(r)))
			creds := CredentialsFromRequest(r, engine)

			if err := check(ctx, creds); err != nil {
				WriteError(w, engine, err)
				return
			}

			ctx = context.WithValue(ctx, credentialsContextKey{}, creds)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var statusTable = []struct {
	err    error
	status int
}{
	{shiftAuth.ErrInternal, http.StatusInternalServerError},
	{shiftAuth.ErrEngineNotReady, http.StatusInternalServerError},
	{shiftAuth.ErrAuthenticationRequired, http.StatusUnauthorized},
	{shiftAuth.ErrSessionExpiredOrInvalid, http.StatusUnauthorized},
	{shiftAuth.ErrInvalidAPIKey, http.StatusUnauthorized},
	{shiftAuth.ErrInvalidCredentials, http.StatusUnauthorized},
	{shiftAuth.ErrSessionNotFound, http.StatusBadRequest},
	{shiftAuth.ErrBadRequest, http.StatusBadRequest},
	{shiftAuth.ErrExistingSession, http.StatusBadRequest},
	{shiftAuth.ErrSelfRoleChange, http.StatusBadRequest},
	{shiftAuth.ErrPasswordPolicy, http.StatusBadRequest},
	{shiftAuth.ErrForbidden, http.StatusForbidden},
	{shiftAuth.ErrUserNotFound, http.StatusNotFound},
	{shiftAuth.ErrAccountExists, http.StatusConflict},
	{shiftAuth.ErrTooManyActiveSessions, http.StatusTooManyRequests},
	{shiftAuth.ErrLoginRateLimited, http.StatusTooManyRequests},
}

// StatusFor maps an engine error to an HTTP status code. Unknown errors are 500.
func StatusFor(err error) int {
	if i, ok := matchSentinel(err); ok {
		return statusTable[i].status
	}
	return http.StatusInternalServerError
}

func matchSentinel(err error) (int, bool) {
	for i := range statusTable {
		if errors.Is(err, statusTable[i].err) {
			return i, true
		}
	}
	return 0, false
}

type errorBody struct {
	Error string `json:"error"`
}

// WriteError writes err as a JSON error response. The message is the
// matched sentinel's text so storage causes never reach the client. When
// engine is non-nil and the session was rejected, the cookie is cleared.
func WriteError(w http.ResponseWriter, engine *shiftAuth.Engine, err error) {
	status := http.StatusInternalServerError
	msg := http.StatusText(status)
	if i, ok := matchSentinel(err); ok {
		status = statusTable[i].status
		if status != http.StatusInternalServerError {
			msg = statusTable[i].err.Error()
		}
	}

	if engine != nil && shiftAuth.ShouldClearSessionCookie(err) {
		http.SetCookie(w, engine.ExpiredSessionCookie())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}
