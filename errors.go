package shiftAuth

import (
	"errors"

	"github.com/MrEthical07/shiftAuth/session"
)

var (
	// ErrAuthenticationRequired is returned when a request carries neither an
	// API key nor a session cookie.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrSessionNotFound is returned when a session operation is asked for
	// without a token. It is a client input error, not an auth failure.
	ErrSessionNotFound = session.ErrSessionNotFound
	// ErrSessionExpiredOrInvalid is returned when a presented session token
	// has no live session. Responses should clear the session cookie.
	ErrSessionExpiredOrInvalid = session.ErrSessionExpiredOrInvalid
	// ErrTooManyActiveSessions rejects a login when the user is at the session cap.
	ErrTooManyActiveSessions = session.ErrTooManyActiveSessions
	// ErrInvalidAPIKey is returned for malformed, unknown or mismatched API keys.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrForbidden is returned when an authenticated caller lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrBadRequest is returned for role changes that would not change anything.
	ErrBadRequest = errors.New("bad request")
	// ErrInternal wraps storage and integrity failures. The cause is joined
	// so errors.Is still matches it.
	ErrInternal = errors.New("internal error")

	// ErrInvalidCredentials is returned when a password does not match.
	ErrInvalidCredentials = errors.New("incorrect password")
	// ErrUserNotFound is returned when no account matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrExistingSession rejects a login from a client that already holds a live session.
	ErrExistingSession = errors.New("existing session found")
	// ErrSelfRoleChange is returned when a caller targets their own role.
	ErrSelfRoleChange = errors.New("cannot change own role")
	// ErrAccountExists is returned when a username or the owner seat is already taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrPasswordPolicy is returned when a new password fails length checks.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrLoginRateLimited is returned when the failed-login budget is spent.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ShouldClearSessionCookie reports whether the response to a request that
// failed with err must delete the session cookie.
func ShouldClearSessionCookie(err error) bool {
	return errors.Is(err, ErrSessionExpiredOrInvalid)
}

func internalError(cause error) error {
	if cause == nil {
		return ErrInternal
	}
	if errors.Is(cause, ErrInternal) {
		return cause
	}
	return errors.Join(ErrInternal, cause)
}
