package shiftAuth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"
	"time"
)

const (
	auditEventLoginSuccess             = "login_success"
	auditEventLoginFailure             = "login_failure"
	auditEventLoginRateLimited         = "login_rate_limited"
	auditEventSessionCreated           = "session_created"
	auditEventLogoutSession            = "logout_session"
	auditEventLogoutAll                = "logout_all"
	auditEventAuthSession              = "auth_session"
	auditEventAuthAPIKey               = "auth_api_key"
	auditEventAuthMissing              = "auth_missing_credentials"
	auditEventRoleGate                 = "role_gate"
	auditEventRoleUpdate               = "role_update"
	auditEventOwnerHandOff             = "owner_hand_off"
	auditEventAPIKeyIssued             = "api_key_issued"
	auditEventAPIKeyRevoked            = "api_key_revoked"
	auditEventAccountCreationSuccess   = "account_creation_success"
	auditEventAccountCreationDuplicate = "account_creation_duplicate"
	auditEventAccountCreationFailure   = "account_creation_failure"
)

// AuditErrorCode is the stable error label written to [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrAuthenticationRequired AuditErrorCode = "authentication_required"
	auditErrSessionNotFound        AuditErrorCode = "session_not_found"
	auditErrSessionInvalid         AuditErrorCode = "session_expired_or_invalid"
	auditErrInvalidAPIKey          AuditErrorCode = "invalid_api_key"
	auditErrTooManySessions        AuditErrorCode = "too_many_active_sessions"
	auditErrForbidden              AuditErrorCode = "forbidden"
	auditErrBadRequest             AuditErrorCode = "bad_request"
	auditErrInvalidCredentials     AuditErrorCode = "invalid_credentials"
	auditErrUserNotFound           AuditErrorCode = "user_not_found"
	auditErrExistingSession        AuditErrorCode = "existing_session"
	auditErrRateLimited            AuditErrorCode = "rate_limited"
	auditErrDuplicate              AuditErrorCode = "duplicate"
	auditErrPasswordPolicy         AuditErrorCode = "password_policy"
	auditErrInternal               AuditErrorCode = "internal_error"
)

// authStatus mirrors the outcome label written to auth logs.
const (
	authStatusSuccess = "SUCCESS"
	authStatusFailed  = "FAILED"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID int64,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		SessionID: sessionFingerprint(sessionID),
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if userID != 0 {
		event.UserID = strconv.FormatInt(userID, 10)
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

// logAuthEvent records one authentication attempt. Successful session
// authentications log at DEBUG, other successes at INFO, failures at WARN.
func (e *Engine) logAuthEvent(
	ctx context.Context,
	scheme AuthScheme,
	userID int64,
	reason string,
	err error,
) {
	success := err == nil

	switch {
	case scheme == AuthSchemeSession && success:
		e.metricInc(MetricAuthSessionSuccess)
	case scheme == AuthSchemeSession:
		e.metricInc(MetricAuthSessionFailure)
	case scheme == AuthSchemeAPIKey && success:
		e.metricInc(MetricAuthAPIKeySuccess)
	case scheme == AuthSchemeAPIKey:
		e.metricInc(MetricAuthAPIKeyFailure)
	default:
		e.metricInc(MetricAuthMissingCredentials)
	}

	level := slog.LevelWarn
	status := authStatusFailed
	if success {
		status = authStatusSuccess
		level = slog.LevelInfo
		if scheme == AuthSchemeSession {
			level = slog.LevelDebug
		}
	}

	attrs := []slog.Attr{
		slog.String("host", clientIPFromContext(ctx)),
		slog.String("scheme", string(scheme)),
		slog.String("status", status),
	}
	if userID != 0 {
		attrs = append(attrs, slog.Int64("user_id", userID))
	}
	if reason != "" {
		attrs = append(attrs, slog.String("reason", reason))
	}
	e.logger.LogAttrs(ctx, level, "auth event", attrs...)

	eventType := auditEventAuthMissing
	switch scheme {
	case AuthSchemeSession:
		eventType = auditEventAuthSession
	case AuthSchemeAPIKey:
		eventType = auditEventAuthAPIKey
	}
	e.emitAudit(ctx, eventType, success, userID, "", err, func() map[string]string {
		m := map[string]string{"scheme": string(scheme)}
		if reason != "" {
			m["reason"] = reason
		}
		return m
	})
}

// sessionFingerprint returns a short stable digest of a session token so
// audit records can correlate events without carrying a usable bearer secret.
func sessionFingerprint(sessionID string) string {
	if sessionID == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:8])
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInternal):
		return auditErrInternal
	case errors.Is(err, ErrAuthenticationRequired):
		return auditErrAuthenticationRequired
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrSessionExpiredOrInvalid):
		return auditErrSessionInvalid
	case errors.Is(err, ErrInvalidAPIKey):
		return auditErrInvalidAPIKey
	case errors.Is(err, ErrTooManyActiveSessions):
		return auditErrTooManySessions
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrBadRequest):
		return auditErrBadRequest
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrExistingSession):
		return auditErrExistingSession
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	default:
		return auditErrInternal
	}
}
