package shiftAuth

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	internalaudit "github.com/MrEthical07/shiftAuth/internal/audit"
	"github.com/MrEthical07/shiftAuth/internal/rate"
	pwhash "github.com/MrEthical07/shiftAuth/password"
	"github.com/MrEthical07/shiftAuth/session"
)

// Engine is the authentication and authorization core. Build one with
// [New]; all methods are safe for concurrent use.
type Engine struct {
	config      Config
	sessions    *session.Store
	directory   AccountDirectory
	verifier    CredentialVerifier
	rateLimiter *rate.Limiter
	audit       *internalaudit.Dispatcher
	metrics     *Metrics
	logger      *slog.Logger
}

// Close flushes and stops the audit dispatcher. It does not close the Redis
// client or the directory, which the caller owns.
func (e *Engine) Close() {
	if e == nil || e.audit == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return NewMetrics(MetricsConfig{}).Snapshot()
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the configuration the engine was built with.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Ping checks Redis reachability.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if _, err := e.sessions.Ping(ctx); err != nil {
		return internalError(err)
	}
	return nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

// Login verifies username and password and opens a session.
//
// existingSessionID is the session cookie the client sent, if any. When
// RejectLoginWithActiveSession is set and that session is still live, the
// login fails with [ErrExistingSession].
func (e *Engine) Login(ctx context.Context, username, password, existingSessionID string) (LoginResult, error) {
	if e == nil || e.sessions == nil {
		return LoginResult{}, ErrEngineNotReady
	}
	ip := clientIPFromContext(ctx)

	if e.config.Security.RejectLoginWithActiveSession && existingSessionID != "" {
		live, err := e.sessions.Exists(ctx, existingSessionID)
		if err != nil {
			return LoginResult{}, internalError(err)
		}
		if live {
			e.metricInc(MetricLoginExistingSession)
			e.emitAudit(ctx, auditEventLoginFailure, false, 0, existingSessionID, ErrExistingSession, nil)
			return LoginResult{}, ErrExistingSession
		}
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, username, ip); err != nil {
			return LoginResult{}, e.loginRateLimitError(ctx, username, err)
		}
	}

	acct, err := e.directory.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.recordLoginFailure(ctx, username, 0, ErrUserNotFound)
			return LoginResult{}, ErrUserNotFound
		}
		return LoginResult{}, internalError(err)
	}

	ok, err := e.verifier.Verify(password, acct.PasswordHash)
	if err != nil && !errors.Is(err, pwhash.ErrSecretTooLong) {
		return LoginResult{}, internalError(err)
	}
	if !ok {
		e.recordLoginFailure(ctx, username, acct.UserID, ErrInvalidCredentials)
		return LoginResult{}, ErrInvalidCredentials
	}

	sessionID, err := e.CreateSession(ctx, acct.UserID)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, acct.UserID, "", err, nil)
		return LoginResult{}, err
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.ResetLogin(ctx, username); err != nil {
			e.logger.WarnContext(ctx, "login throttle reset failed", "user_id", acct.UserID, "error", err)
		}
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, acct.UserID, sessionID, nil, nil)

	return LoginResult{SessionID: sessionID, UserID: acct.UserID, Role: acct.Role}, nil
}

func (e *Engine) recordLoginFailure(ctx context.Context, username string, userID int64, cause error) {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, "", cause, nil)

	if e.rateLimiter == nil {
		return
	}
	if err := e.rateLimiter.IncrementLogin(ctx, username, clientIPFromContext(ctx)); err != nil && !errors.Is(err, rate.ErrRateLimited) {
		e.logger.WarnContext(ctx, "login throttle increment failed", "error", err)
	}
}

func (e *Engine) loginRateLimitError(ctx context.Context, username string, err error) error {
	if !errors.Is(err, rate.ErrRateLimited) {
		return internalError(err)
	}
	e.metricInc(MetricLoginRateLimited)
	e.emitAudit(ctx, auditEventLoginRateLimited, false, 0, "", ErrLoginRateLimited, func() map[string]string {
		return map[string]string{"username": username}
	})
	return ErrLoginRateLimited
}

// LoginRetryAfter reports how long username stays throttled. It returns zero
// when login throttling is disabled or no failure window is open.
func (e *Engine) LoginRetryAfter(ctx context.Context, username string) (time.Duration, error) {
	if e == nil || e.rateLimiter == nil {
		return 0, nil
	}
	d, err := e.rateLimiter.RetryAfter(ctx, username)
	if err != nil {
		return 0, internalError(err)
	}
	return d, nil
}

// CreateSession opens a session for userID and returns its token. It fails
// with [ErrTooManyActiveSessions] when the user is at the cap.
func (e *Engine) CreateSession(ctx context.Context, userID int64) (string, error) {
	if e == nil || e.sessions == nil {
		return "", ErrEngineNotReady
	}

	sessionID, err := e.sessions.Create(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrTooManyActiveSessions) {
			e.metricInc(MetricSessionLimitRejected)
			return "", ErrTooManyActiveSessions
		}
		return "", internalError(err)
	}

	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventSessionCreated, true, userID, sessionID, nil, nil)
	return sessionID, nil
}

// DeleteSession ends the session identified by sessionID. Deleting a session
// that no longer exists succeeds; an empty id is [ErrSessionNotFound].
func (e *Engine) DeleteSession(ctx context.Context, sessionID string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if sessionID == "" {
		return ErrSessionNotFound
	}

	userID, _ := UserIDFromContext(ctx)
	if err := e.sessions.Delete(ctx, sessionID); err != nil {
		return internalError(err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogoutSession, true, userID, sessionID, nil, nil)
	return nil
}

// LogoutAll ends every session of userID and returns how many were removed.
func (e *Engine) LogoutAll(ctx context.Context, userID int64) (int, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}

	n, err := e.sessions.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, internalError(err)
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, "", nil, func() map[string]string {
		return map[string]string{"removed": strconv.Itoa(n)}
	})
	return n, nil
}

// IsSessionValid reports whether sessionID is live without extending it.
// Backend failures report false.
func (e *Engine) IsSessionValid(ctx context.Context, sessionID string) bool {
	if e == nil || e.sessions == nil {
		return false
	}
	ok, err := e.sessions.Exists(ctx, sessionID)
	if err != nil {
		e.logger.WarnContext(ctx, "session validity check failed", "error", err)
		return false
	}
	return ok
}

// ActiveSessions lists the live session ids of userID, pruning expired
// entries from the index as a side effect.
func (e *Engine) ActiveSessions(ctx context.Context, userID int64) ([]string, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	ids, err := e.sessions.ListActive(ctx, userID)
	if err != nil {
		return nil, internalError(err)
	}
	return ids, nil
}

// SessionInfo returns the owner and expiry of sessionID without extending it.
func (e *Engine) SessionInfo(ctx context.Context, sessionID string) (SessionInfo, error) {
	if e == nil || e.sessions == nil {
		return SessionInfo{}, ErrEngineNotReady
	}
	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpiredOrInvalid) {
			return SessionInfo{}, err
		}
		return SessionInfo{}, internalError(err)
	}
	return SessionInfo{SessionID: sess.SessionID, UserID: sess.UserID, ExpiresAt: sess.ExpiresAt}, nil
}
