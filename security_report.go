package shiftAuth

import (
	"net/http"
	"time"
)

// SecurityReport summarizes the security posture of a built engine. The
// daemon logs it at startup.
type SecurityReport struct {
	SessionTTL           time.Duration
	MaxSessionsPerUser   int
	CookieSecure         bool
	CookieSameSite       string
	APIKeyEnabled        bool
	APIKeyHeader         string
	Argon2               PasswordConfigReport
	LoginThrottleActive  bool
	IPThrottleActive     bool
	SingleActiveLogin    bool
	AuditEnabled         bool
	LatencyHistogramsOn  bool
	HighSeverityWarnings []string
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	cfg := e.config
	return SecurityReport{
		SessionTTL:         cfg.Session.TTL,
		MaxSessionsPerUser: cfg.Session.MaxSessionsPerUser,
		CookieSecure:       cfg.Cookie.Secure,
		CookieSameSite:     sameSiteName(cfg.Cookie.SameSite),
		APIKeyEnabled:      cfg.APIKey.Enabled,
		APIKeyHeader:       e.APIKeyHeader(),
		Argon2: PasswordConfigReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
			MinLength:   cfg.Password.MinLength,
		},
		LoginThrottleActive:  e.rateLimiter != nil,
		IPThrottleActive:     e.rateLimiter != nil && cfg.Security.EnableIPThrottle,
		SingleActiveLogin:    cfg.Security.RejectLoginWithActiveSession,
		AuditEnabled:         e.audit != nil,
		LatencyHistogramsOn:  e.metrics.LatencyEnabled(),
		HighSeverityWarnings: cfg.Lint().BySeverity(LintHigh).Codes(),
	}
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteLaxMode:
		return "Lax"
	case http.SameSiteStrictMode:
		return "Strict"
	case http.SameSiteNoneMode:
		return "None"
	default:
		return "Default"
	}
}
