package shiftAuth

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// LintSeverity ranks a configuration warning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is a configuration that validates but is unusual for production.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of warnings produced by [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	codes := make([]string, len(r))
	for i, w := range r {
		codes[i] = w.Code
	}
	return codes
}

// BySeverity returns warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins warnings at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	ws := r.BySeverity(min)
	if len(ws) == 0 {
		return nil
	}
	msgs := make([]string, len(ws))
	for i, w := range ws {
		msgs[i] = w.Code + ": " + w.Message
	}
	return errors.New("config lint: " + strings.Join(msgs, "; "))
}

// Lint reports settings that pass [Config.Validate] but weaken the deployment.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if !c.Cookie.Secure {
		add("cookie_insecure", LintHigh, "session cookie is sent over plain HTTP")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode {
		add("cookie_samesite_none", LintWarn, "session cookie is sent on cross-site requests")
	}
	if c.Session.TTL > time.Hour {
		add("session_ttl_long", LintWarn, "sliding session TTL exceeds one hour")
	}
	if c.Session.MaxSessionsPerUser > 10 {
		add("session_cap_high", LintInfo, "more than ten concurrent sessions per user")
	}
	if !c.Security.EnableLoginThrottle {
		add("login_throttle_disabled", LintHigh, "failed logins are not rate limited")
	} else if !c.Security.EnableIPThrottle {
		add("ip_throttle_disabled", LintInfo, "failed logins are throttled per username only")
	}
	if !c.Security.RejectLoginWithActiveSession {
		add("login_with_session_allowed", LintInfo, "clients holding a live session may log in again")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintWarn, "audit events are not recorded")
	}
	if c.Password.Memory < 64*1024 {
		add("argon2_memory_low", LintWarn, "argon2 memory below 64 MiB")
	}
	return ws
}
