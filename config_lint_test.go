package shiftAuth

import (
	"net/http"
	"testing"
	"time"
)

func TestLint_DefaultConfigNoHighWarnings(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Lint().AsError(LintHigh); err != nil {
		t.Errorf("default config should not fail AsError(LintHigh): %v", err)
	}
	// Default config throttles per username only.
	if !containsCode(cfg.Lint().Codes(), "ip_throttle_disabled") {
		t.Error("expected ip_throttle_disabled info on defaults")
	}
}

func TestLint_InsecureCookie(t *testing.T) {
	cfg := defaultConfig()
	cfg.Cookie.Secure = false
	ws := cfg.Lint()
	if !containsCode(ws.Codes(), "cookie_insecure") {
		t.Fatal("expected cookie_insecure warning")
	}
	if err := ws.AsError(LintHigh); err == nil {
		t.Fatal("expected AsError(LintHigh) to fail for insecure cookie")
	}
}

func TestLint_SameSiteNone(t *testing.T) {
	cfg := defaultConfig()
	cfg.Cookie.SameSite = http.SameSiteNoneMode
	if !containsCode(cfg.Lint().Codes(), "cookie_samesite_none") {
		t.Error("expected cookie_samesite_none warning")
	}
}

func TestLint_LongSessionTTL(t *testing.T) {
	cfg := defaultConfig()
	cfg.Session.TTL = 2 * time.Hour
	if !containsCode(cfg.Lint().Codes(), "session_ttl_long") {
		t.Error("expected session_ttl_long warning")
	}
}

func TestLint_LoginThrottleDisabled(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.EnableLoginThrottle = false
	ws := cfg.Lint()
	if !containsCode(ws.Codes(), "login_throttle_disabled") {
		t.Error("expected login_throttle_disabled warning")
	}
	if containsCode(ws.Codes(), "ip_throttle_disabled") {
		t.Error("ip_throttle_disabled is implied by login_throttle_disabled")
	}
}

func TestLint_AuditDisabled(t *testing.T) {
	cfg := defaultConfig()
	cfg.Audit.Enabled = false
	if !containsCode(cfg.Lint().Codes(), "audit_disabled") {
		t.Error("expected audit_disabled warning when audit is off")
	}
}

func TestLint_Argon2MemoryLow(t *testing.T) {
	cfg := defaultConfig()
	cfg.Password.Memory = 16 * 1024
	if !containsCode(cfg.Lint().Codes(), "argon2_memory_low") {
		t.Error("expected argon2_memory_low warning")
	}

	cfg.Password.Memory = 64 * 1024
	if containsCode(cfg.Lint().Codes(), "argon2_memory_low") {
		t.Error("should not warn when memory == 64 MiB")
	}
}

func TestLint_BySeverity(t *testing.T) {
	cfg := defaultConfig()
	cfg.Cookie.Secure = false
	cfg.Audit.Enabled = false

	high := cfg.Lint().BySeverity(LintHigh)
	if len(high) != 1 || high[0].Code != "cookie_insecure" {
		t.Fatalf("expected only cookie_insecure at HIGH, got %v", high.Codes())
	}
	for _, w := range cfg.Lint().BySeverity(LintWarn) {
		if w.Severity < LintWarn {
			t.Errorf("BySeverity(LintWarn) returned warning with severity %s", w.Severity)
		}
	}
}

// helpers

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
