package shiftAuth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/shiftAuth/session"
)

// Config is the complete Engine configuration. Obtain a populated value from
// [DefaultConfig] and override fields before passing it to [Builder.WithConfig].
type Config struct {
	Session  SessionConfig
	Cookie   CookieConfig
	APIKey   APIKeyConfig
	Password PasswordConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the Redis session store.
type SessionConfig struct {
	// RedisPrefix namespaces session keys; empty keeps session:{id}.
	RedisPrefix string
	// TTL is the sliding lifetime, reset on every authenticated read.
	TTL time.Duration
	// MaxSessionsPerUser rejects logins once a user holds this many live sessions.
	MaxSessionsPerUser int
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig describes the session cookie. The cookie is always HttpOnly.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

/*
====================================
API KEY CONFIG
====================================
*/

// APIKeyConfig controls header-based authentication.
type APIKeyConfig struct {
	Enabled bool
	Header  string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters shared by password and API-key hashing.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MinLength int
	MaxLength int
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig groups login hardening switches.
type SecurityConfig struct {
	// RejectLoginWithActiveSession refuses a login when the request already
	// carries a live session cookie.
	RejectLoginWithActiveSession bool

	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles in-process counters and the authorize latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the production defaults: 300s sliding sessions,
// three sessions per user, a session_id cookie and an API-Key header.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			TTL:                session.DefaultTTL,
			MaxSessionsPerUser: session.DefaultMaxSessions,
		},
		Cookie: CookieConfig{
			Name:     "session_id",
			Path:     "/",
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		},
		APIKey: APIKeyConfig{
			Enabled: true,
			Header:  "API-Key",
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   10,
			MaxLength:   1024,
		},
		Security: SecurityConfig{
			RejectLoginWithActiveSession: true,
			EnableLoginThrottle:          true,
			MaxLoginAttempts:             5,
			LoginCooldownDuration:        15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks cfg for values the Engine cannot run with.
func (c *Config) Validate() error {
	// Session
	if c.Session.TTL < time.Second {
		return errors.New("Session TTL must be >= 1s")
	}
	if c.Session.MaxSessionsPerUser < 1 {
		return errors.New("Session MaxSessionsPerUser must be >= 1")
	}
	if strings.ContainsAny(c.Session.RedisPrefix, " \t\r\n") {
		return errors.New("Session RedisPrefix must not contain whitespace")
	}

	// Cookie
	if !validCookieName(c.Cookie.Name) {
		return errors.New("Cookie Name is invalid")
	}
	if c.Cookie.Path == "" {
		return errors.New("Cookie Path must not be empty")
	}
	switch c.Cookie.SameSite {
	case http.SameSiteLaxMode, http.SameSiteStrictMode:
	case http.SameSiteNoneMode:
		if !c.Cookie.Secure {
			return errors.New("Cookie SameSite=None requires Secure")
		}
	default:
		return errors.New("Cookie SameSite must be Lax, Strict or None")
	}

	// API key
	if c.APIKey.Enabled && strings.TrimSpace(c.APIKey.Header) == "" {
		return errors.New("APIKey Header must not be empty when enabled")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 10 {
		return errors.New("Password MinLength must be >= 10")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be >= MinLength")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security LoginCooldownDuration must be > 0")
		}
	}
	if c.Security.EnableIPThrottle && !c.Security.EnableLoginThrottle {
		return errors.New("Security EnableIPThrottle requires EnableLoginThrottle")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}

func validCookieName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r <= ' ' || r >= 0x7f || strings.ContainsRune("()<>@,;:\\\"/[]?={}", r) {
			return false
		}
	}
	return true
}
