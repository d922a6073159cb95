package shiftAuth

import (
	"net/http"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults valid",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "session ttl below one second invalid",
			mutate: func(c *Config) {
				c.Session.TTL = 500 * time.Millisecond
			},
			wantValid: false,
		},
		{
			name: "session cap zero invalid",
			mutate: func(c *Config) {
				c.Session.MaxSessionsPerUser = 0
			},
			wantValid: false,
		},
		{
			name: "redis prefix with whitespace invalid",
			mutate: func(c *Config) {
				c.Session.RedisPrefix = "tenant a:"
			},
			wantValid: false,
		},
		{
			name: "cookie name with separator invalid",
			mutate: func(c *Config) {
				c.Cookie.Name = "session;id"
			},
			wantValid: false,
		},
		{
			name: "cookie path empty invalid",
			mutate: func(c *Config) {
				c.Cookie.Path = ""
			},
			wantValid: false,
		},
		{
			name: "samesite none without secure invalid",
			mutate: func(c *Config) {
				c.Cookie.SameSite = http.SameSiteNoneMode
				c.Cookie.Secure = false
			},
			wantValid: false,
		},
		{
			name: "samesite strict valid",
			mutate: func(c *Config) {
				c.Cookie.SameSite = http.SameSiteStrictMode
			},
			wantValid: true,
		},
		{
			name: "api key header blank invalid",
			mutate: func(c *Config) {
				c.APIKey.Header = "  "
			},
			wantValid: false,
		},
		{
			name: "api key header blank valid when disabled",
			mutate: func(c *Config) {
				c.APIKey.Enabled = false
				c.APIKey.Header = ""
			},
			wantValid: true,
		},
		{
			name: "argon2 memory too low invalid",
			mutate: func(c *Config) {
				c.Password.Memory = 4 * 1024
			},
			wantValid: false,
		},
		{
			name: "password min length below ten invalid",
			mutate: func(c *Config) {
				c.Password.MinLength = 8
			},
			wantValid: false,
		},
		{
			name: "password max below min invalid",
			mutate: func(c *Config) {
				c.Password.MaxLength = 9
			},
			wantValid: false,
		},
		{
			name: "throttle without attempts invalid",
			mutate: func(c *Config) {
				c.Security.MaxLoginAttempts = 0
			},
			wantValid: false,
		},
		{
			name: "throttle disabled ignores attempts",
			mutate: func(c *Config) {
				c.Security.EnableLoginThrottle = false
				c.Security.MaxLoginAttempts = 0
			},
			wantValid: true,
		},
		{
			name: "ip throttle requires login throttle",
			mutate: func(c *Config) {
				c.Security.EnableLoginThrottle = false
				c.Security.EnableIPThrottle = true
			},
			wantValid: false,
		},
		{
			name: "audit buffer zero invalid",
			mutate: func(c *Config) {
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDefaultConfigMatchesSessionContract(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Session.TTL != 300*time.Second {
		t.Fatalf("expected 300s session TTL, got %v", cfg.Session.TTL)
	}
	if cfg.Session.MaxSessionsPerUser != 3 {
		t.Fatalf("expected 3 sessions per user, got %d", cfg.Session.MaxSessionsPerUser)
	}
	if cfg.Cookie.Name != "session_id" {
		t.Fatalf("expected session_id cookie, got %q", cfg.Cookie.Name)
	}
	if cfg.APIKey.Header != "API-Key" {
		t.Fatalf("expected API-Key header, got %q", cfg.APIKey.Header)
	}
}
