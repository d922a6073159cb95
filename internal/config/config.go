// Package config loads the shiftauthd server configuration from YAML with
// SHIFTAUTH_* environment overrides.
package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	shiftAuth "github.com/MrEthical07/shiftAuth"
	"github.com/MrEthical07/shiftAuth/internal/logging"
	"gopkg.in/yaml.v3"
)

// Config is the root server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Auth      AuthConfig      `yaml:"auth"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

// ServerConfig controls the HTTP listener. Timeouts are seconds.
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	ReadTimeout     int    `yaml:"read_timeout"`
	WriteTimeout    int    `yaml:"write_timeout"`
	IdleTimeout     int    `yaml:"idle_timeout"`
	ShutdownTimeout int    `yaml:"shutdown_timeout"`
	MetricsPath     string `yaml:"metrics_path"`
}

// RedisConfig addresses the session store. More than one address selects a
// cluster client.
type RedisConfig struct {
	Addrs    []string `yaml:"addrs"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
}

// DatabaseConfig addresses the Postgres account directory.
type DatabaseConfig struct {
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"`
	Migrate         bool   `yaml:"migrate"`
}

// LoggingConfig is passed to logging.New.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// AuthConfig mirrors shiftAuth.Config in file-friendly units.
type AuthConfig struct {
	SessionTTL         int    `yaml:"session_ttl"`
	MaxSessionsPerUser int    `yaml:"max_sessions_per_user"`
	RedisPrefix        string `yaml:"redis_prefix"`

	CookieName     string `yaml:"cookie_name"`
	CookieDomain   string `yaml:"cookie_domain"`
	CookieSecure   bool   `yaml:"cookie_secure"`
	CookieSameSite string `yaml:"cookie_same_site"`

	APIKeyEnabled bool   `yaml:"api_key_enabled"`
	APIKeyHeader  string `yaml:"api_key_header"`

	Argon2MemoryKiB   uint32 `yaml:"argon2_memory_kib"`
	Argon2Time        uint32 `yaml:"argon2_time"`
	Argon2Parallelism uint8  `yaml:"argon2_parallelism"`
	PasswordMinLength int    `yaml:"password_min_length"`
	PasswordMaxLength int    `yaml:"password_max_length"`

	RejectLoginWithActiveSession bool `yaml:"reject_login_with_active_session"`
	LoginThrottle                bool `yaml:"login_throttle"`
	IPThrottle                   bool `yaml:"ip_throttle"`
	MaxLoginAttempts             int  `yaml:"max_login_attempts"`
	LoginCooldown                int  `yaml:"login_cooldown"`

	AuditEnabled    bool   `yaml:"audit_enabled"`
	AuditBufferSize int    `yaml:"audit_buffer_size"`
	AuditSink       string `yaml:"audit_sink"`

	MetricsEnabled    bool `yaml:"metrics_enabled"`
	LatencyHistograms bool `yaml:"latency_histograms"`
}

// BootstrapConfig names the owner account created on an empty directory.
// Both fields empty disables bootstrapping.
type BootstrapConfig struct {
	OwnerUsername string `yaml:"owner_username"`
	OwnerPassword string `yaml:"owner_password"`
	OwnerFullName string `yaml:"owner_full_name"`
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path uses defaults and environment only.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	auth := shiftAuth.DefaultConfig()

	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15,
			WriteTimeout:    15,
			IdleTimeout:     60,
			ShutdownTimeout: 10,
			MetricsPath:     "/metrics",
		},
		Redis: RedisConfig{
			Addrs: []string{"localhost:6379"},
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
			Migrate:         true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Auth: AuthConfig{
			SessionTTL:         int(auth.Session.TTL / time.Second),
			MaxSessionsPerUser: auth.Session.MaxSessionsPerUser,

			CookieName:     auth.Cookie.Name,
			CookieSecure:   auth.Cookie.Secure,
			CookieSameSite: "lax",

			APIKeyEnabled: auth.APIKey.Enabled,
			APIKeyHeader:  auth.APIKey.Header,

			Argon2MemoryKiB:   auth.Password.Memory,
			Argon2Time:        auth.Password.Time,
			Argon2Parallelism: auth.Password.Parallelism,
			PasswordMinLength: auth.Password.MinLength,
			PasswordMaxLength: auth.Password.MaxLength,

			RejectLoginWithActiveSession: auth.Security.RejectLoginWithActiveSession,
			LoginThrottle:                auth.Security.EnableLoginThrottle,
			MaxLoginAttempts:             auth.Security.MaxLoginAttempts,
			LoginCooldown:                int(auth.Security.LoginCooldownDuration / time.Second),

			AuditEnabled:    auth.Audit.Enabled,
			AuditBufferSize: auth.Audit.BufferSize,
			AuditSink:       "slog",

			MetricsEnabled: auth.Metrics.Enabled,
		},
	}
}

// applyEnvOverrides applies SHIFTAUTH_SECTION_KEY variables.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SHIFTAUTH_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SHIFTAUTH_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SHIFTAUTH_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}

	if v := os.Getenv("SHIFTAUTH_REDIS_ADDRS"); v != "" {
		cfg.Redis.Addrs = splitList(v)
	}
	if v := os.Getenv("SHIFTAUTH_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	if v := os.Getenv("SHIFTAUTH_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	if v := os.Getenv("SHIFTAUTH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("SHIFTAUTH_COOKIE_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SHIFTAUTH_COOKIE_SECURE: %w", err)
		}
		cfg.Auth.CookieSecure = secure
	}

	// secrets belong in the environment, not the file
	if v := os.Getenv("SHIFTAUTH_BOOTSTRAP_OWNER_USERNAME"); v != "" {
		cfg.Bootstrap.OwnerUsername = v
	}
	if v := os.Getenv("SHIFTAUTH_BOOTSTRAP_OWNER_PASSWORD"); v != "" {
		cfg.Bootstrap.OwnerPassword = v
	}

	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks server-level settings, then the derived engine config.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if len(c.Redis.Addrs) == 0 {
		errs = append(errs, "redis.addrs is required")
	}
	if c.Database.DSN == "" {
		errs = append(errs, "database.dsn is required (set SHIFTAUTH_DATABASE_DSN)")
	}
	if (c.Bootstrap.OwnerUsername == "") != (c.Bootstrap.OwnerPassword == "") {
		errs = append(errs, "bootstrap owner needs both username and password")
	}
	switch strings.ToLower(c.Auth.AuditSink) {
	case "slog", "json", "none":
	default:
		errs = append(errs, "auth.audit_sink must be slog, json or none")
	}

	if auth, err := c.ToAuthConfig(); err != nil {
		errs = append(errs, err.Error())
	} else if err := auth.Validate(); err != nil {
		errs = append(errs, "auth: "+err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ToAuthConfig converts the auth section into an engine config.
func (c *Config) ToAuthConfig() (shiftAuth.Config, error) {
	a := c.Auth
	cfg := shiftAuth.DefaultConfig()

	sameSite, err := parseSameSite(a.CookieSameSite)
	if err != nil {
		return cfg, err
	}

	cfg.Session.TTL = time.Duration(a.SessionTTL) * time.Second
	cfg.Session.MaxSessionsPerUser = a.MaxSessionsPerUser
	cfg.Session.RedisPrefix = a.RedisPrefix

	cfg.Cookie.Name = a.CookieName
	cfg.Cookie.Domain = a.CookieDomain
	cfg.Cookie.Secure = a.CookieSecure
	cfg.Cookie.SameSite = sameSite

	cfg.APIKey.Enabled = a.APIKeyEnabled
	cfg.APIKey.Header = a.APIKeyHeader

	cfg.Password.Memory = a.Argon2MemoryKiB
	cfg.Password.Time = a.Argon2Time
	cfg.Password.Parallelism = a.Argon2Parallelism
	cfg.Password.MinLength = a.PasswordMinLength
	cfg.Password.MaxLength = a.PasswordMaxLength

	cfg.Security.RejectLoginWithActiveSession = a.RejectLoginWithActiveSession
	cfg.Security.EnableLoginThrottle = a.LoginThrottle
	cfg.Security.EnableIPThrottle = a.IPThrottle
	cfg.Security.MaxLoginAttempts = a.MaxLoginAttempts
	cfg.Security.LoginCooldownDuration = time.Duration(a.LoginCooldown) * time.Second

	cfg.Audit.Enabled = a.AuditEnabled && !strings.EqualFold(a.AuditSink, "none")
	cfg.Audit.BufferSize = a.AuditBufferSize

	cfg.Metrics.Enabled = a.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = a.LatencyHistograms

	return cfg, nil
}

// LoggingConfig converts the logging section for logging.New.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: c.Logging.Output,
	}
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeout) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeout) * time.Second
}

func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Server.IdleTimeout) * time.Second
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeout) * time.Second
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(v) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("auth.cookie_same_site %q must be lax, strict or none", v)
	}
}
