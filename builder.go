package shiftAuth

import (
	"errors"
	"log/slog"

	internalaudit "github.com/MrEthical07/shiftAuth/internal/audit"
	"github.com/MrEthical07/shiftAuth/internal/rate"
	pwhash "github.com/MrEthical07/shiftAuth/password"
	"github.com/MrEthical07/shiftAuth/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine].
//
// Builder instances are intended to be configured during initialization and
// then discarded; Build may only be called once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	directory AccountDirectory
	verifier  CredentialVerifier
	auditSink AuditSink
	logger    *slog.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing sessions and login throttling. Single
// node, cluster and sentinel clients are all accepted.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDirectory sets the account store.
func (b *Builder) WithDirectory(dir AccountDirectory) *Builder {
	b.directory = dir
	return b
}

// WithVerifier overrides the credential hasher. Without it Build creates an
// Argon2id hasher from Config.Password.
func (b *Builder) WithVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

// WithAuditSink sets the destination of audit events. It only takes effect
// when Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger; slog.Default is used otherwise.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.directory == nil {
		return nil, errors.New("account directory required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	verifier := b.verifier
	if verifier == nil {
		ph, err := pwhash.NewArgon2(pwhash.Config{
			Memory:           cfg.Password.Memory,
			Time:             cfg.Password.Time,
			Parallelism:      cfg.Password.Parallelism,
			SaltLength:       cfg.Password.SaltLength,
			KeyLength:        cfg.Password.KeyLength,
			MaxPasswordBytes: cfg.Password.MaxLength,
		})
		if err != nil {
			return nil, err
		}
		verifier = ph
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := &Engine{
		config: cfg,
		sessions: session.NewStore(b.redis, session.Options{
			Prefix:      cfg.Session.RedisPrefix,
			TTL:         cfg.Session.TTL,
			MaxSessions: cfg.Session.MaxSessionsPerUser,
		}),
		directory: b.directory,
		verifier:  verifier,
		metrics:   NewMetrics(cfg.Metrics),
		logger:    logger.With("component", "auth"),
	}

	if cfg.Security.EnableLoginThrottle {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:                cfg.Session.RedisPrefix,
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		})
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Logger:     logger,
	}, b.auditSink)

	b.built = true

	return engine, nil
}
