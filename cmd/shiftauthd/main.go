// Command shiftauthd serves the shiftAuth HTTP API backed by Redis sessions
// and a Postgres account directory.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	shiftAuth "github.com/MrEthical07/shiftAuth"
	"github.com/MrEthical07/shiftAuth/directory"
	"github.com/MrEthical07/shiftAuth/httpapi"
	"github.com/MrEthical07/shiftAuth/internal/config"
	"github.com/MrEthical07/shiftAuth/internal/logging"
	"github.com/MrEthical07/shiftAuth/metrics/export/prometheus"
	"github.com/redis/go-redis/v9"
)

// set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configPath := flag.String("config", os.Getenv("SHIFTAUTH_CONFIG"), "path to YAML config; empty uses defaults and environment")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.LoggingConfig(), version)
	log.Info("starting shiftauthd", "config", *configPath, "level", cfg.Logging.Level)

	db, err := openDirectory(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.Redis.Addrs,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if closeErr := rdb.Close(); closeErr != nil {
			log.Error("error closing redis", "error", closeErr)
		}
	}()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	log.Info("redis connected", "addrs", cfg.Redis.Addrs)

	engine, err := buildEngine(cfg, rdb, directory.NewPostgres(db), log)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := bootstrapOwner(ctx, cfg, engine, log); err != nil {
		return err
	}

	var metrics http.Handler
	if cfg.Auth.MetricsEnabled {
		metrics = prometheus.NewExporter(engine).Handler()
	}
	api, err := httpapi.New(httpapi.Deps{
		Engine:      engine,
		Logger:      log,
		Metrics:     metrics,
		MetricsPath: cfg.Server.MetricsPath,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("building api: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.Handler(),
		ReadTimeout:       cfg.ReadTimeout(),
		ReadHeaderTimeout: cfg.ReadTimeout(),
		WriteTimeout:      cfg.WriteTimeout(),
		IdleTimeout:       cfg.IdleTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	log.Info("shutdown complete", "audit_dropped", engine.AuditDropped())
	return nil
}

func openDirectory(ctx context.Context, cfg *config.Config, log *slog.Logger) (*sql.DB, error) {
	db, err := directory.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	if cfg.Database.Migrate {
		if err := directory.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		log.Info("database migrations complete")
	}
	return db, nil
}

func buildEngine(cfg *config.Config, rdb redis.UniversalClient, dir shiftAuth.AccountDirectory, log *slog.Logger) (*shiftAuth.Engine, error) {
	authCfg, err := cfg.ToAuthConfig()
	if err != nil {
		return nil, err
	}

	for _, w := range authCfg.Lint() {
		log.Warn("auth config lint", "code", w.Code, "severity", w.Severity.String(), "message", w.Message)
	}

	builder := shiftAuth.New().
		WithConfig(authCfg).
		WithRedis(rdb).
		WithDirectory(dir).
		WithLogger(log)

	switch cfg.Auth.AuditSink {
	case "json":
		builder = builder.WithAuditSink(shiftAuth.NewJSONWriterSink(os.Stdout))
	case "slog":
		builder = builder.WithAuditSink(shiftAuth.NewSlogSink(log.With("stream", "audit")))
	}

	engine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("building auth engine: %w", err)
	}

	report := engine.SecurityReport()
	log.Info("auth engine ready",
		"session_ttl", report.SessionTTL,
		"max_sessions", report.MaxSessionsPerUser,
		"cookie_secure", report.CookieSecure,
		"cookie_same_site", report.CookieSameSite,
		"api_key_header", report.APIKeyHeader,
		"login_throttle", report.LoginThrottleActive,
		"audit", report.AuditEnabled,
		"high_severity_warnings", len(report.HighSeverityWarnings),
	)
	return engine, nil
}

// bootstrapOwner creates the configured owner once. A directory that already
// has an owner, or that username, is left untouched.
func bootstrapOwner(ctx context.Context, cfg *config.Config, engine *shiftAuth.Engine, log *slog.Logger) error {
	b := cfg.Bootstrap
	if b.OwnerUsername == "" {
		return nil
	}

	id, err := engine.BootstrapOwner(ctx, shiftAuth.NewAccount{
		FullName: b.OwnerFullName,
		Username: b.OwnerUsername,
		Password: b.OwnerPassword,
	})
	switch {
	case errors.Is(err, shiftAuth.ErrAccountExists):
		log.Info("owner bootstrap skipped, account or owner already present", "username", b.OwnerUsername)
		return nil
	case err != nil:
		return fmt.Errorf("bootstrapping owner: %w", err)
	}
	log.Info("owner account created", "user_id", id, "username", b.OwnerUsername)
	return nil
}
