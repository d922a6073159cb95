package shiftAuth_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	shiftAuth "github.com/MrEthical07/shiftAuth"
	"github.com/MrEthical07/shiftAuth/directory"
	"github.com/MrEthical07/shiftAuth/password"
	"github.com/MrEthical07/shiftAuth/permission"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testPassword = "correct-password-123"

type testEnv struct {
	engine *shiftAuth.Engine
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	dir    *directory.Memory
	sink   *shiftAuth.ChannelSink
	hasher *password.Argon2
}

func testConfig() shiftAuth.Config {
	cfg := shiftAuth.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func newTestEnv(t *testing.T, mutate func(*shiftAuth.Config)) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}

	dir := directory.NewMemory()
	sink := shiftAuth.NewChannelSink(4096)

	engine, err := shiftAuth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithDirectory(dir).
		WithVerifier(hasher).
		WithAuditSink(sink).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return &testEnv{engine: engine, mr: mr, rdb: rdb, dir: dir, sink: sink, hasher: hasher}
}

// seed creates an account holding role with testPassword.
func (env *testEnv) seed(t *testing.T, username string, role permission.Role) int64 {
	t.Helper()

	hash, err := env.hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	id, err := env.dir.CreateAccount(context.Background(), shiftAuth.NewAccountRecord{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", username, err)
	}
	return id
}

func (env *testEnv) login(t *testing.T, username string) string {
	t.Helper()

	res, err := env.engine.Login(context.Background(), username, testPassword, "")
	if err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	return res.SessionID
}

func (env *testEnv) roleOf(t *testing.T, userID int64) permission.Role {
	t.Helper()

	role, err := env.dir.RoleOf(context.Background(), userID)
	if err != nil {
		t.Fatalf("role of %d: %v", userID, err)
	}
	return role
}

// drainAudit stops the dispatcher and returns every event emitted so far.
func (env *testEnv) drainAudit() []shiftAuth.AuditEvent {
	env.engine.Close()

	var events []shiftAuth.AuditEvent
	for {
		select {
		case ev := <-env.sink.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func hasAuditEvent(events []shiftAuth.AuditEvent, eventType string, success bool) bool {
	for _, ev := range events {
		if ev.EventType == eventType && ev.Success == success {
			return true
		}
	}
	return false
}
