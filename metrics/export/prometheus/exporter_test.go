package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	shiftAuth "github.com/MrEthical07/shiftAuth"
	"github.com/MrEthical07/shiftAuth/directory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeSource struct {
	snapshot shiftAuth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() shiftAuth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: shiftAuth.MetricsSnapshot{
			Counters:   map[shiftAuth.MetricID]uint64{},
			Histograms: map[shiftAuth.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCountersAndHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: shiftAuth.MetricsSnapshot{
			Counters: map[shiftAuth.MetricID]uint64{
				shiftAuth.MetricLoginSuccess:      7,
				shiftAuth.MetricRoleGateForbidden: 3,
			},
			Histograms: map[shiftAuth.MetricID][]uint64{
				shiftAuth.MetricAuthorizeLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"shiftauth_login_success_total 7",
		"shiftauth_role_gate_forbidden_total 3",
		"shiftauth_owner_hand_off_total 0",
		`shiftauth_authorize_latency_seconds_bucket{le="0.005"} 1`,
		`shiftauth_authorize_latency_seconds_bucket{le="+Inf"} 36`,
		"shiftauth_authorize_latency_seconds_count 36",
		"shiftauth_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRenderSkipsHistogramWhenLatencyOff(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: shiftAuth.MetricsSnapshot{
			Counters:   map[shiftAuth.MetricID]uint64{shiftAuth.MetricLoginSuccess: 1},
			Histograms: map[shiftAuth.MetricID][]uint64{},
		},
	})

	if out := exp.Render(); strings.Contains(out, "latency") {
		t.Fatalf("expected no histogram, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: shiftAuth.MetricsSnapshot{
			Counters:   map[shiftAuth.MetricID]uint64{shiftAuth.MetricLoginSuccess: 1},
			Histograms: map[shiftAuth.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestExporterReadsLiveEngine(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	engine, err := shiftAuth.New().
		WithRedis(rdb).
		WithDirectory(directory.NewMemory()).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	_, _ = engine.Authorize(context.Background(), shiftAuth.Credentials{})

	out := NewExporter(engine).Render()
	if !strings.Contains(out, "shiftauth_auth_missing_credentials_total 1") {
		t.Fatalf("expected missing credentials counter, got:\n%s", out)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: shiftAuth.MetricsSnapshot{
			Counters: map[shiftAuth.MetricID]uint64{
				shiftAuth.MetricLoginSuccess:       1000,
				shiftAuth.MetricLoginFailure:       40,
				shiftAuth.MetricAuthSessionSuccess: 9000,
				shiftAuth.MetricAuthAPIKeySuccess:  300,
				shiftAuth.MetricSessionCreated:     1000,
				shiftAuth.MetricRoleUpdateSuccess:  12,
			},
			Histograms: map[shiftAuth.MetricID][]uint64{
				shiftAuth.MetricAuthorizeLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
