package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Emit(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestDispatcherDisabledReturnsNil(t *testing.T) {
	if d := NewDispatcher(Config{Enabled: false}, NoOpSink{}); d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	var d *Dispatcher
	d.Emit(context.Background(), Event{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherDeliversAndFlushesOnClose(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "auth_session", Success: true})
	}
	d.Close()

	if got := sink.len(); got != 10 {
		t.Fatalf("expected 10 delivered events, got %d", got)
	}

	d.Emit(context.Background(), Event{EventType: "after_close"})
	if got := sink.len(); got != 10 {
		t.Fatalf("emit after close must be ignored, got %d events", got)
	}
}

func TestJSONWriterSinkWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{EventType: "role_update", UserID: "7", Success: false, Error: "forbidden"})
	sink.Emit(context.Background(), Event{EventType: "logout", Success: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var decoded Event
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.EventType != "role_update" || decoded.Error != "forbidden" {
		t.Fatalf("unexpected event: %+v", decoded)
	}
}

func TestSlogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewSlogSink(logger)

	sink.Emit(context.Background(), Event{
		Timestamp: time.Now(),
		EventType: "auth_api_key",
		Success:   false,
		Error:     "invalid_api_key",
		Metadata:  map[string]string{"scheme": "API_KEY"},
	})

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal log record: %v", err)
	}
	if rec["level"] != "WARN" {
		t.Fatalf("expected WARN for failed event, got %v", rec["level"])
	}
	if rec["scheme"] != "API_KEY" || rec["component"] != "audit" {
		t.Fatalf("expected metadata and component attrs, got %v", rec)
	}
}

type blockingSink struct {
	entered chan struct{}
	release chan struct{}
	recordingSink
}

func (b *blockingSink) Emit(ctx context.Context, e Event) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	b.recordingSink.Emit(ctx, e)
}

func TestDispatcherDropIfFullCountsAndThrottlesWarnings(t *testing.T) {
	var logs bytes.Buffer
	sink := &blockingSink{entered: make(chan struct{}, 1), release: make(chan struct{})}
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
		Logger:     slog.New(slog.NewJSONHandler(&logs, nil)),
	}, sink)

	d.Emit(context.Background(), Event{EventType: "first"})
	<-sink.entered // worker is now parked inside the sink

	d.Emit(context.Background(), Event{EventType: "buffered"})
	for i := 0; i < 3; i++ {
		d.Emit(context.Background(), Event{EventType: "overflow"})
	}

	if got := d.Dropped(); got != 3 {
		t.Fatalf("expected 3 drops, got %d", got)
	}
	if got := d.Pending(); got != 1 {
		t.Fatalf("expected 1 pending event, got %d", got)
	}

	close(sink.release)
	d.Close()

	if got := sink.len(); got != 2 {
		t.Fatalf("expected 2 delivered events, got %d", got)
	}
	if got := strings.Count(logs.String(), "audit event dropped"); got != 2 {
		t.Fatalf("expected warnings on drop 1 and 2 only, got %d:\n%s", got, logs.String())
	}
}

type panickingSink struct{ recordingSink }

func (p *panickingSink) Emit(ctx context.Context, e Event) {
	if e.EventType == "boom" {
		panic("sink exploded")
	}
	p.recordingSink.Emit(ctx, e)
}

func TestDispatcherSurvivesSinkPanic(t *testing.T) {
	sink := &panickingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)

	d.Emit(context.Background(), Event{EventType: "boom"})
	d.Emit(context.Background(), Event{EventType: "login_success", Success: true})
	d.Close()

	if got := d.SinkPanics(); got != 1 {
		t.Fatalf("expected 1 recovered panic, got %d", got)
	}
	if got := sink.len(); got != 1 {
		t.Fatalf("expected delivery to continue after panic, got %d events", got)
	}
}
