package audit

import (
	"context"
	"log/slog"
	"math/bits"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull discards events when the buffer is full instead of
	// blocking the emitting request.
	DropIfFull bool
	// Logger receives drop and sink-panic warnings. Nil discards them.
	Logger *slog.Logger
}

// Dispatcher relays audit events to a [Sink] from a single background
// goroutine, so request paths never wait on sink I/O unless configured to.
type Dispatcher struct {
	cfg  Config
	sink Sink
	log  *slog.Logger

	ch   chan Event
	done chan struct{}
	wg   sync.WaitGroup

	dropped   atomic.Uint64
	panics    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher, or returns nil when auditing is
// disabled. A nil *Dispatcher is safe to use and does nothing.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	d := &Dispatcher{
		cfg:  cfg,
		sink: sink,
		log:  log.With("component", "audit_dispatcher"),
		ch:   make(chan Event, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			d.drain()
			return
		}
	}
}

// drain delivers whatever is still buffered after Close.
func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.panics.Add(1)
			d.log.Error("audit sink panicked", "event_type", event.EventType, "panic", r)
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event for delivery. With DropIfFull it never blocks; otherwise
// it waits for buffer space until ctx is done or the dispatcher closes.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.recordDrop(event)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.recordDrop(event)
	case <-d.done:
	}
}

// recordDrop counts a lost event and warns on the 1st, 2nd, 4th, 8th... drop
// so a saturated sink cannot flood the log.
func (d *Dispatcher) recordDrop(event Event) {
	n := d.dropped.Add(1)
	if bits.OnesCount64(n) == 1 {
		d.log.Warn("audit event dropped", "event_type", event.EventType, "dropped_total", n, "buffer_size", d.cfg.BufferSize)
	}
}

// Close stops accepting events, flushes the buffer to the sink and waits for
// the background goroutine. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// SinkPanics reports how many deliveries panicked inside the sink.
func (d *Dispatcher) SinkPanics() uint64 {
	if d == nil {
		return 0
	}
	return d.panics.Load()
}

// Pending reports how many events are buffered and not yet delivered.
func (d *Dispatcher) Pending() int {
	if d == nil {
		return 0
	}
	return len(d.ch)
}
