package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DispatcherConfig holds tuning for the background delivery loop.
type DispatcherConfig struct {
	// QueueSize bounds the number of undelivered notifications. When the
	// queue is full new notifications are dropped, never blocked on.
	QueueSize int

	// DeliveryTimeout caps a single transport call.
	DeliveryTimeout time.Duration
}

// DefaultDispatcherConfig returns sensible defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		QueueSize:       64,
		DeliveryTimeout: 10 * time.Second,
	}
}

type notification struct {
	collection string
	data       any
}

// Dispatcher decouples mutations from mirror delivery: Sync enqueues and
// returns immediately, a single background worker performs the transport
// calls. Failures are logged and swallowed.
type Dispatcher struct {
	transport Transport
	config    DispatcherConfig
	queue     chan notification

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewDispatcher(transport Transport, config DispatcherConfig) *Dispatcher {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultDispatcherConfig().QueueSize
	}
	if config.DeliveryTimeout <= 0 {
		config.DeliveryTimeout = DefaultDispatcherConfig().DeliveryTimeout
	}
	return &Dispatcher{
		transport: transport,
		config:    config,
		queue:     make(chan notification, config.QueueSize),
	}
}

// Start begins the delivery loop. Returns an error if already running.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("mirror dispatcher is already running")
	}
	d.running = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	d.mu.Unlock()

	go d.runLoop(ctx)

	slog.InfoContext(ctx, "Mirror dispatcher started",
		"queue_size", d.config.QueueSize,
		"delivery_timeout", d.config.DeliveryTimeout)
	return nil
}

// Stop signals the loop to finish and waits for it or the context.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	close(d.stopCh)

	select {
	case <-d.doneCh:
		slog.InfoContext(ctx, "Mirror dispatcher stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Mirror dispatcher stop timed out")
		return ctx.Err()
	}

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
	return nil
}

// IsRunning reports whether the delivery loop is active.
func (d *Dispatcher) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Sync implements Notifier. It never blocks: when the queue is full the
// notification is dropped with a warning, since a later mutation will carry
// the newer snapshot anyway.
func (d *Dispatcher) Sync(ctx context.Context, collection string, data any) {
	select {
	case d.queue <- notification{collection: collection, data: data}:
	default:
		slog.WarnContext(ctx, "Mirror queue full, dropping notification",
			"collection", collection)
	}
}

func (d *Dispatcher) runLoop(ctx context.Context) {
	defer close(d.doneCh)

	for {
		select {
		case <-d.stopCh:
			d.drain(ctx)
			return
		case <-ctx.Done():
			return
		case n := <-d.queue:
			d.deliver(ctx, n)
		}
	}
}

// drain makes a best effort to flush what is already queued at shutdown.
func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case n := <-d.queue:
			d.deliver(ctx, n)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n notification) {
	dctx, cancel := context.WithTimeout(ctx, d.config.DeliveryTimeout)
	defer cancel()

	if err := d.transport.Sync(dctx, n.collection, n.data); err != nil {
		slog.WarnContext(ctx, "Mirror delivery failed",
			"collection", n.collection,
			"error", err)
		return
	}
	slog.DebugContext(ctx, "Mirror delivery completed", "collection", n.collection)
}
