package mirror

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/mirror/memory"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestDispatcherDelivers(t *testing.T) {
	store := memory.New()
	d := NewDispatcher(store, DefaultDispatcherConfig())

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop(ctx)

	d.Sync(ctx, CollectionAccounts, []string{"a1"})
	waitFor(t, time.Second, func() bool { return len(store.Events()) == 1 })

	events := store.Events()
	if events[0].Collection != CollectionAccounts {
		t.Fatalf("collection = %q", events[0].Collection)
	}
}

func TestDispatcherSwallowsTransportFailures(t *testing.T) {
	store := memory.New()
	store.FailWith = errors.New("endpoint unreachable")
	d := NewDispatcher(store, DefaultDispatcherConfig())

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Sync must not block or panic regardless of delivery outcome.
	d.Sync(ctx, CollectionTransactions, []string{"t1"})

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := d.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if len(store.Events()) != 0 {
		t.Fatalf("failed delivery must not be recorded")
	}
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	store := memory.New()
	d := NewDispatcher(store, DispatcherConfig{QueueSize: 1, DeliveryTimeout: time.Second})

	// Not started: the queue fills and overflow is dropped without blocking.
	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		d.Sync(ctx, CollectionAccounts, 1)
		d.Sync(ctx, CollectionAccounts, 2)
		d.Sync(ctx, CollectionAccounts, 3)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Sync blocked on a full queue")
	}
}

func TestDispatcherStartTwice(t *testing.T) {
	d := NewDispatcher(memory.New(), DefaultDispatcherConfig())
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop(ctx)
	if err := d.Start(ctx); err == nil {
		t.Fatalf("second start must fail")
	}
	if !d.IsRunning() {
		t.Fatalf("dispatcher should report running")
	}
}

func TestDispatcherStopDrainsQueue(t *testing.T) {
	store := memory.New()
	d := NewDispatcher(store, DispatcherConfig{QueueSize: 8, DeliveryTimeout: time.Second})
	ctx := context.Background()

	// Enqueue before starting so everything is pending at stop time.
	d.Sync(ctx, CollectionAccounts, 1)
	d.Sync(ctx, CollectionTransactions, 2)

	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := d.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := len(store.Events()); got != 2 {
		t.Fatalf("delivered = %d, want 2", got)
	}
}
