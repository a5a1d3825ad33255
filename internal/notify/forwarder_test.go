package notify

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"villabook/internal/events"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type captureNotifier struct {
	mu    sync.Mutex
	types []string
}

func (c *captureNotifier) Notify(_ context.Context, eventType string, _ []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types = append(c.types, eventType)
	return nil
}

func (c *captureNotifier) seen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.types...)
}

func TestForwarderDeliversBusEvents(t *testing.T) {
	bus := events.NewEventBus()
	notifier := &captureNotifier{}
	logger := zerolog.New(io.Discard)

	f := NewForwarder(bus, notifier, 100, 100, 16, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.Run(ctx)

	assert.NoError(t, bus.PublishJSON(events.TypeReservationCreated, map[string]string{"reservation_id": "RES-1"}))
	assert.NoError(t, bus.PublishJSON(events.TypeReservationCancelled, map[string]string{"reservation_id": "RES-1"}))

	assert.Eventually(t, func() bool {
		return len(notifier.seen()) == 2
	}, time.Second, 10*time.Millisecond)

	seen := notifier.seen()
	assert.Contains(t, seen, events.TypeReservationCreated)
	assert.Contains(t, seen, events.TypeReservationCancelled)
}

func TestForwarderDropsWhenQueueFull(t *testing.T) {
	bus := events.NewEventBus()
	notifier := &captureNotifier{}
	logger := zerolog.New(io.Discard)

	// Run is never started: the queue fills and overflow is dropped
	// without blocking the publisher.
	f := NewForwarder(bus, notifier, 1, 1, 2, &logger)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = bus.PublishJSON(events.TypeReservationCreated, map[string]int{"n": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a full notification queue")
	}
	assert.Len(t, f.queue, 2)
}

func TestForwarderStopsOnContextCancel(t *testing.T) {
	bus := events.NewEventBus()
	notifier := &captureNotifier{}
	logger := zerolog.New(io.Discard)

	f := NewForwarder(bus, notifier, 100, 100, 16, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		f.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("forwarder did not stop on context cancel")
	}
}
