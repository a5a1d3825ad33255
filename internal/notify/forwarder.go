// Package notify drains domain events from the bus toward the external
// notification collaborator at a bounded rate. The collaborator owns
// formatting and delivery; this side only forwards facts.
package notify

import (
	"context"

	"villabook/internal/events"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Notifier is the external notification collaborator.
type Notifier interface {
	Notify(ctx context.Context, eventType string, payload []byte) error
}

// Forwarder subscribes to the bus and forwards events through a token
// bucket, so a burst of cancellations cannot flood the collaborator.
type Forwarder struct {
	notifier Notifier
	limiter  *rate.Limiter
	queue    chan events.Event
	logger   *zerolog.Logger
}

// NewForwarder creates a forwarder and subscribes it to the reservation
// events. Run must be started for events to flow.
func NewForwarder(bus *events.EventBus, notifier Notifier, perSecond float64, burst, queueSize int, logger *zerolog.Logger) *Forwarder {
	if perSecond <= 0 {
		perSecond = 5
	}
	if burst <= 0 {
		burst = 10
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	f := &Forwarder{
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		queue:    make(chan events.Event, queueSize),
		logger:   logger,
	}

	for _, eventType := range []string{
		events.TypeReservationCreated,
		events.TypeReservationConfirmed,
		events.TypeReservationCancelled,
	} {
		bus.Subscribe(eventType, f.enqueue)
	}
	return f
}

// enqueue never blocks the publisher; a full queue drops the event with a
// log line rather than stalling a booking operation.
func (f *Forwarder) enqueue(event events.Event) error {
	select {
	case f.queue <- event:
		return nil
	default:
		f.logger.Warn().Str("event", event.Type).Msg("notification queue full, event dropped")
		return nil
	}
}

// Run drains the queue until the context is cancelled.
func (f *Forwarder) Run(ctx context.Context) {
	f.logger.Info().Msg("notification forwarder started")
	for {
		select {
		case <-ctx.Done():
			f.logger.Info().Msg("notification forwarder stopped")
			return
		case event := <-f.queue:
			if err := f.limiter.Wait(ctx); err != nil {
				return
			}
			if err := f.notifier.Notify(ctx, event.Type, event.Payload); err != nil {
				f.logger.Warn().Err(err).Str("event", event.Type).
					Msg("notification delivery failed")
			}
		}
	}
}
