package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusPublishSubscribe(t *testing.T) {
	bus := NewEventBus()

	var received []Event
	bus.Subscribe(TypeReservationCreated, func(event Event) error {
		received = append(received, event)
		return nil
	})

	bus.Publish(Event{Type: TypeReservationCreated, Payload: []byte(`{"reservation_id":"RES-1"}`)})
	bus.Publish(Event{Type: TypeReservationCancelled, Payload: []byte(`{}`)})

	assert.Len(t, received, 1)
	assert.Equal(t, TypeReservationCreated, received[0].Type)
	assert.False(t, received[0].CreatedAt.IsZero())
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()

	calls := 0
	handler := func(Event) error { calls++; return nil }
	bus.Subscribe(TypeReservationConfirmed, handler)
	bus.Subscribe(TypeReservationConfirmed, handler)

	bus.Publish(Event{Type: TypeReservationConfirmed})
	assert.Equal(t, 2, calls)
}

func TestPublishJSON(t *testing.T) {
	bus := NewEventBus()

	var payload map[string]interface{}
	bus.Subscribe(TypeReservationCancelled, func(event Event) error {
		return json.Unmarshal(event.Payload, &payload)
	})

	err := bus.PublishJSON(TypeReservationCancelled, map[string]interface{}{
		"reservation_id": "RES-2025-AAAAAA",
		"refund_amount":  66750,
	})
	assert.NoError(t, err)
	assert.Equal(t, "RES-2025-AAAAAA", payload["reservation_id"])
}

func TestPublishJSONMarshalFailure(t *testing.T) {
	bus := NewEventBus()
	err := bus.PublishJSON(TypeReservationCreated, make(chan int))
	assert.Error(t, err)
}
