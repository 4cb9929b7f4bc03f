package events

import (
	"encoding/json"
	"testing"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	bus.Subscribe(EventQueueAppended, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	payload := QueueEventPayload{BookingID: "b1", RoomNumber: 204, HotelID: "h1", Today: "2026-08-31", QueueDepth: 1}
	if err := bus.PublishJSON(EventQueueAppended, payload); err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if received.Type != EventQueueAppended {
		t.Errorf("expected type %s, got %s", EventQueueAppended, received.Type)
	}

	var decoded QueueEventPayload
	if err := json.Unmarshal(received.Payload, &decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded.BookingID != "b1" || decoded.QueueDepth != 1 {
		t.Errorf("unexpected payload: %+v", decoded)
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var count1, count2 int

	bus.Subscribe("event", func(_ *Event) error { count1++; return nil })
	bus.Subscribe("event", func(_ *Event) error { count2++; return nil })

	bus.Publish(&Event{Type: "event"})

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both handlers to be called once, got %d and %d", count1, count2)
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	// Publishing with no subscribers must not panic.
	bus.Publish(&Event{Type: "unknown"})
}

func TestEventBusOnlyMatchingType(t *testing.T) {
	bus := NewEventBus()
	var called bool

	bus.Subscribe(EventConnectivityChanged, func(_ *Event) error { called = true; return nil })
	bus.Publish(&Event{Type: EventQueueDrained})

	if called {
		t.Error("handler for a different event type was called")
	}
}

func TestPublishJSONNilBus(t *testing.T) {
	var bus *EventBus
	if err := bus.PublishJSON("event", map[string]string{"k": "v"}); err != nil {
		t.Errorf("nil bus should be a no-op, got %v", err)
	}
}

func TestPublishSetsCreatedAt(t *testing.T) {
	bus := NewEventBus()
	var received *Event
	bus.Subscribe("event", func(event *Event) error { received = event; return nil })

	bus.Publish(&Event{Type: "event"})

	if received == nil || received.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set on publish")
	}
}
