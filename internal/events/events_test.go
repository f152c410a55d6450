package events

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	handler := func(event *Event) error {
		received = event
		callCount++
		return nil
	}

	bus.Subscribe("test_event", handler)

	payload := map[string]string{"foo": "bar"}
	err := bus.PublishJSON("test_event", payload)
	if err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}

	if received.Type != "test_event" {
		t.Errorf("expected type test_event, got %s", received.Type)
	}

	var decoded map[string]string
	if err := json.Unmarshal(received.Payload, &decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}

	if decoded["foo"] != "bar" {
		t.Errorf("expected foo=bar, got %s", decoded["foo"])
	}
}

func TestEventBusSubscribeAll(t *testing.T) {
	bus := NewEventBus()
	seen := map[string]int{}
	bus.SubscribeAll(func(e *Event) error { seen[e.Type]++; return nil })

	for _, typ := range AllReservationEvents {
		if err := bus.PublishJSON(typ, ReservationEventPayload{ReservationID: 1}); err != nil {
			t.Fatalf("PublishJSON failed: %v", err)
		}
	}

	if len(seen) != len(AllReservationEvents) {
		t.Fatalf("expected %d event types, got %d", len(AllReservationEvents), len(seen))
	}
	for typ, n := range seen {
		if n != 1 {
			t.Errorf("expected one %s, got %d", typ, n)
		}
	}
}

func TestEventBusHandlerError(t *testing.T) {
	bus := NewEventBus()
	var reported error
	bus.OnError(func(_ *Event, err error) { reported = err })

	var secondCalled bool
	bus.Subscribe("event", func(_ *Event) error { return errors.New("boom") })
	bus.Subscribe("event", func(_ *Event) error { secondCalled = true; return nil })

	if err := bus.PublishJSON("event", nil); err != nil {
		t.Fatalf("handler error leaked to publisher: %v", err)
	}
	if reported == nil || reported.Error() != "boom" {
		t.Errorf("expected boom to be reported, got %v", reported)
	}
	if !secondCalled {
		t.Error("second handler was not called")
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	// Should not panic
	bus.Publish(&Event{Type: "unknown"})
	err := bus.PublishJSON("unknown", nil)
	if err != nil {
		t.Errorf("PublishJSON failed: %v", err)
	}
}

func TestNilBusPublishJSON(t *testing.T) {
	var bus *EventBus
	if err := bus.PublishJSON("event", 1); err != nil {
		t.Errorf("nil bus should ignore events, got %v", err)
	}
}

func TestEventDecode(t *testing.T) {
	bus := NewEventBus()
	var got ReservationEventPayload
	bus.Subscribe(EventReservationApproved, func(e *Event) error {
		var err error
		got, err = e.Decode()
		return err
	})

	in := ReservationEventPayload{ReservationID: 7, RoomID: 3, StartDate: "2026-01-10", EndDate: "2026-01-15", Status: "APPROVED"}
	if err := bus.PublishJSON(EventReservationApproved, in); err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}
	if got != in {
		t.Errorf("expected %+v, got %+v", in, got)
	}
}
