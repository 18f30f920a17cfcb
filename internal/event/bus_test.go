package event

import (
	"log/slog"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus(testLogger())

	var received []Event
	bus.Subscribe(EntityUpdated, func(e Event) {
		received = append(received, e)
	})

	bus.Publish(Event{
		Type: EntityUpdated,
		Data: map[string]any{"entity": "abc"},
	})

	if len(received) != 1 {
		t.Fatalf("got %d events, want 1", len(received))
	}
	if received[0].Data["entity"] != "abc" {
		t.Errorf("data[entity] = %v, want abc", received[0].Data["entity"])
	}
	if received[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewBus(testLogger())

	count := 0
	for i := 0; i < 3; i++ {
		bus.Subscribe(RunCompleted, func(_ Event) {
			count++
		})
	}

	bus.Publish(Event{Type: RunCompleted})

	if count != 3 {
		t.Errorf("got %d handler calls, want 3", count)
	}
}

func TestNoSubscribers(t *testing.T) {
	bus := NewBus(testLogger())

	// Should not panic
	bus.Publish(Event{Type: EntitySkipped})
}

func TestNilBusPublish(t *testing.T) {
	var bus *Bus

	// Should not panic
	bus.Publish(Event{Type: EntityUpdated})
}

func TestHandlerPanicRecovery(t *testing.T) {
	bus := NewBus(testLogger())

	secondCalled := false
	bus.Subscribe(EntityFailed, func(_ Event) {
		panic("test panic")
	})
	bus.Subscribe(EntityFailed, func(_ Event) {
		secondCalled = true
	})

	bus.Publish(Event{Type: EntityFailed})

	if !secondCalled {
		t.Error("second handler should still be called after first panics")
	}
}
