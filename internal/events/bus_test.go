package events

import (
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan DeviceStateEvent, 1)

	unsub := bus.Subscribe(func(e DeviceStateEvent) {
		received <- e
	})
	defer unsub()

	ev := DeviceStateEvent{
		Kind:      "serial",
		Device:    "/dev/ttyACM0",
		Connected: true,
		Timestamp: "2025-01-27T10:30:00Z",
	}
	bus.Publish(ev)

	got := <-received
	if got.Device != ev.Device {
		t.Errorf("Expected device %s, got %s", ev.Device, got.Device)
	}
	if !got.Connected {
		t.Error("Expected connected event")
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan CursorStateEvent, 1)
	received2 := make(chan CursorStateEvent, 1)

	unsub1 := bus.Subscribe(func(e CursorStateEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e CursorStateEvent) {
		received2 <- e
	})
	defer unsub2()

	bus.Publish(CursorStateEvent{Running: true, Pattern: "init.txt"})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan PatternLoadedEvent, 1)

	unsub := bus.Subscribe(func(e PatternLoadedEvent) {
		received <- e
	})

	bus.Publish(PatternLoadedEvent{Name: "a.txt"})
	<-received

	unsub()

	bus.Publish(PatternLoadedEvent{Name: "b.txt"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	cursorReceived := make(chan bool, 1)
	deviceReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ CursorStateEvent) {
		cursorReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ DeviceStateEvent) {
		deviceReceived <- true
	})
	defer unsub2()

	bus.Publish(CursorStateEvent{Running: true})
	<-cursorReceived

	select {
	case <-deviceReceived:
		t.Fatal("Device subscriber should NOT have received CursorStateEvent")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}

	bus.Publish(DeviceStateEvent{Kind: "serial"})
	<-deviceReceived

	select {
	case <-cursorReceived:
		t.Fatal("Cursor subscriber should NOT have received DeviceStateEvent")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)

	unsub := bus.Subscribe(func(_ HotplugEvent) {
		receivedCh <- true
	})
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range eventsPerGoroutine {
				bus.Publish(HotplugEvent{
					Action:    "add",
					Subsystem: "tty",
					Timestamp: time.Now().Format(time.RFC3339),
				})
			}
		}()
	}

	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestBus_AllEventTypes(t *testing.T) {
	bus := New()

	tests := []struct {
		name  string
		event Event
	}{
		{"CursorState", CursorStateEvent{Running: true}},
		{"DeviceState", DeviceStateEvent{Kind: "blink"}},
		{"Directive", DirectiveEvent{Kind: "start"}},
		{"PatternLoaded", PatternLoadedEvent{Name: "init.txt"}},
		{"Hotplug", HotplugEvent{Action: "add"}},
		{"LogEntry", LogEntryEvent{Message: "hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			received := make(chan Event, 1)

			var unsub func()
			switch tt.event.(type) {
			case CursorStateEvent:
				unsub = bus.Subscribe(func(e CursorStateEvent) { received <- e })
			case DeviceStateEvent:
				unsub = bus.Subscribe(func(e DeviceStateEvent) { received <- e })
			case DirectiveEvent:
				unsub = bus.Subscribe(func(e DirectiveEvent) { received <- e })
			case PatternLoadedEvent:
				unsub = bus.Subscribe(func(e PatternLoadedEvent) { received <- e })
			case HotplugEvent:
				unsub = bus.Subscribe(func(e HotplugEvent) { received <- e })
			case LogEntryEvent:
				unsub = bus.Subscribe(func(e LogEntryEvent) { received <- e })
			}
			defer unsub()

			bus.Publish(tt.event)

			select {
			case got := <-received:
				if got.Type() != tt.event.Type() {
					t.Errorf("Expected type %d, got %d", tt.event.Type(), got.Type())
				}
			case <-time.After(100 * time.Millisecond):
				t.Fatalf("Did not receive %s", tt.name)
			}
		})
	}
}

func TestBus_NilBus(_ *testing.T) {
	var bus *Bus
	bus.Publish(CursorStateEvent{})
	bus.Subscribe(func(CursorStateEvent) {})()
	SubscribeToChannel[CursorStateEvent](bus, make(chan any, 1))()
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)

	unsub := SubscribeToChannel[LogEntryEvent](bus, ch)
	defer unsub()

	bus.Publish(LogEntryEvent{Seq: 1})
	bus.Publish(LogEntryEvent{Seq: 2})

	select {
	case got := <-ch:
		if got.(LogEntryEvent).Seq != 1 {
			t.Errorf("Expected seq 1, got %v", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Did not receive log entry")
	}
}
