package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers. A nil bus drops the event.
// Usage: bus.Publish(CursorStateEvent{...})
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	// kelindar/event is generic over the concrete type
	switch e := ev.(type) {
	case CursorStateEvent:
		event.Publish(b.dispatcher, e)
	case DeviceStateEvent:
		event.Publish(b.dispatcher, e)
	case DirectiveEvent:
		event.Publish(b.dispatcher, e)
	case PatternLoadedEvent:
		event.Publish(b.dispatcher, e)
	case HotplugEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler type determines which events it receives.
// Returns an unsubscribe function. Subscribing to a nil bus is a no-op.
// Usage: unsub := bus.Subscribe(func(e DeviceStateEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	if b == nil {
		return func() {}
	}
	switch h := handler.(type) {
	case func(CursorStateEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceStateEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DirectiveEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PatternLoadedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(HotplugEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}
