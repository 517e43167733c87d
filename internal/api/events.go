package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/lightnode/internal/events"
)

// registerSSERoutes registers the engine state stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time cursor, device, directive and hotplug events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"cursor-state":   events.CursorStateEvent{},
		"device-state":   events.DeviceStateEvent{},
		"directive":      events.DirectiveEvent{},
		"pattern-loaded": events.PatternLoadedEvent{},
		"hotplug":        events.HotplugEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.CursorStateEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.DeviceStateEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.DirectiveEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.PatternLoadedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.HotplugEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// New clients get the current state before any change
		status := s.status.Snapshot()
		initial := events.CursorStateEvent{
			Running:   status.Running,
			Frame:     status.Frame,
			Frames:    status.Frames,
			Pattern:   status.Pattern,
			Timestamp: time.Now().Format(time.RFC3339),
		}
		if err := send.Data(initial); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
