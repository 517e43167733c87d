package api

import (
	"sync"

	"github.com/smazurov/lightnode/internal/api/models"
	"github.com/smazurov/lightnode/internal/device"
	"github.com/smazurov/lightnode/internal/events"
)

// StatusTracker keeps the latest cursor and device state seen on the event bus.
// The engine never shares its state directly; this is the API's read model.
type StatusTracker struct {
	mu     sync.RWMutex
	status models.StatusData
	unsubs []func()
}

// NewStatusTracker subscribes to engine events. cfg seeds the device fields
// until the first DeviceStateEvent arrives. A nil bus yields a static tracker.
func NewStatusTracker(bus *events.Bus, cfg device.Config) *StatusTracker {
	cfg = cfg.WithDefaults()
	t := &StatusTracker{
		status: models.StatusData{
			Device: models.DeviceStatus{
				Kind:   cfg.Kind,
				Device: cfg.Target(),
			},
		},
	}
	if bus == nil {
		return t
	}

	t.unsubs = []func(){
		bus.Subscribe(t.onCursor),
		bus.Subscribe(t.onDevice),
		bus.Subscribe(t.onPatternLoaded),
	}
	return t
}

func (t *StatusTracker) onCursor(e events.CursorStateEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Running = e.Running
	t.status.Frame = e.Frame
	t.status.Frames = e.Frames
	t.status.Pattern = e.Pattern
	t.status.UpdatedAt = e.Timestamp
}

func (t *StatusTracker) onDevice(e events.DeviceStateEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Device = models.DeviceStatus{
		Kind:      e.Kind,
		Device:    e.Device,
		Connected: e.Connected,
		LastError: e.Error,
	}
	t.status.UpdatedAt = e.Timestamp
}

func (t *StatusTracker) onPatternLoaded(e events.PatternLoadedEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.LastLoad = &models.PatternLoadStatus{
		Name:   e.Name,
		Frames: e.Frames,
		Error:  e.Error,
	}
	t.status.UpdatedAt = e.Timestamp
}

// Snapshot returns a copy of the current status.
func (t *StatusTracker) Snapshot() models.StatusData {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := t.status
	if out.LastLoad != nil {
		load := *out.LastLoad
		out.LastLoad = &load
	}
	return out
}

// Close removes the event subscriptions.
func (t *StatusTracker) Close() {
	t.mu.Lock()
	unsubs := t.unsubs
	t.unsubs = nil
	t.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
}
