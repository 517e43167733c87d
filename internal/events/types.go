package events

// Event type constants for kelindar/event.
const (
	TypeCursorState uint32 = iota + 1
	TypeDeviceState
	TypeDirective
	TypePatternLoaded
	TypeHotplug
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// CursorStateEvent is published by the heart when playback state changes.
type CursorStateEvent struct {
	Running   bool   `json:"running" example:"true" doc:"Whether the animation is playing"`
	Frame     uint8  `json:"frame" example:"3" doc:"Current frame index"`
	Frames    int    `json:"frames" example:"12" doc:"Number of frames in the active pattern"`
	Pattern   string `json:"pattern" example:"init.txt" doc:"Name of the active pattern"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CursorStateEvent.
func (e CursorStateEvent) Type() uint32 { return TypeCursorState }

// DeviceStateEvent is published by the device manager on connection transitions.
type DeviceStateEvent struct {
	Kind      string `json:"kind" example:"serial" doc:"Driver kind"`
	Device    string `json:"device" example:"/dev/ttyACM0" doc:"Device path or address"`
	Connected bool   `json:"connected" example:"true" doc:"Whether a handle is open"`
	Error     string `json:"error,omitempty" example:"write failed" doc:"Reason the connection was dropped"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceStateEvent.
func (e DeviceStateEvent) Type() uint32 { return TypeDeviceState }

// DirectiveEvent records a directive consumed by the heart.
type DirectiveEvent struct {
	Kind      string `json:"kind" example:"load" doc:"Directive kind"`
	Argument  string `json:"argument,omitempty" example:"rainbow.txt" doc:"Directive argument"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DirectiveEvent.
func (e DirectiveEvent) Type() uint32 { return TypeDirective }

// PatternLoadedEvent is published after a Load directive, successful or not.
type PatternLoadedEvent struct {
	Name      string `json:"name" example:"rainbow.txt" doc:"Pattern name"`
	Frames    int    `json:"frames" example:"12" doc:"Number of frames"`
	Error     string `json:"error,omitempty" doc:"Load failure, empty on success"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PatternLoadedEvent.
func (e PatternLoadedEvent) Type() uint32 { return TypePatternLoaded }

// HotplugEvent represents a kernel device add/remove notification.
type HotplugEvent struct {
	Action    string `json:"action" example:"add" doc:"Action type: add, remove, change"`
	Subsystem string `json:"subsystem" example:"tty" doc:"Kernel subsystem"`
	DevPath   string `json:"devpath" example:"/devices/platform/usb1/tty/ttyACM0" doc:"Kernel device path"`
	DevName   string `json:"devname,omitempty" example:"ttyACM0" doc:"Device node name"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for HotplugEvent.
func (e HotplugEvent) Type() uint32 { return TypeHotplug }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"heart" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
