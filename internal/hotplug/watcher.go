package hotplug

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/lightnode/internal/device"
	"github.com/smazurov/lightnode/internal/events"
	"github.com/smazurov/lightnode/internal/heart"
	"k8s.io/utils/clock"
)

// DefaultDebounce collapses the burst of uevents one plug-in produces.
const DefaultDebounce = time.Second

// Monitor produces kernel uevents until ctx is done. Run closes out on return.
type Monitor interface {
	Run(ctx context.Context, out chan<- Event) error
	Close() error
}

// DirectiveSender accepts directives without blocking.
type DirectiveSender interface {
	TrySend(d heart.Directive) error
}

// Options configures a Watcher.
type Options struct {
	Monitor  Monitor
	Sender   DirectiveSender
	Device   device.Config
	EventBus *events.Bus
	Debounce time.Duration
	Clock    clock.PassiveClock
	Logger   *slog.Logger
}

// Watcher matches uevents against the configured light device. Every match
// is published; an add or bind also queues a Reconnect so the device manager
// skips the rest of its cooldown.
type Watcher struct {
	monitor  Monitor
	sender   DirectiveSender
	bus      *events.Bus
	debounce time.Duration
	clock    clock.PassiveClock
	logger   *slog.Logger

	mu        sync.Mutex
	device    device.Config
	lastRetry time.Time
}

// New creates a Watcher.
func New(opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Watcher{
		monitor:  opts.Monitor,
		sender:   opts.Sender,
		bus:      opts.EventBus,
		debounce: opts.Debounce,
		clock:    opts.Clock,
		logger:   opts.Logger,
		device:   opts.Device.WithDefaults(),
	}
}

// SetDevice replaces the device description used for matching.
func (w *Watcher) SetDevice(cfg device.Config) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.device = cfg.WithDefaults()
}

// Run consumes monitor events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	ch := make(chan Event, 16)
	errCh := make(chan error, 1)
	go func() { errCh <- w.monitor.Run(ctx, ch) }()

	w.logger.Info("Hotplug watcher started")
	for ev := range ch {
		w.Handle(ev)
	}

	err := <-errCh
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Handle processes one uevent and reports whether it concerned the light device.
func (w *Watcher) Handle(ev Event) bool {
	w.mu.Lock()
	cfg := w.device
	w.mu.Unlock()

	if !Matches(ev, cfg) {
		return false
	}

	w.logger.Info("Light device event", "action", ev.Action, "subsystem", ev.Subsystem, "devname", ev.DevName)
	w.bus.Publish(events.HotplugEvent{
		Action:    ev.Action,
		Subsystem: ev.Subsystem,
		DevPath:   ev.DevPath,
		DevName:   ev.DevName,
		Timestamp: w.clock.Now().Format(time.RFC3339),
	})

	if ev.Action != ActionAdd && ev.Action != ActionBind {
		return true
	}

	now := w.clock.Now()
	w.mu.Lock()
	recent := !w.lastRetry.IsZero() && now.Sub(w.lastRetry) < w.debounce
	if !recent {
		w.lastRetry = now
	}
	w.mu.Unlock()
	if recent {
		return true
	}

	if err := w.sender.TrySend(heart.Reconnect()); err != nil {
		w.logger.Warn("Failed to queue reconnect", "error", err)
	}
	return true
}

// Close releases the monitor.
func (w *Watcher) Close() error {
	return w.monitor.Close()
}

// Matches reports whether ev refers to the device described by cfg.
func Matches(ev Event, cfg device.Config) bool {
	switch cfg.Kind {
	case device.KindSerial:
		if ev.Subsystem != SubsystemTTY || ev.DevName == "" {
			return false
		}
		name := filepath.Base(ev.DevName)
		for _, candidate := range serialNames(cfg.Device) {
			if name == candidate {
				return true
			}
		}
		return false
	case device.KindBlink:
		if ev.Subsystem != SubsystemUSB || ev.DevType != "usb_device" {
			return false
		}
		// PRODUCT is vid/pid/bcdDevice in lowercase hex without padding
		prefix := fmt.Sprintf("%x/%x/", cfg.VendorID, cfg.ProductID)
		return strings.HasPrefix(ev.Env["PRODUCT"], prefix)
	case device.KindSysfs:
		return ev.Subsystem == SubsystemLEDs && cfg.Device != "" && filepath.Base(ev.KObj) == cfg.Device
	default:
		return false
	}
}

// serialNames lists the node names a configured serial path can appear as.
// Stable /dev/serial/by-id links resolve to the tty they currently point at.
func serialNames(path string) []string {
	if path == "" {
		return nil
	}
	names := []string{filepath.Base(path)}
	if resolved, err := filepath.EvalSymlinks(path); err == nil && resolved != path {
		names = append(names, filepath.Base(resolved))
	}
	return names
}
