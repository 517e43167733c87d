// Package heart runs the effect loop: it drains control directives, asks the
// cursor for the current frame and forwards it to the device sink.
package heart

import (
	"context"
	"log/slog"
	"time"

	"github.com/smazurov/lightnode/internal/device"
	"github.com/smazurov/lightnode/internal/events"
	"github.com/smazurov/lightnode/internal/metrics"
	"github.com/smazurov/lightnode/internal/pattern"
	"k8s.io/utils/clock"
)

// DefaultDelay is the tick interval when Options.Delay is unset.
const DefaultDelay = 100 * time.Millisecond

// Sink is the device side of the loop.
type Sink interface {
	Maintain(ctx context.Context)
	Send(cmd device.Command) error
	Configure(cfg device.Config)
	Reconnect()
}

// PatternSource loads patterns by name.
type PatternSource interface {
	Load(name string) (pattern.Pattern, error)
}

// Options configures a Heart.
type Options struct {
	Directives <-chan Directive
	Sink       Sink
	Patterns   PatternSource
	Delay      time.Duration
	Policy     LoadPolicy
	// KeepRunningOnSendError keeps the animation playing after a failed write.
	KeepRunningOnSendError bool
	Clock                  clock.Clock
	EventBus               *events.Bus
	Logger                 *slog.Logger
}

// Heart owns the cursor. Nothing outside Run touches it.
type Heart struct {
	directives  <-chan Directive
	sink        Sink
	patterns    PatternSource
	delay       time.Duration
	stopOnError bool
	cursor      *Cursor
	clock       clock.Clock
	bus         *events.Bus
	logger      *slog.Logger

	published events.CursorStateEvent
}

// New creates the effect loop.
func New(opts Options) *Heart {
	h := &Heart{
		directives:  opts.Directives,
		sink:        opts.Sink,
		patterns:    opts.Patterns,
		delay:       opts.Delay,
		stopOnError: !opts.KeepRunningOnSendError,
		cursor:      NewCursor(opts.Policy),
		clock:       opts.Clock,
		bus:         opts.EventBus,
		logger:      opts.Logger,
	}
	if h.delay <= 0 {
		h.delay = DefaultDelay
	}
	if h.clock == nil {
		h.clock = clock.RealClock{}
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// Run loads the startup pattern and ticks until ctx is done or the directive
// channel is closed. Channel closure is the only error returned.
func (h *Heart) Run(ctx context.Context) error {
	h.logger.Info("Heart started", "delay", h.delay)
	h.loadPattern(pattern.StartupName)
	h.publishState(true)

	for {
		if err := h.tick(ctx); err != nil {
			h.logger.Error("Heart stopped", "error", err)
			return err
		}

		select {
		case <-ctx.Done():
			h.logger.Info("Heart stopped")
			return nil
		case <-h.clock.After(h.delay):
		}
	}
}

func (h *Heart) tick(ctx context.Context) error {
	h.sink.Maintain(ctx)

	select {
	case d, ok := <-h.directives:
		if !ok {
			return ErrDirectivesClosed
		}
		h.apply(d)
	default:
	}

	for _, cmd := range h.cursor.Messages() {
		if err := h.sink.Send(cmd); err != nil {
			if device.IsCode(err, device.ErrCodeNotConnected) {
				h.logger.Debug("Frame dropped, device not connected", "frame", h.cursor.Frame())
				break
			}
			h.logger.Warn("Failed to send frame", "command", cmd.String(), "error", err)
			if h.stopOnError {
				h.cursor.Stop()
			}
			break
		}
	}

	h.cursor.Advance()

	metrics.RecordTick()
	_, p := h.cursor.Pattern()
	metrics.SetCursor(h.cursor.Frame(), h.cursor.Running(), p.Len())
	h.publishState(false)
	return nil
}

func (h *Heart) apply(d Directive) {
	h.logger.Debug("Directive received", "directive", d.String())
	metrics.RecordDirective(d.Kind.String())
	h.bus.Publish(events.DirectiveEvent{
		Kind:      d.Kind.String(),
		Argument:  d.Argument(),
		Timestamp: h.clock.Now().Format(time.RFC3339),
	})

	switch d.Kind {
	case DirectiveStop:
		h.cursor.Stop()
	case DirectiveStart:
		h.cursor.Start()
	case DirectiveLoad:
		h.loadPattern(d.Name)
	case DirectiveShow:
		h.cursor.Hold()
		if err := h.sink.Send(d.Command); err != nil {
			h.logger.Warn("Failed to show command", "command", d.Command.String(), "error", err)
		}
	case DirectiveConfigure:
		h.sink.Configure(d.Config)
	case DirectiveReconnect:
		h.sink.Reconnect()
	default:
		h.logger.Warn("Ignoring unknown directive", "directive", d.String())
	}
}

// loadPattern keeps the current pattern when the named one cannot be read.
func (h *Heart) loadPattern(name string) {
	if h.patterns == nil {
		return
	}

	ev := events.PatternLoadedEvent{
		Name:      name,
		Timestamp: h.clock.Now().Format(time.RFC3339),
	}

	p, err := h.patterns.Load(name)
	if err != nil {
		h.logger.Warn("Failed to load pattern, keeping current", "name", name, "error", err)
		ev.Error = err.Error()
		h.bus.Publish(ev)
		return
	}

	h.cursor.Seek(name, p)
	h.logger.Info("Pattern loaded", "name", name, "frames", p.Len())
	ev.Frames = p.Len()
	h.bus.Publish(ev)
}

// publishState emits a CursorStateEvent when playback state or pattern changes.
func (h *Heart) publishState(force bool) {
	name, p := h.cursor.Pattern()
	ev := events.CursorStateEvent{
		Running: h.cursor.Running(),
		Frame:   h.cursor.Frame(),
		Frames:  p.Len(),
		Pattern: name,
	}
	last := h.published
	if !force && last.Running == ev.Running && last.Pattern == ev.Pattern && last.Frames == ev.Frames {
		return
	}
	ev.Timestamp = h.clock.Now().Format(time.RFC3339)
	h.published = ev
	h.bus.Publish(ev)
}
