package heart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smazurov/lightnode/internal/device"
)

// ErrDirectivesClosed is returned by Run when the directive channel is closed.
var ErrDirectivesClosed = errors.New("directive channel closed")

// ErrMailboxFull is returned by TrySend when the mailbox has no room.
var ErrMailboxFull = errors.New("directive mailbox full")

// DirectiveKind identifies a directive.
type DirectiveKind int

// Directive kinds.
const (
	DirectiveStop DirectiveKind = iota
	DirectiveStart
	DirectiveLoad
	DirectiveShow
	DirectiveConfigure
	DirectiveReconnect
)

func (k DirectiveKind) String() string {
	switch k {
	case DirectiveStop:
		return "stop"
	case DirectiveStart:
		return "start"
	case DirectiveLoad:
		return "load"
	case DirectiveShow:
		return "show"
	case DirectiveConfigure:
		return "configure"
	case DirectiveReconnect:
		return "reconnect"
	default:
		return fmt.Sprintf("directive(%d)", int(k))
	}
}

// Directive is a control message consumed by the effect loop.
type Directive struct {
	Kind    DirectiveKind
	Name    string
	Command device.Command
	Config  device.Config
}

// Stop halts the animation and turns the device off once.
func Stop() Directive { return Directive{Kind: DirectiveStop} }

// Start resumes the animation.
func Start() Directive { return Directive{Kind: DirectiveStart} }

// Load swaps in the named pattern.
func Load(name string) Directive { return Directive{Kind: DirectiveLoad, Name: name} }

// Show holds the animation and sends cmd directly.
func Show(cmd device.Command) Directive { return Directive{Kind: DirectiveShow, Command: cmd} }

// Configure replaces the device description.
func Configure(cfg device.Config) Directive { return Directive{Kind: DirectiveConfigure, Config: cfg} }

// Reconnect forces the device connection to be reopened.
func Reconnect() Directive { return Directive{Kind: DirectiveReconnect} }

// Argument is the directive's payload for logs and events.
func (d Directive) Argument() string {
	switch d.Kind {
	case DirectiveLoad:
		return d.Name
	case DirectiveShow:
		return d.Command.String()
	case DirectiveConfigure:
		return d.Config.Kind + " " + d.Config.Target()
	default:
		return ""
	}
}

func (d Directive) String() string {
	if arg := d.Argument(); arg != "" {
		return d.Kind.String() + "(" + arg + ")"
	}
	return d.Kind.String()
}

// ParseMode maps a control mode to a directive: off stops, on starts, load
// needs a pattern name.
func ParseMode(mode, patternName string) (Directive, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "off":
		return Stop(), nil
	case "on":
		return Start(), nil
	case "load":
		if strings.TrimSpace(patternName) == "" {
			return Directive{}, fmt.Errorf("mode load requires a pattern name")
		}
		return Load(strings.TrimSpace(patternName)), nil
	default:
		return Directive{}, fmt.Errorf("unknown mode %q (want off, on or load)", mode)
	}
}

// Control is the producer side of the directive mailbox.
type Control struct {
	ch chan Directive
}

// NewControl creates a bounded mailbox and returns the producer handle.
func NewControl(capacity int) *Control {
	if capacity < 1 {
		capacity = 1
	}
	return &Control{ch: make(chan Directive, capacity)}
}

// Directives returns the consumer side for the effect loop.
func (c *Control) Directives() <-chan Directive {
	return c.ch
}

// Send enqueues d, waiting for room until ctx is done.
func (c *Control) Send(ctx context.Context, d Directive) error {
	select {
	case c.ch <- d:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend enqueues d without blocking.
func (c *Control) TrySend(d Directive) error {
	select {
	case c.ch <- d:
		return nil
	default:
		return ErrMailboxFull
	}
}

// Close closes the mailbox; the effect loop then exits with ErrDirectivesClosed.
func (c *Control) Close() {
	close(c.ch)
}
