package heart

import (
	"fmt"
	"strings"

	"github.com/smazurov/lightnode/internal/device"
	"github.com/smazurov/lightnode/internal/pattern"
)

// LoadPolicy decides what Seek does to the play position.
type LoadPolicy int

const (
	// ResetOnLoad rewinds to frame 0 and starts playing.
	ResetOnLoad LoadPolicy = iota
	// ResumeOnLoad keeps the frame index and running flag.
	ResumeOnLoad
)

// ParseLoadPolicy accepts "reset" or "resume".
func ParseLoadPolicy(s string) (LoadPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reset":
		return ResetOnLoad, nil
	case "resume":
		return ResumeOnLoad, nil
	default:
		return ResetOnLoad, fmt.Errorf("unknown load policy %q (want reset or resume)", s)
	}
}

func (p LoadPolicy) String() string {
	if p == ResumeOnLoad {
		return "resume"
	}
	return "reset"
}

// Cursor is the playback state machine. While stopped, frame 0 means the off
// signal is still owed and frame 1 means it has been sent. A held cursor is
// stopped with a directly shown command still lit.
type Cursor struct {
	frame   uint8
	running bool
	held    bool
	pattern pattern.Pattern
	name    string
	policy  LoadPolicy
}

// NewCursor returns a running cursor at frame 0 with an empty pattern.
func NewCursor(policy LoadPolicy) *Cursor {
	return &Cursor{
		running: true,
		policy:  policy,
	}
}

// Frame returns the raw frame index.
func (c *Cursor) Frame() uint8 {
	return c.frame
}

// Running reports whether the animation is playing.
func (c *Cursor) Running() bool {
	return c.running
}

// Pattern returns the active pattern and the name it was loaded under.
func (c *Cursor) Pattern() (string, pattern.Pattern) {
	return c.name, c.pattern
}

// Start resumes playback, rewinding to frame 0 when previously stopped.
func (c *Cursor) Start() {
	if !c.running {
		c.frame = 0
	}
	c.running = true
	c.held = false
}

// Stop halts playback. Stopping a running or held cursor owes one off signal.
func (c *Cursor) Stop() {
	if c.running || c.held {
		c.frame = 0
	}
	c.running = false
	c.held = false
}

// Hold stops playback without owing an off signal, leaving the device as is
// until the next Stop or Start.
func (c *Cursor) Hold() {
	c.running = false
	c.held = true
	c.frame = 1
}

// Held reports whether a directly shown command is holding the animation.
func (c *Cursor) Held() bool {
	return c.held
}

// Seek replaces the active pattern according to the load policy.
func (c *Cursor) Seek(name string, p pattern.Pattern) {
	c.pattern = p
	c.name = name
	if c.policy == ResetOnLoad {
		c.frame = 0
		c.running = true
		c.held = false
	}
}

// Advance moves one tick forward.
func (c *Cursor) Advance() {
	if !c.running {
		if c.frame == 0 {
			c.frame = 1
		}
		return
	}
	if c.pattern.Empty() {
		c.frame = 0
		return
	}
	c.frame++
}

// Messages returns the commands for the current tick in channel order.
func (c *Cursor) Messages() []device.Command {
	if !c.running {
		if c.frame == 0 {
			return []device.Command{device.Off()}
		}
		return nil
	}
	if c.pattern.Empty() {
		return nil
	}

	_, frame, ok := c.pattern.At(int(c.frame) % c.pattern.Len())
	if !ok {
		return nil
	}

	channels := frame.Channels()
	out := make([]device.Command, 0, len(channels))
	for _, ch := range channels {
		out = append(out, device.Immediate(frame[ch], ch))
	}
	return out
}
