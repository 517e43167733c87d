package device

import (
	"fmt"
	"strings"

	"github.com/smazurov/lightnode/internal/pattern"
)

// Kind identifies the shape of a Command.
type Kind int

// Command kinds understood by every driver.
const (
	KindOff Kind = iota
	KindOn
	KindBasic
	KindImmediate
)

func (k Kind) String() string {
	switch k {
	case KindOff:
		return "off"
	case KindOn:
		return "on"
	case KindBasic:
		return "basic"
	case KindImmediate:
		return "immediate"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// BasicColor is the closed color set some devices are limited to.
type BasicColor int

// Basic colors.
const (
	Red BasicColor = iota
	Green
	Blue
)

// ParseBasicColor accepts red, green or blue in any case.
func ParseBasicColor(name string) (BasicColor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "red":
		return Red, nil
	case "green":
		return Green, nil
	case "blue":
		return Blue, nil
	default:
		return 0, newError(ErrCodeUnsupported, fmt.Sprintf("unknown basic color %q", name), nil)
	}
}

func (c BasicColor) String() string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	default:
		return fmt.Sprintf("color(%d)", int(c))
	}
}

// Color returns the RGB value of the basic color.
func (c BasicColor) Color() pattern.Color {
	switch c {
	case Red:
		return pattern.RGB(255, 0, 0)
	case Green:
		return pattern.RGB(0, 255, 0)
	case Blue:
		return pattern.RGB(0, 0, 255)
	default:
		return pattern.Black
	}
}

// Command is one outbound device message.
type Command struct {
	Kind    Kind
	Basic   BasicColor
	Color   pattern.Color
	Channel *uint8
}

// Off turns every light off.
func Off() Command {
	return Command{Kind: KindOff}
}

// On turns every light on at full white.
func On() Command {
	return Command{Kind: KindOn}
}

// Basic sets every light to a basic color.
func Basic(c BasicColor) Command {
	return Command{Kind: KindBasic, Basic: c, Color: c.Color()}
}

// Immediate sets one channel to a color.
func Immediate(color pattern.Color, channel uint8) Command {
	ch := channel
	return Command{Kind: KindImmediate, Color: color, Channel: &ch}
}

// ImmediateAll sets every channel to a color.
func ImmediateAll(color pattern.Color) Command {
	return Command{Kind: KindImmediate, Color: color}
}

// RGB resolves the command to the color it displays.
func (c Command) RGB() pattern.Color {
	switch c.Kind {
	case KindOn:
		return pattern.RGB(255, 255, 255)
	case KindBasic:
		return c.Basic.Color()
	case KindImmediate:
		return c.Color
	default:
		return pattern.Black
	}
}

// Equal compares two commands by value.
func (c Command) Equal(other Command) bool {
	if c.Kind != other.Kind || c.Basic != other.Basic || c.Color != other.Color {
		return false
	}
	if c.Channel == nil || other.Channel == nil {
		return c.Channel == nil && other.Channel == nil
	}
	return *c.Channel == *other.Channel
}

func (c Command) String() string {
	switch c.Kind {
	case KindBasic:
		return "basic(" + c.Basic.String() + ")"
	case KindImmediate:
		if c.Channel == nil {
			return fmt.Sprintf("immediate(%s, all)", c.Color.Hex())
		}
		return fmt.Sprintf("immediate(%s, %d)", c.Color.Hex(), *c.Channel)
	default:
		return c.Kind.String()
	}
}
