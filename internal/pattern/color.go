package pattern

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is a literal RGB triple.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Black is the color every unassigned channel falls back to.
var Black = Color{}

// RGB builds a Color from its three channels.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// ParseHex parses "#rrggbb", "rrggbb" or the short "#rgb" form.
func ParseHex(input string) (Color, error) {
	value := strings.TrimSpace(input)
	if value == "" {
		return Black, fmt.Errorf("empty hex color")
	}
	if !strings.HasPrefix(value, "#") {
		value = "#" + value
	}

	c, err := colorful.Hex(value)
	if err != nil {
		return Black, fmt.Errorf("invalid hex color %q: %w", input, err)
	}

	r, g, b := c.RGB255()
	return RGB(r, g, b), nil
}

// Hex formats the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Colorful converts to a go-colorful value for blending and distance math.
func (c Color) Colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

// FromColorful clamps a go-colorful value back into an 8-bit triple.
func FromColorful(c colorful.Color) Color {
	r, g, b := c.Clamped().RGB255()
	return RGB(r, g, b)
}

func (c Color) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.R, c.G, c.B)
}
