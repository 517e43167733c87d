package pattern

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fogleman/ease"
)

// Easing maps progress in [0,1] to eased progress.
type Easing func(float64) float64

var easings = map[string]Easing{
	"linear":       ease.Linear,
	"in-quad":      ease.InQuad,
	"out-quad":     ease.OutQuad,
	"in-out-quad":  ease.InOutQuad,
	"in-cubic":     ease.InCubic,
	"out-cubic":    ease.OutCubic,
	"in-out-cubic": ease.InOutCubic,
	"in-sine":      ease.InSine,
	"out-sine":     ease.OutSine,
	"in-out-sine":  ease.InOutSine,
}

// EasingNames lists the names accepted by LookupEasing.
func EasingNames() []string {
	names := make([]string, 0, len(easings))
	for name := range easings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupEasing resolves an easing by name.
func LookupEasing(name string) (Easing, error) {
	fn, ok := easings[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown easing %q (want one of %s)", name, strings.Join(EasingNames(), ", "))
	}
	return fn, nil
}

// Fade builds a pattern of frames blending from one color to another in Lab space.
// Every channel in r gets the same color in a frame. frames must be in [2, 256].
func Fade(from, to Color, frames int, r ChannelRange, easing Easing) (Pattern, error) {
	if frames < 2 || frames > 256 {
		return Pattern{}, fmt.Errorf("frame count %d out of range [2, 256]", frames)
	}
	if easing == nil {
		easing = ease.Linear
	}

	start, end := from.Colorful(), to.Colorful()
	table := make(map[uint8]Frame, frames)
	for i := 0; i < frames; i++ {
		t := easing(float64(i) / float64(frames-1))
		var c Color
		switch {
		case t <= 0:
			c = from
		case t >= 1:
			c = to
		default:
			c = FromColorful(start.BlendLab(end, t))
		}

		frame := make(Frame)
		for _, ch := range r.Channels() {
			frame[ch] = c
		}
		table[uint8(i)] = frame
	}
	return New(table), nil
}
