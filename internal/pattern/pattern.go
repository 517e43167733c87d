package pattern

import (
	"fmt"
	"sort"
)

// ChannelRange is the inclusive range of channel ids a device exposes.
type ChannelRange struct {
	Start uint8 `json:"start" toml:"start"`
	End   uint8 `json:"end" toml:"end"`
}

// NewChannelRange orders the bounds so Start <= End.
func NewChannelRange(start, end uint8) ChannelRange {
	if end < start {
		start, end = end, start
	}
	return ChannelRange{Start: start, End: end}
}

// Contains reports whether ch falls inside the range.
func (r ChannelRange) Contains(ch uint8) bool {
	return ch >= r.Start && ch <= r.End
}

// Channels lists every channel id in the range in ascending order.
func (r ChannelRange) Channels() []uint8 {
	if r.End < r.Start {
		return nil
	}
	out := make([]uint8, 0, int(r.End)-int(r.Start)+1)
	for ch := int(r.Start); ch <= int(r.End); ch++ {
		out = append(out, uint8(ch))
	}
	return out
}

func (r ChannelRange) String() string {
	return fmt.Sprintf("[%d -> %d]", r.Start, r.End)
}

// Frame maps a channel id to its color for one animation step.
type Frame map[uint8]Color

// Channels returns the frame's channel ids in ascending order.
func (f Frame) Channels() []uint8 {
	out := make([]uint8, 0, len(f))
	for ch := range f {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (f Frame) clone() Frame {
	out := make(Frame, len(f))
	for ch, c := range f {
		out[ch] = c
	}
	return out
}

// Pattern is an immutable table of frames ordered by frame number.
// Replace it wholesale; there are no mutating methods.
type Pattern struct {
	frames map[uint8]Frame
	order  []uint8
}

// New copies frames into a Pattern.
func New(frames map[uint8]Frame) Pattern {
	p := Pattern{
		frames: make(map[uint8]Frame, len(frames)),
		order:  make([]uint8, 0, len(frames)),
	}
	for number, frame := range frames {
		p.frames[number] = frame.clone()
		p.order = append(p.order, number)
	}
	sort.Slice(p.order, func(i, j int) bool { return p.order[i] < p.order[j] })
	return p
}

// Len is the number of distinct frames.
func (p Pattern) Len() int {
	return len(p.order)
}

// Empty reports whether the pattern has no frames.
func (p Pattern) Empty() bool {
	return len(p.order) == 0
}

// Numbers returns the frame numbers in ascending order.
func (p Pattern) Numbers() []uint8 {
	out := make([]uint8, len(p.order))
	copy(out, p.order)
	return out
}

// Frame looks a frame up by its declared number.
func (p Pattern) Frame(number uint8) (Frame, bool) {
	f, ok := p.frames[number]
	if !ok {
		return nil, false
	}
	return f.clone(), true
}

// At returns the frame at a position in frame-number order.
func (p Pattern) At(index int) (uint8, Frame, bool) {
	if index < 0 || index >= len(p.order) {
		return 0, nil, false
	}
	number := p.order[index]
	return number, p.frames[number].clone(), true
}

// Color returns the color declared for (frame, channel).
func (p Pattern) Color(frame, channel uint8) (Color, bool) {
	f, ok := p.frames[frame]
	if !ok {
		return Black, false
	}
	c, ok := f[channel]
	return c, ok
}

// Normalize returns a copy where every frame defines every channel in r.
// Missing channels become black so stale colors never carry over between frames.
func (p Pattern) Normalize(r ChannelRange) Pattern {
	dense := make(map[uint8]Frame, len(p.frames))
	for number, frame := range p.frames {
		out := frame.clone()
		for _, ch := range r.Channels() {
			if _, ok := out[ch]; !ok {
				out[ch] = Black
			}
		}
		dense[number] = out
	}
	return New(dense)
}

func (p Pattern) String() string {
	return fmt.Sprintf("pattern{frames: %d}", len(p.order))
}
