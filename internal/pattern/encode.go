package pattern

import (
	"bytes"
	"fmt"
)

// Encode renders p in the line format Parse accepts, frames and channels ascending.
func Encode(p Pattern) []byte {
	var buf bytes.Buffer
	for _, number := range p.order {
		frame := p.frames[number]
		for _, ch := range frame.Channels() {
			c := frame[ch]
			fmt.Fprintf(&buf, "F%d L%d %d %d %d\n", number, ch, c.R, c.G, c.B)
		}
	}
	return buf.Bytes()
}
