package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFadeEndpoints(t *testing.T) {
	from, to := RGB(255, 0, 0), RGB(0, 0, 255)

	pat, err := Fade(from, to, 10, NewChannelRange(0, 2), nil)
	require.NoError(t, err)
	require.Equal(t, 10, pat.Len())

	first, _ := pat.Color(0, 1)
	last, _ := pat.Color(9, 2)
	assertNear(t, from, first)
	assertNear(t, to, last)

	frame, _ := pat.Frame(4)
	assert.Len(t, frame, 3)
	assert.Equal(t, frame[0], frame[2])
}

func TestFadeFrameBounds(t *testing.T) {
	_, err := Fade(Black, Black, 1, NewChannelRange(0, 0), nil)
	assert.Error(t, err)

	_, err = Fade(Black, Black, 257, NewChannelRange(0, 0), nil)
	assert.Error(t, err)

	pat, err := Fade(Black, RGB(255, 255, 255), 256, NewChannelRange(0, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, 256, pat.Len())
}

func TestLookupEasing(t *testing.T) {
	fn, err := LookupEasing("In-Out-Sine")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, fn(0.5), 1e-9)

	_, err = LookupEasing("bounce")
	assert.Error(t, err)
	assert.Contains(t, EasingNames(), "linear")
}

func assertNear(t *testing.T, want, got Color) {
	t.Helper()
	assert.InDelta(t, want.R, got.R, 1)
	assert.InDelta(t, want.G, got.G, 1)
	assert.InDelta(t, want.B, got.B, 1)
}
