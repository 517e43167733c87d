package pattern

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

func TestEncodeGolden(t *testing.T) {
	p := Parser{Range: NewChannelRange(0, 2), Logger: testLogger()}
	pat, _ := p.Parse("F1 L2 0 0 255\nF0 L0 255 0 0\n# comment\nF1 L0 0 255 0\n")

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "encode_sparse", Encode(pat))
}

func TestEncodeRoundTrip(t *testing.T) {
	p := Parser{Range: NewChannelRange(0, 3), Logger: testLogger()}
	pat, _ := p.Parse("F0 L0 1 2 3\nF3 L1 4 5 6\nF200 L3 7 8 9\n")

	again, rejects := p.Parse(string(Encode(pat)))
	assert.Empty(t, rejects)
	assert.Equal(t, pat.Numbers(), again.Numbers())
	for _, number := range pat.Numbers() {
		want, _ := pat.Frame(number)
		got, _ := again.Frame(number)
		assert.Equal(t, want, got)
	}
}

func TestEncodeEmpty(t *testing.T) {
	assert.Empty(t, Encode(Pattern{}))
}
