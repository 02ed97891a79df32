package ec3k

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func highs(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = 255
	}
	return out
}

func lows(n int) []byte {
	return make([]byte, n)
}

// TestPacketizerEmitsOnIdleRun checks that a burst of transitions followed
// by an idle run longer than MinBreak is emitted as exactly one candidate,
// with the idle tail trimmed off.
func TestPacketizerEmitsOnIdleRun(t *testing.T) {
	p := NewPacketizer()

	var samples []byte
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			samples = append(samples, highs(3)...)
		} else {
			samples = append(samples, lows(3)...)
		}
	}
	samples = append(samples, lows(MinBreak+5)...)

	out := p.Feed(samples, nil)
	require.Len(t, out, 1)
	require.Greater(t, out[0].Transitions, 0)
	require.NotContains(t, out[0].Bits, byte(2)) // Sanity: only 0/1 values.
}

// TestPacketizerIgnoresPureIdle checks that a stream with no transitions at
// all never emits a candidate.
func TestPacketizerIgnoresPureIdle(t *testing.T) {
	p := NewPacketizer()
	out := p.Feed(lows(10*MinBreak), nil)
	require.Empty(t, out)
}

// TestPacketizerSplitsAcrossChunks checks that a candidate spanning two
// Feed calls is still recognised as a single candidate.
func TestPacketizerSplitsAcrossChunks(t *testing.T) {
	p := NewPacketizer()

	var first []byte
	for i := 0; i < 10; i++ {
		if i%2 == 0 {
			first = append(first, highs(2)...)
		} else {
			first = append(first, lows(2)...)
		}
	}
	out := p.Feed(first, nil)
	require.Empty(t, out)

	out = p.Feed(lows(MinBreak+5), out)
	require.Len(t, out, 1)
}
