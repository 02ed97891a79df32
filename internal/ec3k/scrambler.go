package ec3k

import "math/bits"

// scramblerTaps are the transmitter's multiplicative scrambler taps,
// 1-based positions into an 18-bit shift register (§4.4 stage 3, §6).
// Fixed by the protocol: x^18+x^17+x^13+x^12+x^1+1.
var scramblerTaps = [5]int{18, 17, 13, 12, 1}

// descramblerTapMask has a 1 bit at state[tap-1] for every tap in
// scramblerTaps, i.e. bits 0, 11, 12, 16 and 17. The reduction over this
// mask is a masked popcount parity (§9): XORing state[0], state[11],
// state[12], state[16] and state[17] together is the same as taking the
// low bit of the population count of state&descramblerTapMask.
const descramblerTapMask uint32 = 1<<0 | 1<<11 | 1<<12 | 1<<16 | 1<<17

const descramblerStateMask uint32 = 1<<18 - 1

// descrambler inverts the transmitter's self-synchronising scrambler. Its
// shift register is modelled as a single machine word: bit i holds
// state[i]. Because the descrambler's output depends only on the current
// input bit and the last max(taps)=18 input bits, it self-synchronises
// after 18 bits regardless of initial state, so a zero initial state (as
// used here) is as good as any other.
type descrambler struct {
	state uint32
}

// step descrambles one input bit: XOR it with the tap parity, then shift
// it into the register (state[0] := b, state[i] := old state[i-1]).
func (d *descrambler) step(b byte) byte {
	in := uint32(b & 1)
	parity := byte(bits.OnesCount32(d.state&descramblerTapMask)) & 1
	out := byte(in) ^ parity
	d.state = ((d.state << 1) | in) & descramblerStateMask
	return out
}

// descrambleAll descrambles a full bit vector, starting from a zero
// initial state, returning a freshly allocated output vector the same
// length as in.
func descrambleAll(in []byte) []byte {
	var d descrambler
	out := make([]byte, len(in))
	for i, b := range in {
		out[i] = d.step(b)
	}
	return out
}
