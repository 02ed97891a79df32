package ec3k

import "math/bits"

// scramblerEnc is the transmitter-side counterpart of descrambler, used
// only by tests to synthesise valid scrambled bit streams. Its register
// tracks previously *transmitted* (scrambled) bits rather than previously
// *received* ones, which is what makes the pair self-synchronising: after
// 18 bits the two registers hold identical history and descrambler(s)
// inverts scramblerEnc(s) exactly (§8 property 1).
type scramblerEnc struct {
	state uint32
}

func (s *scramblerEnc) step(m byte) byte {
	parity := byte(bits.OnesCount32(s.state&descramblerTapMask)) & 1
	c := (m & 1) ^ parity
	s.state = ((s.state << 1) | uint32(c)) & descramblerStateMask
	return c
}

func scrambleAll(in []byte) []byte {
	var s scramblerEnc
	out := make([]byte, len(in))
	for i, b := range in {
		out[i] = s.step(b)
	}
	return out
}

// frameBoundary is the on-wire pattern that flips destuff's start flag: a
// run of exactly six 1 bits followed by the 0 that destuff's cnt==6 case
// consumes to do the toggling (§4.4 stage 5). The trailing 0 is what
// guarantees the run counter is clean (0) on both sides of the boundary.
var frameBoundary = []byte{1, 1, 1, 1, 1, 1, 0}

// stuffPayload wraps payload in frameBoundary on each side and inserts a
// stuffed zero after every run of five consecutive 1 bits, mirroring the
// transmitter side of §4.4 stage 5. payload must end in a 0 bit (or be
// empty) so the run counter is guaranteed clean going into the closing
// boundary; stuffPayloadFixture below enforces that for property tests.
func stuffPayload(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+2*len(frameBoundary))
	out = append(out, frameBoundary...)

	ones := 0
	for _, b := range payload {
		out = append(out, b)
		if b == 1 {
			ones++
			if ones == stuffThreshold {
				out = append(out, 0)
				ones = 0
			}
		} else {
			ones = 0
		}
	}

	out = append(out, frameBoundary...)
	return out
}

// stuffPayloadFixture appends one trailing 0 bit to a copy of payload
// (always, even when payload already ends in 0) so stuffPayload's boundary
// seam is always clean, and returns the padded payload alongside its
// stuffed encoding for round-trip comparison.
func stuffPayloadFixture(payload []byte) (padded, stuffed []byte) {
	padded = append(append([]byte{}, payload...), 0)
	stuffed = stuffPayload(padded)
	return padded, stuffed
}
