package ec3k

// shuffleGroupSize is the group width byte-reversal operates on (§4.4
// stage 6).
const shuffleGroupSize = 8

// shuffle groups bits into successive 8-bit groups (padding the final
// group with zero bits to a full group) and reverses the bit order within
// each group. It prepends nothing: this is the nibble-aligned,
// CRC-validated variant of the pipeline (§9) — the historical
// byte-aligned variant prepended four zero bits and is not implemented
// here, per the spec's instruction to implement only the CRC-validated
// form.
func shuffle(bits []byte) []byte {
	ngroups := (len(bits) + shuffleGroupSize - 1) / shuffleGroupSize
	out := make([]byte, 0, ngroups*shuffleGroupSize)

	for g := 0; g < ngroups; g++ {
		start := g * shuffleGroupSize
		end := start + shuffleGroupSize
		for i := end - 1; i >= start; i-- {
			if i < len(bits) {
				out = append(out, bits[i])
			} else {
				out = append(out, 0)
			}
		}
	}
	return out
}
