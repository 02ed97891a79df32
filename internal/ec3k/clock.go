package ec3k

import "math"

// Clock-recovery design constants (§6, tunable receiver parameters — not
// fixed by the protocol).
const (
	minCandidateLength = 50
	minPulseLength     = 2
	maxRunSymbols      = 20
	relativeErrorTol   = 0.4
	refinementWeight   = 2.0 // 2:1 bias toward the established estimate.
	grassWindow        = 4
)

// run is one maximal run of identical bits within a trimmed candidate.
type run struct {
	symbol byte
	length int
}

// RecoverClock estimates the symbol period of a candidate packet and
// re-samples it into a decoded bit stream (§4.3). ok is false if the
// candidate was rejected at any stage; rejection is silent by design (§7)
// and callers should simply drop the candidate, optionally logging at
// debug level.
func RecoverClock(c Candidate) (bits []byte, ok bool) {
	trimmed := trimGrass(c.Bits)
	if len(trimmed) < minCandidateLength {
		return nil, false
	}

	runs := runLengths(trimmed)

	cp, ok := initialEstimate(runs)
	if !ok {
		return nil, false
	}

	cp, ok = refineEstimate(runs, cp)
	if !ok {
		return nil, false
	}

	return emitBits(runs, cp), true
}

// trimGrass removes up to grassWindow leading and trailing anomalous bits
// ("grass") that the edge of a candidate is prone to carrying, protecting
// the pulse-length statistics that follow (§4.3 Trim).
func trimGrass(data []byte) []byte {
	if len(data) < 2*grassWindow+2 {
		return nil
	}

	start := 0
	if !allEqual(data[:grassWindow]) {
		start = grassWindow
		for _, i := range []int{3, 2, 1} {
			if data[start] == data[i] {
				start = i
			} else {
				break
			}
		}
	}

	end := 0
	if !allEqual(data[len(data)-grassWindow:]) {
		end = grassWindow
		for _, i := range []int{3, 2, 1} {
			if data[len(data)-end] == data[len(data)-i] {
				end = i
			} else {
				break
			}
		}
	}

	if start > 0 {
		data = data[start:]
	}
	if end > 0 {
		if end > len(data) {
			return nil
		}
		data = data[:len(data)-end]
	}
	return data
}

func allEqual(bits []byte) bool {
	for _, b := range bits[1:] {
		if b != bits[0] {
			return false
		}
	}
	return true
}

// runLengths groups a bit vector into maximal runs of identical symbols.
func runLengths(data []byte) []run {
	if len(data) == 0 {
		return nil
	}
	runs := make([]run, 0, len(data)/2+1)
	cur := run{symbol: data[0], length: 1}
	for _, b := range data[1:] {
		if b == cur.symbol {
			cur.length++
		} else {
			runs = append(runs, cur)
			cur = run{symbol: b, length: 1}
		}
	}
	runs = append(runs, cur)
	return runs
}

// initialEstimate implements the §4.3 pass-1 scan: the initial symbol
// period is the shortest observed run. Any run shorter than
// minPulseLength rejects the candidate outright.
func initialEstimate(runs []run) (cp float64, ok bool) {
	cp = math.Inf(1)
	for _, r := range runs {
		if r.length < minPulseLength {
			return 0, false
		}
		if float64(r.length) < cp {
			cp = float64(r.length)
		}
	}
	if math.IsInf(cp, 1) {
		return 0, false
	}
	return cp, true
}

// refineEstimate implements the §4.3 pass-2 scan, iteratively tightening
// cp while rejecting runs that are inconsistent with it.
func refineEstimate(runs []run, cp float64) (float64, bool) {
	for _, r := range runs {
		pl := float64(r.length)
		switch {
		case pl < cp:
			cp = (refinementWeight*cp + pl) / (refinementWeight + 1)
		case pl > cp:
			n := math.Round(pl / cp)
			if n == 0 {
				return 0, false
			}
			e := math.Abs(pl/cp-n) / n
			if e > relativeErrorTol {
				return 0, false
			}
			if n > maxRunSymbols {
				return 0, false
			}
			cp = (refinementWeight*cp + pl/n) / (refinementWeight + 1)
		}
	}
	return cp, true
}

// emitBits implements the §4.3 pass-3 scan, re-sampling each run into
// round(pl/cp) copies of its symbol.
func emitBits(runs []run, cp float64) []byte {
	out := make([]byte, 0, len(runs)*2)
	for _, r := range runs {
		n := int(math.Round(float64(r.length) / cp))
		for i := 0; i < n; i++ {
			out = append(out, r.symbol)
		}
	}
	return out
}

// EncodeHex packs a decoded bit stream into the §4.3/§6 wire format: the
// bits concatenated MSB-first into a big integer, printed as lowercase hex
// byte pairs, prefixed with the literal marker "data".
func EncodeHex(bits []byte) string {
	// Pack into bytes, MSB-first, left-padding the first byte with zero
	// bits the way formatting an integer in hex naturally would (leading
	// zero nibbles of the first byte are kept so every emitted token is a
	// full 2-hex-digit byte per the wire contract in §6).
	nbytes := (len(bits) + 7) / 8
	packed := make([]byte, nbytes)
	// Bits fill the packed buffer from the end, so a partial leading byte
	// (when len(bits) isn't a multiple of 8) carries the high-order zero
	// padding, matching "first bit = MSB" of the concatenated integer.
	pos := len(bits) - 1
	for i := nbytes - 1; i >= 0; i-- {
		var b byte
		for shift := 0; shift < 8 && pos >= 0; shift++ {
			if bits[pos] != 0 {
				b |= 1 << uint(shift)
			}
			pos--
		}
		packed[i] = b
	}

	const hexDigits = "0123456789abcdef"
	out := make([]byte, 0, 5+nbytes*3)
	out = append(out, "data"...)
	for _, b := range packed {
		out = append(out, ' ', hexDigits[b>>4], hexDigits[b&0xf])
	}
	return string(out)
}
