package ec3k

// SampleThreshold is the hard-slicing cut point fixed by the upstream
// demodulator's 0..255 output range (§4.1, §6). It is a property of that
// external collaborator, not a tunable receiver parameter, and must not be
// changed without a coordinated change on the demodulator side.
const SampleThreshold = 190

// Threshold maps one demodulated sample byte to a raw bit: 1 ("high") if
// the sample is at or above SampleThreshold, 0 ("low") otherwise.
func Threshold(sample byte) byte {
	if sample >= SampleThreshold {
		return 1
	}
	return 0
}

// ThresholdAll thresholds an entire chunk of sample bytes, leaving in
// unchanged and returning a freshly allocated slice of raw bits the same
// length as in.
func ThresholdAll(in []byte) []byte {
	out := make([]byte, len(in))
	for i, b := range in {
		out[i] = Threshold(b)
	}
	return out
}
