package ec3k

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleFrame() testFrame {
	return testFrame{
		deviceID:     0xf100,
		timeTotal:    36725,
		timeOn:       6006,
		energy:       138854,
		powerCurrent: 0,
		powerMax:     868,
		energyAux:    138854 * 16,
		resetCounter: 5,
		deviceOn:     false,
	}
}

// TestDecodeValidFrame decodes a synthetic, protocol-valid frame built from
// known field values and checks every field comes back unchanged.
func TestDecodeValidFrame(t *testing.T) {
	tf := sampleFrame()
	raw := encodeFrame(tf.nibbles())

	rec, err := Decode(raw, 1700000000)
	require.NoError(t, err)
	require.Equal(t, tf.deviceID, rec.DeviceID)
	require.Equal(t, tf.timeTotal, rec.TimeTotal)
	require.Equal(t, tf.timeOn, rec.TimeOn)
	require.Equal(t, tf.energy, rec.Energy)
	require.InDelta(t, 0.0, rec.PowerCurrent, 1e-9)
	require.InDelta(t, 86.8, rec.PowerMax, 1e-9)
	require.Equal(t, tf.resetCounter, rec.ResetCounter)
	require.Equal(t, tf.deviceOn, rec.DeviceOnFlag)
	require.Equal(t, int64(1700000000), rec.ReceptionTimestamp)
}

// TestDecodeScenarioA decodes the literal, independently-checkable §8
// Scenario A capture line and asserts every field of the resulting record,
// rather than relying on the package's own synthetic round-trip encoder.
func TestDecodeScenarioA(t *testing.T) {
	line, err := os.ReadFile("testdata/scenario_a.hexline")
	require.NoError(t, err)

	rec, err := DecodeHexLine(string(line), 0)
	require.NoError(t, err)

	require.Equal(t, 0xf100, rec.DeviceID)
	require.Equal(t, 36725, rec.TimeTotal)
	require.Equal(t, 6006, rec.TimeOn)
	require.Equal(t, 138854, rec.Energy)
	require.InDelta(t, 0.0, rec.PowerCurrent, 1e-9)
	require.InDelta(t, 86.8, rec.PowerMax, 1e-9)
	require.Equal(t, 5, rec.ResetCounter)
	require.False(t, rec.DeviceOnFlag)
}

// TestDecodeHexLineRoundTrip exercises the hex-line entry point with the
// same synthetic frame, formatted the way a capture line would present it.
func TestDecodeHexLineRoundTrip(t *testing.T) {
	raw := encodeFrame(sampleFrame().nibbles())
	rec, err := DecodeHexLine(EncodeHex(ThresholdAll(expandToSamples(raw))), 42)
	require.NoError(t, err)
	require.Equal(t, 0xf100, rec.DeviceID)
}

// expandToSamples turns raw bytes back into one high/low sample per bit,
// the inverse of thresholding+clock-recovery, purely so
// TestDecodeHexLineRoundTrip can drive EncodeHex/ParseHexLine with
// something shaped like real sample data instead of reaching into the
// frame decoder's byte representation directly.
func expandToSamples(raw []byte) []byte {
	out := make([]byte, 0, len(raw)*8)
	for _, b := range raw {
		for shift := 7; shift >= 0; shift-- {
			if (b>>uint(shift))&1 == 1 {
				out = append(out, 255)
			} else {
				out = append(out, 0)
			}
		}
	}
	return out
}

// TestDecodeWrongLength feeds a short, truncated line of raw bytes: far too
// few bits survive to destuff and pack into a full 84-nibble frame.
func TestDecodeWrongLength(t *testing.T) {
	raw := []byte{0x12, 0x34, 0x56, 0x78, 0x9a}
	_, err := Decode(raw, 0)
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, WrongLength, de.Kind)
}

// TestDecodeCRCMismatch flips a single data bit of an otherwise valid frame
// and checks it is rejected on CRC, not silently accepted or panicking.
func TestDecodeCRCMismatch(t *testing.T) {
	n := sampleFrame().nibbles()
	n[6] ^= 0x1 // Inside the CRC-covered range, outside any reserved field.
	raw := encodeFrame(n)

	_, err := Decode(raw, 0)
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, CrcMismatch, de.Kind)
}

// TestDecodeBadStartMark corrupts the start-mark nibble of an otherwise
// CRC-valid frame: checkCRC runs first, so to observe BadStartMark we'd
// need a frame whose CRC still matches after the corruption, which a
// single nibble flip won't produce. This instead directly exercises
// extractFields against a hand-built nibble frame that skips CRC.
func TestDecodeBadStartMark(t *testing.T) {
	n := sampleFrame().nibbles()
	n[fieldStartMark.start] = 0x1
	_, err := extractFields(n, 0)
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, BadStartMark, de.Kind)
}

// TestDecodeNonZeroReserved exercises extractFields directly for each
// reserved padding group, since every other stage already validates ahead
// of it.
func TestDecodeNonZeroReserved(t *testing.T) {
	for _, r := range []nibbleRange{fieldPad1, fieldPad2, fieldPad3, fieldPad4} {
		n := sampleFrame().nibbles()
		n[r.start] = 0x1
		_, err := extractFields(n, 0)
		require.Error(t, err)
		var de *DecodeError
		require.ErrorAs(t, err, &de)
		require.Equal(t, NonZeroReserved, de.Kind)
	}
}

// TestDecodeBadFlag exercises extractFields with a flags nibble outside
// the two values the protocol defines.
func TestDecodeBadFlag(t *testing.T) {
	n := sampleFrame().nibbles()
	n[fieldFlags.start] = 0x3
	_, err := extractFields(n, 0)
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, BadFlag, de.Kind)
}

// TestDecodeMalformedStuffing builds a bit stream containing a run of
// seven consecutive 1 bits and checks it surfaces as MalformedStuffing
// from the full Decode entry point, not just from destuff in isolation.
func TestDecodeMalformedStuffing(t *testing.T) {
	bad := append(append([]byte{}, frameBoundary...), 1, 1, 1, 1, 1, 1, 1, 0)
	bad = append(bad, frameBoundary...)
	for len(bad)%8 != 0 {
		bad = append(bad, 0)
	}
	invertBits(bad)
	scrambled := scrambleAll(bad)
	invertBits(scrambled)

	raw := make([]byte, len(scrambled)/8)
	for i := range raw {
		var b byte
		for j := 0; j < 8; j++ {
			b = (b << 1) | scrambled[i*8+j]
		}
		raw[i] = b
	}

	_, err := Decode(raw, 0)
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, MalformedStuffing, de.Kind)
}
