package ec3k

import (
	"fmt"
	"strconv"
	"strings"
)

// hexLineMarker is the literal first token of a successful clock-recovery
// line (§6).
const hexLineMarker = "data"

// ParseHexLine splits a whitespace-separated wire line of the form
// "data <hex> <hex> ... <hex>" into raw bytes. Any other line shape
// (wrong marker, odd tokens) is not produced by this core and is reported
// as an error here rather than silently ignored, since a caller that
// chose to call ParseHexLine has already decided the line is meant for
// us — receivers scanning a mixed stream of lines should check the marker
// themselves before calling this (§6: "receivers must ignore unrecognised
// lines").
func ParseHexLine(line string) ([]byte, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != hexLineMarker {
		return nil, fmt.Errorf("ec3k: not a %q line", hexLineMarker)
	}

	raw := make([]byte, 0, len(fields)-1)
	for _, tok := range fields[1:] {
		if len(tok) != 2 {
			return nil, fmt.Errorf("ec3k: malformed hex token %q", tok)
		}
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("ec3k: malformed hex token %q: %w", tok, err)
		}
		raw = append(raw, byte(v))
	}
	return raw, nil
}
