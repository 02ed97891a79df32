package ec3k

// MinBreak is the number of consecutive identical raw bits that marks the
// end of a candidate packet (§4.2, §6). It must be large enough that no
// intra-packet run can trigger a split, and small enough that the idle gap
// between two real packets always does.
const MinBreak = 100

// Candidate is a raw bit vector delimited by a long idle run, together with
// the number of bit transitions observed while it was being collected. The
// transition count is a cheap quick-reject signal for downstream stages;
// the packetizer itself never rejects anything (§7: "the packetizer does
// not fail; it either emits or does not emit").
type Candidate struct {
	Bits        []byte
	Transitions int
}

// Packetizer segments an arbitrarily long stream of demodulated sample
// bytes into candidate packet bit vectors (§4.2). It holds only the state
// of the in-flight candidate: the last bit seen, the current run length,
// the transition count, and the accumulated bit buffer. A Packetizer must
// not be shared across producers (§5: single-writer).
type Packetizer struct {
	pv       byte
	havePv   bool
	inPacket bool
	ntran    int
	breakLen int
	buf      []byte
}

// NewPacketizer returns a Packetizer ready to consume the start of a
// stream.
func NewPacketizer() *Packetizer {
	return &Packetizer{}
}

// Feed thresholds and consumes a chunk of sample bytes, appending any
// candidate packets completed during this chunk to out and returning the
// extended slice. Candidates are appended in the order their idle tail was
// observed (§5 ordering guarantee).
func (p *Packetizer) Feed(samples []byte, out []Candidate) []Candidate {
	for _, sample := range samples {
		v := Threshold(sample)

		if !p.havePv {
			p.havePv = true
			p.pv = v
		}

		if v != p.pv {
			p.inPacket = true
			p.pv = v
			p.ntran++
			p.breakLen = 0
		} else {
			p.breakLen++
		}

		if p.inPacket {
			p.buf = append(p.buf, v)

			if p.breakLen > MinBreak {
				// Trim the idle tail: the breakLen identical samples that
				// triggered the split, plus one more for the final
				// pre-idle symbol (§4.2).
				trimmed := p.buf[:len(p.buf)-p.breakLen]
				if len(trimmed) > 0 {
					trimmed = trimmed[:len(trimmed)-1]
				}
				if len(trimmed) > 0 {
					out = append(out, Candidate{
						Bits:        trimmed,
						Transitions: p.ntran,
					})
				}
				p.buf = nil
				p.ntran = 0
				p.inPacket = false
			}
		}
	}
	return out
}
