package ec3k

// crcInit is the initial CRC register value (§4.4 stage 8, §6).
const crcInit uint16 = 0xffff

// crcConstant is the value a valid frame's CRC-16/CCITT must reduce to
// (§4.4 stage 8, §6) — this device's particular Kermit/XMODEM
// end-constant, not the more familiar zero-residue convention.
const crcConstant uint16 = 0xf0b8

// crcUpdate folds one byte into the running CRC-16/CCITT (Kermit-style)
// register.
func crcUpdate(crc uint16, d byte) uint16 {
	dd := uint16(d)
	dd ^= crc & 0xff
	dd ^= (dd << 4) & 0xff
	return ((dd << 8) | (crc >> 8)) ^ (dd >> 4) ^ (dd << 3)
}

// crcOf computes the CRC-16/CCITT over data, starting from crcInit.
func crcOf(data []byte) uint16 {
	crc := crcInit
	for _, d := range data {
		crc = crcUpdate(crc, d)
	}
	return crc
}
