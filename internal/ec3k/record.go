package ec3k

// Record is a decoded, validated telemetry record from a single EC3K
// transmitter packet (§3). It is immutable once constructed; every field
// is populated from a CRC-validated frame, never partially.
type Record struct {
	DeviceID int // 16-bit device identifier.

	TimeTotal int // Seconds since the device's last reset.
	TimeOn    int // Seconds since last reset with non-zero power draw.

	Energy int // Cumulative energy, watt-seconds.

	PowerCurrent float64 // Instantaneous power, watts, 0.1 W resolution.
	PowerMax     float64 // Peak power since an unspecified reset point, watts.

	ResetCounter int  // Number of times the transmitter has reset.
	DeviceOnFlag bool // True if the device is currently drawing power.

	// EnergyAux is nibbles 39..45 of the frame (§9's "energy_2"): unexplained
	// by the vendor, observed to equal 16×Energy in some captures but not
	// all. Retained for inspection only; never derived or cross-checked.
	EnergyAux int

	// ReceptionTimestamp is wall-clock seconds at the moment the frame
	// passed CRC validation, attached by the caller of Decode, not by
	// Decode itself (Decode is a pure function of its hex input).
	ReceptionTimestamp int64
}
