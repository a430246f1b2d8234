package crc

// Table is a 256-word table representing a reflected polynomial.
type Table [256]uint32

// IEEETable returns a copy of the generated table for Polynomial.
func IEEETable() Table {
	return ieeeTable
}

// MakeTable builds the lookup table for a reflected polynomial at runtime.
// MakeTable(Polynomial) matches the generated table entry for entry.
func MakeTable(poly uint32) *Table {
	t := new(Table)
	for i := 0; i < 256; i++ {
		c := uint32(i)
		for j := 0; j < 8; j++ {
			if c&1 == 1 {
				c = (c >> 1) ^ poly
			} else {
				c >>= 1
			}
		}
		t[i] = c
	}
	return t
}

// ChecksumTable computes the first length bytes of buf against tab, using
// the same seed and final inversion as Checksum.
func ChecksumTable(tab *Table, buf []byte, length int) uint32 {
	return ^update(Seed, tab, buf[:length])
}
