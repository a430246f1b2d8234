package crc

// Reference values for the ISO-HDLC parameters used by this package.
const (
	// CheckOne is String("1").
	CheckOne uint32 = 0x83dcefb7
	// CheckDigits is String("123456789"), the catalogue check value.
	CheckDigits uint32 = 0xcbf43926
	// Empty is the checksum of zero bytes: the seed inverted back.
	Empty uint32 = ^Seed
)
