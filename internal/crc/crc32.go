// Package crc implements the CRC-32/ISO-HDLC checksum (reflected polynomial
// 0xedb88320) used to fingerprint asset content.
//
// The lookup table is generated at build time into table_gen.go, so every
// call reads from an immutable package-level array and no initialisation
// guard is needed. Checksums that must be known at compile time are emitted
// as constants by `assetsum gen`, which calls back into this package.
//
// For one-shot checksums:
//
//	sum := crc.String("textures/player.dds")
//	sum = crc.Checksum(buf, n) // first n bytes only
//
// For streaming checksums:
//
//	h := crc.New()
//	io.Copy(h, f)
//	sum := h.Sum32()
package crc

import (
	"bytes"
	"encoding/binary"
)

// The crcbootstrap tag swaps table_gen.go for a runtime table, so the
// generator still builds when the generated file is missing or stale.
//go:generate go run -tags crcbootstrap ../../cmd/assetsum gen table --build !crcbootstrap -o table_gen.go

const (
	// Polynomial is the reversed representation of the CRC-32 generator.
	Polynomial uint32 = 0xedb88320
	// Seed is the register value before the first byte is consumed.
	Seed uint32 = 0xffffffff
	// Size is the size of a checksum in bytes.
	Size = 4
)

// Checksum computes the CRC-32 of exactly the first length bytes of buf.
// A length outside [0, len(buf)] is a caller error and panics.
func Checksum(buf []byte, length int) uint32 {
	return ^update(Seed, &ieeeTable, buf[:length])
}

// String computes the CRC-32 of s.
func String(s string) uint32 {
	crc := Seed
	for i := 0; i < len(s); i++ {
		crc = ieeeTable[byte(crc)^s[i]] ^ (crc >> 8)
	}
	return ^crc
}

// CString computes the CRC-32 of b up to, not including, its first NUL byte.
func CString(b []byte) uint32 {
	n := bytes.IndexByte(b, 0)
	if n < 0 {
		n = len(b)
	}
	return Checksum(b, n)
}

// Sum computes the CRC-32 of all of b.
func Sum(b []byte) uint32 {
	return Checksum(b, len(b))
}

// Update returns the result of adding the bytes in p to a finalised crc.
// Update(Sum(a), b) equals Sum of a followed by b.
func Update(crc uint32, p []byte) uint32 {
	return ^update(^crc, &ieeeTable, p)
}

// update runs the byte-at-a-time loop on a raw (non-inverted) register.
func update(crc uint32, tab *Table, p []byte) uint32 {
	for _, v := range p {
		crc = tab[byte(crc)^v] ^ (crc >> 8)
	}
	return crc
}

// Verify reports whether data checksums to expected.
func Verify(data []byte, expected uint32) bool {
	return Sum(data) == expected
}

// Append returns a copy of data with its little-endian checksum appended.
func Append(data []byte) []byte {
	result := make([]byte, len(data)+Size)
	copy(result, data)
	binary.LittleEndian.PutUint32(result[len(data):], Sum(data))
	return result
}

// Split separates a buffer produced by Append into its data and checksum.
// ok is false when framed is too short or the trailer does not match.
func Split(framed []byte) (data []byte, sum uint32, ok bool) {
	if len(framed) < Size {
		return nil, 0, false
	}
	data = framed[:len(framed)-Size]
	sum = binary.LittleEndian.Uint32(framed[len(data):])
	return data, sum, Verify(data, sum)
}
