package crc

import "hash"

// digest represents the partial evaluation of a checksum.
type digest struct {
	seed uint32
	crc  uint32
}

var _ hash.Hash32 = (*digest)(nil)

// New returns a streaming hash.Hash32 computing the CRC-32 checksum.
// Its Sum method lays the value out in big-endian byte order.
func New() hash.Hash32 { return NewSeeded(0) }

// NewSeeded returns a digest that resumes from a previously finalised
// checksum, so writing b yields Update(seed, b).
func NewSeeded(seed uint32) hash.Hash32 { return &digest{seed: seed, crc: seed} }

func (d *digest) Size() int { return Size }

func (d *digest) BlockSize() int { return 1 }

func (d *digest) Reset() { d.crc = d.seed }

func (d *digest) Write(p []byte) (n int, err error) {
	d.crc = Update(d.crc, p)
	return len(p), nil
}

func (d *digest) Sum32() uint32 { return d.crc }

func (d *digest) Sum(in []byte) []byte {
	s := d.Sum32()
	return append(in, byte(s>>24), byte(s>>16), byte(s>>8), byte(s))
}
