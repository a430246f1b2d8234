package journal

import (
	"encoding/binary"
	"errors"
	"math"
	"time"
)

// RecordType defines the type of journal record
type RecordType uint8

const (
	RecordTypePut RecordType = iota + 1
	RecordTypeDelete
)

var (
	ErrInvalidRecord = errors.New("invalid record")
	ErrFieldTooLong  = errors.New("record field too long")
)

// Record represents a journal entry
type Record struct {
	Type     RecordType
	Path     string
	Checksum uint32
	Size     int64
	ModTime  time.Time
	ScanID   string
}

// Marshal serializes a record to bytes
// Format: [type:1][path_len:2][path][checksum:4][size:8][mtime_unix_ns:8][scan_id_len:2][scan_id]
func (r *Record) Marshal() ([]byte, error) {
	if len(r.Path) > math.MaxUint16 || len(r.ScanID) > math.MaxUint16 {
		return nil, ErrFieldTooLong
	}

	buf := make([]byte, 1+2+len(r.Path)+4+8+8+2+len(r.ScanID))
	offset := 0

	buf[offset] = byte(r.Type)
	offset++

	binary.LittleEndian.PutUint16(buf[offset:], uint16(len(r.Path)))
	offset += 2
	copy(buf[offset:], r.Path)
	offset += len(r.Path)

	binary.LittleEndian.PutUint32(buf[offset:], r.Checksum)
	offset += 4

	binary.LittleEndian.PutUint64(buf[offset:], uint64(r.Size))
	offset += 8

	var mtime int64
	if !r.ModTime.IsZero() {
		mtime = r.ModTime.UnixNano()
	}
	binary.LittleEndian.PutUint64(buf[offset:], uint64(mtime))
	offset += 8

	binary.LittleEndian.PutUint16(buf[offset:], uint16(len(r.ScanID)))
	offset += 2
	copy(buf[offset:], r.ScanID)
	offset += len(r.ScanID)

	return buf[:offset], nil
}

// Unmarshal deserializes a record from bytes
func (r *Record) Unmarshal(data []byte) error {
	if len(data) < 1 {
		return ErrInvalidRecord
	}

	offset := 0

	r.Type = RecordType(data[offset])
	offset++
	if r.Type != RecordTypePut && r.Type != RecordTypeDelete {
		return ErrInvalidRecord
	}

	// Path
	if offset+2 > len(data) {
		return ErrInvalidRecord
	}
	pathLen := int(binary.LittleEndian.Uint16(data[offset:]))
	offset += 2
	if offset+pathLen > len(data) {
		return ErrInvalidRecord
	}
	r.Path = string(data[offset : offset+pathLen])
	offset += pathLen

	// Checksum, size, mtime
	if offset+4+8+8 > len(data) {
		return ErrInvalidRecord
	}
	r.Checksum = binary.LittleEndian.Uint32(data[offset:])
	offset += 4
	r.Size = int64(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8
	mtime := int64(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8
	r.ModTime = time.Time{}
	if mtime != 0 {
		r.ModTime = time.Unix(0, mtime)
	}

	// ScanID
	if offset+2 > len(data) {
		return ErrInvalidRecord
	}
	scanIDLen := int(binary.LittleEndian.Uint16(data[offset:]))
	offset += 2
	if offset+scanIDLen > len(data) {
		return ErrInvalidRecord
	}
	r.ScanID = string(data[offset : offset+scanIDLen])

	return nil
}
