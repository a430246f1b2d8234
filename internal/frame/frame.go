// Package frame reads and writes checksummed frames.
//
// Frame layout: [length:4][crc32:4][data...], both integers little-endian.
package frame

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/assetsum/assetsum/internal/crc"
)

const (
	// HeaderSize is the number of bytes before a frame's data
	HeaderSize = 8
	// MaxFrameSize bounds the data length a reader accepts (16MB)
	MaxFrameSize = 16 * 1024 * 1024
)

var (
	ErrCorrupted = errors.New("corrupted frame")
	ErrTruncated = errors.New("truncated frame")
	ErrTooLarge  = errors.New("frame too large")
)

// Writer writes frames to an underlying writer
type Writer struct {
	w   *bufio.Writer
	hdr [HeaderSize]byte
}

// NewWriter creates a new frame writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteFrame writes data as a single frame and returns the bytes written
func (fw *Writer) WriteFrame(data []byte) (int, error) {
	if len(data) > MaxFrameSize {
		return 0, ErrTooLarge
	}

	binary.LittleEndian.PutUint32(fw.hdr[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(fw.hdr[4:], crc.Sum(data))

	if _, err := fw.w.Write(fw.hdr[:]); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := fw.w.Write(data); err != nil {
		return 0, fmt.Errorf("failed to write data: %w", err)
	}

	return HeaderSize + len(data), nil
}

// Flush flushes buffered frames
func (fw *Writer) Flush() error {
	return fw.w.Flush()
}

// Reader reads frames from an underlying reader
type Reader struct {
	r      *bufio.Reader
	offset int64
}

// NewReader creates a new frame reader
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadFrame reads the next frame. It returns io.EOF only at a clean frame
// boundary.
func (fr *Reader) ReadFrame() ([]byte, error) {
	var hdr [HeaderSize]byte
	n, err := io.ReadFull(fr.r, hdr[:])
	if err != nil {
		if err == io.EOF && n == 0 {
			return nil, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return nil, ErrTruncated
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	length := binary.LittleEndian.Uint32(hdr[0:])
	expected := binary.LittleEndian.Uint32(hdr[4:])
	if length > MaxFrameSize {
		return nil, ErrTooLarge
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(fr.r, data); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrTruncated
		}
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	if !crc.Verify(data, expected) {
		return nil, ErrCorrupted
	}

	fr.offset += int64(HeaderSize) + int64(length)
	return data, nil
}

// Offset returns the byte offset just past the last good frame
func (fr *Reader) Offset() int64 {
	return fr.offset
}
