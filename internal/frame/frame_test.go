package frame

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFrames(t *testing.T, payloads ...[]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, p := range payloads {
		n, err := w.WriteFrame(p)
		require.NoError(t, err)
		assert.Equal(t, HeaderSize+len(p), n)
	}
	require.NoError(t, w.Flush())
	return buf.Bytes()
}

func TestWriteAndRead(t *testing.T) {
	data := writeFrames(t, []byte("one"), []byte{}, []byte("three"))

	r := NewReader(bytes.NewReader(data))

	got, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)

	got, err = r.ReadFrame()
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte("three"), got)

	_, err = r.ReadFrame()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, int64(len(data)), r.Offset())
}

func TestHeaderLayout(t *testing.T) {
	data := writeFrames(t, []byte("1"))

	require.Len(t, data, HeaderSize+1)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(data[0:]))
	assert.Equal(t, uint32(0x83dcefb7), binary.LittleEndian.Uint32(data[4:]))
}

func TestCorruptedFrame(t *testing.T) {
	data := writeFrames(t, []byte("payload"), []byte("next"))
	data[HeaderSize] ^= 0x01

	r := NewReader(bytes.NewReader(data))
	_, err := r.ReadFrame()
	assert.ErrorIs(t, err, ErrCorrupted)
	assert.Equal(t, int64(0), r.Offset())
}

func TestTruncatedFrame(t *testing.T) {
	data := writeFrames(t, []byte("payload"))

	_, err := NewReader(bytes.NewReader(data[:len(data)-2])).ReadFrame()
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = NewReader(bytes.NewReader(data[:3])).ReadFrame()
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestTooLarge(t *testing.T) {
	hdr := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(hdr, MaxFrameSize+1)

	_, err := NewReader(bytes.NewReader(hdr)).ReadFrame()
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = NewWriter(io.Discard).WriteFrame(make([]byte, MaxFrameSize+1))
	assert.ErrorIs(t, err, ErrTooLarge)
}
