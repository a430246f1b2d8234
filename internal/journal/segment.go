package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/assetsum/assetsum/internal/frame"
)

const (
	// DefaultSegmentSize is the default max size for a journal segment (16MB)
	DefaultSegmentSize = 16 * 1024 * 1024
	// SegmentFilePattern for naming segments
	SegmentFilePattern = "%06d.journal"
)

// Segment represents a single journal segment file
type Segment struct {
	mu      sync.RWMutex
	id      uint64
	path    string
	file    *os.File
	writer  *frame.Writer
	size    int64
	maxSize int64
	fsync   bool
}

// NewSegment opens or creates a journal segment for appending
func NewSegment(dir string, id uint64, maxSize int64, fsync bool) (*Segment, error) {
	path := filepath.Join(dir, fmt.Sprintf(SegmentFilePattern, id))

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open segment file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat segment file: %w", err)
	}

	return &Segment{
		id:      id,
		path:    path,
		file:    file,
		writer:  frame.NewWriter(file),
		size:    stat.Size(),
		maxSize: maxSize,
		fsync:   fsync,
	}, nil
}

// Write appends a record to the segment as one frame
func (s *Segment) Write(record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := record.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	n, err := s.writer.WriteFrame(data)
	if err != nil {
		return err
	}

	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	if s.fsync {
		if err := s.file.Sync(); err != nil {
			return fmt.Errorf("failed to fsync: %w", err)
		}
	}

	s.size += int64(n)
	return nil
}

// IsFull checks if segment has reached max size
func (s *Segment) IsFull() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size >= s.maxSize
}

// Size returns current segment size
func (s *Segment) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// ID returns segment ID
func (s *Segment) ID() uint64 {
	return s.id
}

// Close flushes and closes the segment
func (s *Segment) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	if err := s.writer.Flush(); err != nil {
		return err
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Reader returns a new reader for this segment
func (s *Segment) Reader() (*SegmentReader, error) {
	return NewSegmentReader(s.path)
}

// SegmentReader reads records from a segment
type SegmentReader struct {
	file   *os.File
	frames *frame.Reader
}

// NewSegmentReader creates a new segment reader
func NewSegmentReader(path string) (*SegmentReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open segment: %w", err)
	}

	return &SegmentReader{
		file:   file,
		frames: frame.NewReader(file),
	}, nil
}

// Read reads the next record from the segment. Frame errors
// (frame.ErrCorrupted, frame.ErrTruncated) are returned unwrapped.
func (sr *SegmentReader) Read() (*Record, error) {
	data, err := sr.frames.ReadFrame()
	if err != nil {
		return nil, err
	}

	record := &Record{}
	if err := record.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return record, nil
}

// Close closes the reader
func (sr *SegmentReader) Close() error {
	if sr.file != nil {
		return sr.file.Close()
	}
	return nil
}
