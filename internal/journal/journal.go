// Package journal is an append-only, segment-rotated log of asset index
// changes. Each record is stored in a checksummed frame so a torn or
// corrupted tail is detected on replay.
package journal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/assetsum/assetsum/internal/frame"
	"github.com/assetsum/assetsum/internal/metrics"
	"github.com/rs/zerolog/log"
)

const (
	segmentSuffix = ".journal"
	compactTmp    = "compact.tmp"
)

// rename installs a compacted segment. Tests replace it to fail the install.
var rename = os.Rename

// Journal manages journal segments
type Journal struct {
	mu            sync.RWMutex
	dir           string
	segments      []*Segment
	activeSegment *Segment
	nextSegmentID uint64
	segmentSize   int64
	fsync         bool
}

// Config for Journal
type Config struct {
	Dir         string
	SegmentSize int64
	Fsync       bool
}

// New opens the journal in cfg.Dir, creating it if needed
func New(cfg Config) (*Journal, error) {
	if cfg.SegmentSize == 0 {
		cfg.SegmentSize = DefaultSegmentSize
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	j := &Journal{
		dir:         cfg.Dir,
		segments:    make([]*Segment, 0),
		segmentSize: cfg.SegmentSize,
		fsync:       cfg.Fsync,
	}

	// Leftover from a compaction that never installed its output.
	os.Remove(filepath.Join(cfg.Dir, compactTmp))

	if err := j.loadSegments(); err != nil {
		return nil, fmt.Errorf("failed to load segments: %w", err)
	}

	if j.activeSegment == nil {
		if err := j.createSegment(); err != nil {
			return nil, fmt.Errorf("failed to create initial segment: %w", err)
		}
	}

	j.updateMetrics()
	return j, nil
}

// loadSegments opens existing segment files in id order
func (j *Journal) loadSegments() error {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return err
	}

	segmentIDs := make([]uint64, 0)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), segmentSuffix) {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), segmentSuffix)
		id, err := strconv.ParseUint(name, 10, 64)
		if err != nil {
			log.Warn().Str("file", entry.Name()).Msg("invalid segment filename")
			continue
		}

		segmentIDs = append(segmentIDs, id)
	}

	if len(segmentIDs) == 0 {
		return nil
	}

	sort.Slice(segmentIDs, func(a, b int) bool {
		return segmentIDs[a] < segmentIDs[b]
	})

	for _, id := range segmentIDs {
		segment, err := NewSegment(j.dir, id, j.segmentSize, j.fsync)
		if err != nil {
			return fmt.Errorf("failed to open segment %d: %w", id, err)
		}
		j.segments = append(j.segments, segment)
	}

	j.activeSegment = j.segments[len(j.segments)-1]
	j.nextSegmentID = segmentIDs[len(segmentIDs)-1] + 1

	return nil
}

func (j *Journal) createSegment() error {
	segment, err := NewSegment(j.dir, j.nextSegmentID, j.segmentSize, j.fsync)
	if err != nil {
		return err
	}

	j.segments = append(j.segments, segment)
	j.activeSegment = segment
	j.nextSegmentID++

	return nil
}

// Append writes a record, rotating to a new segment when the active one is full
func (j *Journal) Append(record *Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.activeSegment.IsFull() {
		if err := j.createSegment(); err != nil {
			return fmt.Errorf("failed to create new segment: %w", err)
		}
	}

	if err := j.activeSegment.Write(record); err != nil {
		return fmt.Errorf("failed to write to segment: %w", err)
	}

	j.updateMetricsLocked()
	return nil
}

// Replay reads all records in order and calls fn for each. A corrupted or
// torn frame ends replay of its segment.
func (j *Journal) Replay(fn func(*Record) error) error {
	j.mu.RLock()
	defer j.mu.RUnlock()

	for _, segment := range j.segments {
		if err := replaySegment(segment, fn); err != nil {
			return err
		}
	}

	return nil
}

func replaySegment(segment *Segment, fn func(*Record) error) error {
	reader, err := segment.Reader()
	if err != nil {
		return fmt.Errorf("failed to create reader for segment %d: %w", segment.ID(), err)
	}
	defer reader.Close()

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if errors.Is(err, frame.ErrCorrupted) || errors.Is(err, frame.ErrTruncated) || errors.Is(err, frame.ErrTooLarge) {
			log.Warn().Err(err).Uint64("segment", segment.ID()).Msg("bad frame, skipping rest of segment")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read from segment %d: %w", segment.ID(), err)
		}

		if err := fn(record); err != nil {
			return fmt.Errorf("callback failed: %w", err)
		}
	}
}

// Compact rewrites every sealed segment into one, keeping only the latest
// put for each path in live. The active segment is left untouched.
func (j *Journal) Compact(live map[string]bool) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.segments) <= 1 {
		return nil
	}

	sealed := j.segments[:len(j.segments)-1]
	log.Info().Int("segments", len(sealed)).Msg("starting journal compaction")

	latest := make(map[string]*Record)
	for _, segment := range sealed {
		err := replaySegment(segment, func(r *Record) error {
			switch {
			case r.Type == RecordTypeDelete:
				delete(latest, r.Path)
			case live[r.Path]:
				latest[r.Path] = r
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	paths := make([]string, 0, len(latest))
	for p := range latest {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	// Build the replacement under a name loadSegments ignores, then rename it
	// over the oldest sealed id so replay order is preserved.
	tmpPath := filepath.Join(j.dir, compactTmp)
	if err := writeCompacted(tmpPath, paths, latest); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if len(paths) == 0 {
		os.Remove(tmpPath)
		for i, segment := range sealed {
			segment.Close()
			if err := os.Remove(segment.path); err != nil {
				j.segments = append([]*Segment(nil), j.segments[i:]...)
				return fmt.Errorf("failed to remove segment %d: %w", segment.ID(), err)
			}
		}
		j.segments = []*Segment{j.activeSegment}
		j.updateMetricsLocked()
		log.Info().Int("segments_after", len(j.segments)).Msg("journal compaction completed")
		return nil
	}

	// The compacted file replaces the oldest sealed segment in one rename.
	// Older history is only removed once it is in place.
	first := sealed[0]
	first.Close()
	if err := rename(tmpPath, first.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to install compacted segment: %w", err)
	}

	compacted, err := NewSegment(j.dir, first.ID(), j.segmentSize, j.fsync)
	if err != nil {
		return err
	}

	// Remove oldest first. If one fails, what remains is a suffix of the
	// history, and replaying it after the compacted segment gives the same
	// result.
	rest := sealed[1:]
	remaining := append([]*Segment{compacted}, j.segments[1:]...)
	for _, segment := range rest {
		segment.Close()
		if err := os.Remove(segment.path); err != nil {
			j.segments = remaining
			return fmt.Errorf("failed to remove segment %d: %w", segment.ID(), err)
		}
		remaining = append([]*Segment{compacted}, remaining[2:]...)
	}
	j.segments = remaining

	j.updateMetricsLocked()
	log.Info().Int("segments_after", len(j.segments)).Int("records", len(paths)).Msg("journal compaction completed")
	return nil
}

func writeCompacted(path string, paths []string, latest map[string]*Record) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create compaction file: %w", err)
	}
	defer file.Close()

	w := frame.NewWriter(file)
	for _, p := range paths {
		data, err := latest[p].Marshal()
		if err != nil {
			return err
		}
		if _, err := w.WriteFrame(data); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Sync()
}

// Rotate seals the active segment and starts a new one
func (j *Journal) Rotate() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.activeSegment.Size() == 0 {
		return nil
	}
	if err := j.createSegment(); err != nil {
		return err
	}
	j.updateMetricsLocked()
	return nil
}

// Close closes all segments
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, segment := range j.segments {
		if err := segment.Close(); err != nil {
			return err
		}
	}

	return nil
}

// SegmentCount returns the number of segments
func (j *Journal) SegmentCount() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.segments)
}

// TotalSize returns total size of all segments
func (j *Journal) TotalSize() int64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.totalSizeLocked()
}

func (j *Journal) totalSizeLocked() int64 {
	var total int64
	for _, seg := range j.segments {
		total += seg.Size()
	}
	return total
}

func (j *Journal) updateMetrics() {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.updateMetricsLocked()
}

func (j *Journal) updateMetricsLocked() {
	metrics.JournalSegments.Set(float64(len(j.segments)))
	metrics.JournalSize.Set(float64(j.totalSizeLocked()))
}
