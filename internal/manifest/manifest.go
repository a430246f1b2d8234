// Package manifest keeps an index of asset fingerprints for a directory
// tree and verifies on-disk content against it.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/assetsum/assetsum/internal/crc"
	"github.com/assetsum/assetsum/internal/journal"
	"github.com/assetsum/assetsum/internal/metrics"
	"github.com/assetsum/assetsum/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var ErrNotFound = errors.New("asset not found")

// Asset is one indexed file, keyed by its slash-separated path relative to
// the scanned root
type Asset struct {
	Path     string    `json:"path"`
	Checksum uint32    `json:"checksum"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"mod_time"`
	ScanID   string    `json:"scan_id"`
}

// Options configure a Manager
type Options struct {
	Workers int
	Exclude []string
}

// Manager owns the asset index and its journal
type Manager struct {
	mu sync.Mutex // serialises index mutations

	store   *store.Store
	journal *journal.Journal
	workers int
	exclude []string
}

// NewManager creates a new manifest manager
func NewManager(s *store.Store, j *journal.Journal, opts Options) *Manager {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Manager{
		store:   s,
		journal: j,
		workers: opts.Workers,
		exclude: opts.Exclude,
	}
}

// ScanResult summarises one Scan
type ScanResult struct {
	ScanID    string        `json:"scan_id"`
	Added     int           `json:"added"`
	Changed   int           `json:"changed"`
	Unchanged int           `json:"unchanged"`
	Removed   int           `json:"removed"`
	Bytes     int64         `json:"bytes"`
	Duration  time.Duration `json:"duration"`
}

// Scan fingerprints every file under root and brings the index in line
// with it
func (m *Manager) Scan(ctx context.Context, root string) (*ScanResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	result := &ScanResult{ScanID: uuid.NewString()}
	logger := log.With().Str("scan_id", result.ScanID).Str("root", root).Logger()
	logger.Info().Msg("starting scan")

	files, err := m.hashTree(ctx, root, "scan")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f.Path] = true
		result.Bytes += f.Size

		existing, err := m.store.GetAsset(f.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read index entry %s: %w", f.Path, err)
		}

		switch {
		case existing == nil:
			result.Added++
			metrics.ScanChangesTotal.WithLabelValues("added").Inc()
		case existing.Checksum != f.Checksum:
			result.Changed++
			metrics.ScanChangesTotal.WithLabelValues("changed").Inc()
			logger.Debug().Str("path", f.Path).Msg("asset changed")
		default:
			result.Unchanged++
			continue
		}

		f.ScanID = result.ScanID
		if err := m.put(f); err != nil {
			return nil, err
		}
	}

	var gone []string
	err = m.store.ScanAssets(func(meta *store.AssetMeta) error {
		if !seen[meta.Path] {
			gone = append(gone, meta.Path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan index: %w", err)
	}
	for _, p := range gone {
		if err := m.remove(p); err != nil {
			return nil, err
		}
		result.Removed++
		metrics.ScanChangesTotal.WithLabelValues("removed").Inc()
	}

	metrics.AssetsIndexed.Set(float64(len(files)))
	result.Duration = time.Since(start)
	metrics.ScanDuration.Observe(result.Duration.Seconds())

	logger.Info().
		Int("added", result.Added).
		Int("changed", result.Changed).
		Int("unchanged", result.Unchanged).
		Int("removed", result.Removed).
		Dur("duration", result.Duration).
		Msg("scan completed")

	return result, nil
}

// VerifyReport lists how on-disk content differs from the index
type VerifyReport struct {
	Verified   int      `json:"verified"`
	Mismatched []string `json:"mismatched"`
	Missing    []string `json:"missing"`
	Unindexed  []string `json:"unindexed"`
}

// OK reports whether the tree matches the index exactly
func (r *VerifyReport) OK() bool {
	return len(r.Mismatched) == 0 && len(r.Missing) == 0 && len(r.Unindexed) == 0
}

// Verify rehashes every file under root and compares it with the index
// without modifying it
func (m *Manager) Verify(ctx context.Context, root string) (*VerifyReport, error) {
	files, err := m.hashTree(ctx, root, "verify")
	if err != nil {
		return nil, err
	}

	report := &VerifyReport{
		Mismatched: []string{},
		Missing:    []string{},
		Unindexed:  []string{},
	}

	onDisk := make(map[string]uint32, len(files))
	for _, f := range files {
		onDisk[f.Path] = f.Checksum
	}

	err = m.store.ScanAssets(func(meta *store.AssetMeta) error {
		sum, ok := onDisk[meta.Path]
		switch {
		case !ok:
			report.Missing = append(report.Missing, meta.Path)
		case sum != meta.Checksum:
			report.Mismatched = append(report.Mismatched, meta.Path)
		default:
			report.Verified++
		}
		delete(onDisk, meta.Path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan index: %w", err)
	}

	for p := range onDisk {
		report.Unindexed = append(report.Unindexed, p)
	}
	sort.Strings(report.Unindexed)

	if n := len(report.Mismatched); n > 0 {
		metrics.VerifyMismatchesTotal.Add(float64(n))
		log.Warn().Int("mismatched", n).Strs("paths", report.Mismatched).Msg("asset content does not match index")
	}

	return report, nil
}

// Get returns the indexed asset at path
func (m *Manager) Get(p string) (*Asset, error) {
	meta, err := m.store.GetAsset(p)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	return fromMeta(meta), nil
}

// List returns every indexed asset in path order
func (m *Manager) List() ([]*Asset, error) {
	assets := make([]*Asset, 0)
	err := m.store.ScanAssets(func(meta *store.AssetMeta) error {
		assets = append(assets, fromMeta(meta))
		return nil
	})
	return assets, err
}

// Rebuild replays the journal and replaces the index with the result.
// The index is left untouched if replay fails.
func (m *Manager) Rebuild() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log.Info().Msg("rebuilding index from journal")

	live := make(map[string]*Asset)
	err := m.journal.Replay(func(r *journal.Record) error {
		switch r.Type {
		case journal.RecordTypePut:
			live[r.Path] = recordAsset(r)
		case journal.RecordTypeDelete:
			delete(live, r.Path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to replay journal: %w", err)
	}

	var stale []string
	err = m.store.ScanAssets(func(meta *store.AssetMeta) error {
		if _, ok := live[meta.Path]; !ok {
			stale = append(stale, meta.Path)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, p := range stale {
		if err := m.store.DeleteAsset(p); err != nil {
			return 0, err
		}
	}
	for _, a := range live {
		if err := m.store.SetAsset(toMeta(a)); err != nil {
			return 0, err
		}
	}

	metrics.AssetsIndexed.Set(float64(len(live)))
	return len(live), nil
}

// Compact seals the active journal segment and rewrites history down to
// one put per indexed asset
func (m *Manager) Compact() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := make(map[string]bool)
	err := m.store.ScanAssets(func(meta *store.AssetMeta) error {
		live[meta.Path] = true
		return nil
	})
	if err != nil {
		return err
	}

	if err := m.journal.Rotate(); err != nil {
		return fmt.Errorf("failed to rotate journal: %w", err)
	}
	return m.journal.Compact(live)
}

func (m *Manager) put(a *Asset) error {
	rec := &journal.Record{
		Type:     journal.RecordTypePut,
		Path:     a.Path,
		Checksum: a.Checksum,
		Size:     a.Size,
		ModTime:  a.ModTime,
		ScanID:   a.ScanID,
	}
	if err := m.journal.Append(rec); err != nil {
		return fmt.Errorf("failed to journal %s: %w", a.Path, err)
	}
	if err := m.store.SetAsset(toMeta(a)); err != nil {
		return fmt.Errorf("failed to index %s: %w", a.Path, err)
	}
	return nil
}

func (m *Manager) remove(p string) error {
	if err := m.journal.Append(&journal.Record{Type: journal.RecordTypeDelete, Path: p}); err != nil {
		return fmt.Errorf("failed to journal removal of %s: %w", p, err)
	}
	if err := m.store.DeleteAsset(p); err != nil {
		return fmt.Errorf("failed to unindex %s: %w", p, err)
	}
	return nil
}

// hashTree walks root and fingerprints each regular file using up to
// m.workers goroutines. Results are sorted by path.
func (m *Manager) hashTree(ctx context.Context, root, source string) ([]*Asset, error) {
	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if m.excluded(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sort.Strings(paths)

	assets := make([]*Asset, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	for i, rel := range paths {
		i, rel := i, rel
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a, err := HashFile(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				return err
			}
			a.Path = rel
			assets[i] = a
			metrics.BytesHashedTotal.WithLabelValues(source).Add(float64(a.Size))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return assets, nil
}

func (m *Manager) excluded(rel string) bool {
	base := path.Base(rel)
	for _, pattern := range m.exclude {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// HashFile streams the file at p through the checksum engine
func HashFile(p string) (*Asset, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", p, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", p, err)
	}

	h := crc.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}

	return &Asset{
		Path:     p,
		Checksum: h.Sum32(),
		Size:     n,
		ModTime:  stat.ModTime(),
	}, nil
}

func fromMeta(meta *store.AssetMeta) *Asset {
	a := &Asset{
		Path:     meta.Path,
		Checksum: meta.Checksum,
		Size:     meta.Size,
		ScanID:   meta.ScanID,
	}
	if meta.ModTime != 0 {
		a.ModTime = time.Unix(0, meta.ModTime)
	}
	return a
}

func toMeta(a *Asset) *store.AssetMeta {
	meta := &store.AssetMeta{
		Path:      a.Path,
		Checksum:  a.Checksum,
		Size:      a.Size,
		ScanID:    a.ScanID,
		UpdatedAt: time.Now().UnixMilli(),
	}
	if !a.ModTime.IsZero() {
		meta.ModTime = a.ModTime.UnixNano()
	}
	return meta
}

func recordAsset(r *journal.Record) *Asset {
	return &Asset{
		Path:     r.Path,
		Checksum: r.Checksum,
		Size:     r.Size,
		ModTime:  r.ModTime,
		ScanID:   r.ScanID,
	}
}
