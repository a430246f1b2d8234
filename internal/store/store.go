package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/assetsum/assetsum/internal/backoff"
	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog/log"
)

const assetPrefix = "asset:"

// Store provides KV storage using Pebble
type Store struct {
	db *pebble.DB
}

// Open opens or creates a store at path
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db: %w", err)
	}

	return &Store{
		db: db,
	}, nil
}

// OpenWithRetry retries Open with backoff, for when another process still
// holds the directory lock
func OpenWithRetry(ctx context.Context, path string, cfg backoff.Config, attempts int) (*Store, error) {
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		delay := backoff.Calculate(cfg, uint32(attempt))
		if delay > 0 {
			log.Warn().Err(lastErr).Int("attempt", attempt).Dur("delay", delay).Msg("store busy, retrying open")

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		s, err := Open(path)
		if err == nil {
			return s, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}

// Set stores a key-value pair
func (s *Store) Set(key, value []byte) error {
	return s.db.Set(key, value, pebble.Sync)
}

// Get retrieves a value by key, returning nil if it does not exist
func (s *Store) Get(key []byte) ([]byte, error) {
	value, closer, err := s.db.Get(key)
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	defer closer.Close()

	// Copy value since it's only valid until closer is called
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// Delete removes a key
func (s *Store) Delete(key []byte) error {
	return s.db.Delete(key, pebble.Sync)
}

// Scan iterates over keys with a prefix
func (s *Store) Scan(prefix []byte, callback func(key, value []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())

		if err := callback(key, value); err != nil {
			return err
		}
	}

	return iter.Error()
}

// Close closes the store
func (s *Store) Close() error {
	return s.db.Close()
}

// prefixUpperBound returns the upper bound for a prefix scan
func prefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end
		}
	}
	return nil
}

// AssetMeta stores what the index knows about one asset
type AssetMeta struct {
	Path      string `json:"path"`
	Checksum  uint32 `json:"checksum"`
	Size      int64  `json:"size"`
	ModTime   int64  `json:"mod_time"` // Unix nanoseconds
	ScanID    string `json:"scan_id"`
	UpdatedAt int64  `json:"updated_at"` // Unix milliseconds
}

func assetKey(path string) []byte {
	return []byte(assetPrefix + path)
}

// SetAsset stores asset metadata
func (s *Store) SetAsset(meta *AssetMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return s.Set(assetKey(meta.Path), data)
}

// GetAsset retrieves asset metadata, returning nil if the path is unknown
func (s *Store) GetAsset(path string) (*AssetMeta, error) {
	data, err := s.Get(assetKey(path))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var meta AssetMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// DeleteAsset removes asset metadata
func (s *Store) DeleteAsset(path string) error {
	return s.Delete(assetKey(path))
}

// ScanAssets visits all assets in path order
func (s *Store) ScanAssets(callback func(*AssetMeta) error) error {
	return s.Scan([]byte(assetPrefix), func(key, value []byte) error {
		var meta AssetMeta
		if err := json.Unmarshal(value, &meta); err != nil {
			return err
		}
		return callback(&meta)
	})
}
