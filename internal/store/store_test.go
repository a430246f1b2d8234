package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/assetsum/assetsum/internal/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "index"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAssetRoundTrip(t *testing.T) {
	s := openTemp(t)

	meta := &AssetMeta{Path: "fonts/default.ttf", Checksum: 0x4ed8aa34, Size: 1024, ScanID: "s1"}
	require.NoError(t, s.SetAsset(meta))

	got, err := s.GetAsset("fonts/default.ttf")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *meta, *got)

	missing, err := s.GetAsset("fonts/missing.ttf")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, s.DeleteAsset("fonts/default.ttf"))
	got, err = s.GetAsset("fonts/default.ttf")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestScanAssetsOrdered(t *testing.T) {
	s := openTemp(t)

	for _, p := range []string{"b.bin", "a.bin", "c.bin"} {
		require.NoError(t, s.SetAsset(&AssetMeta{Path: p}))
	}
	require.NoError(t, s.Set([]byte("other:key"), []byte("x")))

	var paths []string
	require.NoError(t, s.ScanAssets(func(m *AssetMeta) error {
		paths = append(paths, m.Path)
		return nil
	}))
	assert.Equal(t, []string{"a.bin", "b.bin", "c.bin"}, paths)
}

func TestPrefixUpperBound(t *testing.T) {
	assert.Equal(t, []byte("asset;"), prefixUpperBound([]byte("asset:")))
	assert.Equal(t, []byte{0x01}, prefixUpperBound([]byte{0x00, 0xff}))
	assert.Nil(t, prefixUpperBound([]byte{0xff}))
}

func TestOpenWithRetry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")
	cfg := backoff.Config{BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}

	s, err := OpenWithRetry(context.Background(), path, cfg, 3)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestOpenWithRetryHonoursContext(t *testing.T) {
	// A regular file where the parent directory should be never opens.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := backoff.Config{BaseDelay: time.Second, MaxDelay: time.Second, Multiplier: 1}
	_, err := OpenWithRetry(ctx, filepath.Join(blocker, "index"), cfg, 3)
	assert.ErrorIs(t, err, context.Canceled)
}
