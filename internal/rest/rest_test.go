package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/assetsum/assetsum/internal/crc"
	"github.com/assetsum/assetsum/internal/journal"
	"github.com/assetsum/assetsum/internal/manifest"
	"github.com/assetsum/assetsum/internal/ratelimit"
	"github.com/assetsum/assetsum/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) (*Server, string) {
	t.Helper()

	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "index"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	j, err := journal.New(journal.Config{Dir: filepath.Join(dir, "journal")})
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	root := filepath.Join(dir, "assets")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "ui"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ui", "hud.layout"), []byte("1"), 0644))

	m := manifest.NewManager(s, j, manifest.Options{Workers: 2})
	return NewServer(m, Options{Root: root, MaxBodyBytes: 1024, Limiter: limiter}), root
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestChecksumBody(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/v1/checksum", "1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChecksumResponse
	decode(t, rec, &resp)
	assert.Equal(t, uint32(0x83dcefb7), resp.Checksum)
	assert.Equal(t, "83dcefb7", resp.Hex)
	assert.Equal(t, 1, resp.Length)
}

func TestChecksumBodyExplicitLength(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/v1/checksum?length=1", "11")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChecksumResponse
	decode(t, rec, &resp)
	assert.Equal(t, "83dcefb7", resp.Hex)

	rec = do(t, s, http.MethodPost, "/v1/checksum?length=0", "11")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.Equal(t, uint32(0), resp.Checksum)

	for _, bad := range []string{"3", "-1", "x"} {
		rec = do(t, s, http.MethodPost, "/v1/checksum?length="+bad, "11")
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestChecksumBodyTooLarge(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/v1/checksum", strings.Repeat("x", 2048))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestChecksumText(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/v1/checksum/123456789", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChecksumResponse
	decode(t, rec, &resp)
	assert.Equal(t, "cbf43926", resp.Hex)
	assert.Equal(t, 9, resp.Length)
}

func TestChecksumTextDecodesPath(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		target string
		text   string
	}{
		{"/v1/checksum/a%2Fb", "a/b"},
		{"/v1/checksum/textures/player.dds", "textures/player.dds"},
		{"/v1/checksum/textures%2Fplayer%20one.dds", "textures/player one.dds"},
		{"/v1/checksum/100%25", "100%"},
		{"/v1/checksum/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.target, "")
			require.Equal(t, http.StatusOK, rec.Code)

			var resp ChecksumResponse
			decode(t, rec, &resp)
			assert.Equal(t, crc.String(tt.text), resp.Checksum)
			assert.Equal(t, len(tt.text), resp.Length)
		})
	}
}

func TestGetAssetEscapedPath(t *testing.T) {
	s, _ := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/v1/scan", "").Code)

	rec := do(t, s, http.MethodGet, "/v1/assets/ui%2Fhud.layout", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var asset AssetResponse
	decode(t, rec, &asset)
	assert.Equal(t, "ui/hud.layout", asset.Path)
}

func TestScanListGetVerify(t *testing.T) {
	s, root := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/v1/scan", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var result manifest.ScanResult
	decode(t, rec, &result)
	assert.Equal(t, 1, result.Added)

	rec = do(t, s, http.MethodGet, "/v1/assets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list ListAssetsResponse
	decode(t, rec, &list)
	require.Len(t, list.Assets, 1)
	assert.Equal(t, "ui/hud.layout", list.Assets[0].Path)

	rec = do(t, s, http.MethodGet, "/v1/assets/ui/hud.layout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var asset AssetResponse
	decode(t, rec, &asset)
	assert.Equal(t, "83dcefb7", asset.Hex)

	rec = do(t, s, http.MethodGet, "/v1/assets/ui/missing.layout", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/verify", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, os.WriteFile(filepath.Join(root, "ui", "hud.layout"), []byte("2"), 0644))
	rec = do(t, s, http.MethodPost, "/v1/verify", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	var report manifest.VerifyReport
	decode(t, rec, &report)
	assert.Equal(t, []string{"ui/hud.layout"}, report.Mismatched)

	rec = do(t, s, http.MethodPost, "/v1/compact", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, ratelimit.NewLimiter(2, 0.001))

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/v1/checksum/a", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/v1/checksum/b", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, s, http.MethodGet, "/v1/checksum/c", "").Code)

	// Health and metrics are never limited
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/metrics", "").Code)
}
