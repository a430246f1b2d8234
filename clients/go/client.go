package assetsum

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is an assetsum HTTP client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new assetsum client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is returned for responses with a 4xx or 5xx status
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, string(e.Body))
}

// Checksum is the result of hashing a body or string
type Checksum struct {
	Checksum uint32 `json:"checksum"`
	Hex      string `json:"hex"`
	Length   int    `json:"length"`
}

// Asset is an indexed file
type Asset struct {
	Path     string `json:"path"`
	Checksum uint32 `json:"checksum"`
	Hex      string `json:"hex"`
	Size     int64  `json:"size"`
	ModTime  int64  `json:"mod_time_ms"`
	ScanID   string `json:"scan_id"`
}

// ScanResult summarises a scan
type ScanResult struct {
	ScanID    string        `json:"scan_id"`
	Added     int           `json:"added"`
	Changed   int           `json:"changed"`
	Unchanged int           `json:"unchanged"`
	Removed   int           `json:"removed"`
	Bytes     int64         `json:"bytes"`
	Duration  time.Duration `json:"duration"`
}

// VerifyReport lists the differences between the asset tree and the index
type VerifyReport struct {
	Verified   int      `json:"verified"`
	Mismatched []string `json:"mismatched"`
	Missing    []string `json:"missing"`
	Unindexed  []string `json:"unindexed"`
}

// OK reports whether the tree matched the index
func (r *VerifyReport) OK() bool {
	return len(r.Mismatched) == 0 && len(r.Missing) == 0 && len(r.Unindexed) == 0
}

// Checksum hashes data on the server. A negative length hashes all of it.
func (c *Client) Checksum(ctx context.Context, data []byte, length int) (*Checksum, error) {
	path := "/v1/checksum"
	if length >= 0 {
		path += "?length=" + strconv.Itoa(length)
	}

	var resp Checksum
	if err := c.doRequest(ctx, http.MethodPost, path, bytes.NewReader(data), "application/octet-stream", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChecksumText hashes a short string passed in the URL
func (c *Client) ChecksumText(ctx context.Context, text string) (*Checksum, error) {
	var resp Checksum
	if err := c.doRequest(ctx, http.MethodGet, "/v1/checksum/"+url.PathEscape(text), nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListAssets returns every indexed asset
func (c *Client) ListAssets(ctx context.Context) ([]Asset, error) {
	var resp struct {
		Assets []Asset `json:"assets"`
	}

	if err := c.doRequest(ctx, http.MethodGet, "/v1/assets/", nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.Assets, nil
}

// GetAsset returns one indexed asset by its slash-separated path
func (c *Client) GetAsset(ctx context.Context, path string) (*Asset, error) {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	var resp Asset
	if err := c.doRequest(ctx, http.MethodGet, "/v1/assets/"+strings.Join(segments, "/"), nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Scan asks the server to rescan its asset root
func (c *Client) Scan(ctx context.Context) (*ScanResult, error) {
	var resp ScanResult
	if err := c.doRequest(ctx, http.MethodPost, "/v1/scan", nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Verify asks the server to check its asset root against the index.
// A tree that does not match still returns a report; check OK.
func (c *Client) Verify(ctx context.Context) (*VerifyReport, error) {
	var resp VerifyReport
	err := c.doRequest(ctx, http.MethodPost, "/v1/verify", nil, "", &resp)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
		if err := json.Unmarshal(apiErr.Body, &resp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}
		return &resp, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Compact asks the server to compact its journal
func (c *Client) Compact(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodPost, "/v1/compact", nil, "", nil)
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader, contentType string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Body: respBody}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
