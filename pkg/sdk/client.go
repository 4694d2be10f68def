// Package sdk is a Go client for the shuttle upload service: session creation,
// offset-synchronized chunk uploads with automatic resume, and verified
// downloads.
package sdk

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/zeebo/blake3"

	"github.com/mkrett/shuttle/internal/metadata"
)

// ErrOffsetConflict means the server's offset moved under us; re-query with
// Offset and retry from there.
var ErrOffsetConflict = errors.New("upload offset conflict")

// Client is the shuttle SDK client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new SDK client
// baseURL is the root URL of the service, e.g., "http://localhost:8080"
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientWithHTTPClient creates an SDK client with a custom HTTP client
func NewClientWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// CreateUploadRequest is the request parameters for CreateUpload
type CreateUploadRequest struct {
	// Length is the total upload size in bytes, fixed for the session.
	Length int64
	// Filename and ContentType travel in the creation metadata header.
	Filename    string
	ContentType string
	// Metadata holds any extra metadata pairs to send alongside.
	Metadata map[string]string
}

// CreateUpload opens an upload session and returns the session URL.
func (c *Client) CreateUpload(req CreateUploadRequest) (string, error) {
	meta := make(map[string]string, len(req.Metadata)+2)
	for k, v := range req.Metadata {
		meta[k] = v
	}
	if req.Filename != "" {
		meta["filename"] = req.Filename
	}
	if req.ContentType != "" {
		meta["filetype"] = req.ContentType
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+"/upload", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Upload-Length", strconv.FormatInt(req.Length, 10))
	if len(meta) > 0 {
		httpReq.Header.Set("Upload-Metadata", metadata.Encode(meta))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create upload failed with status %d", resp.StatusCode)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("server returned no Location header")
	}

	return c.baseURL + location, nil
}

// Offset queries the resume position of a session.
func (c *Client) Offset(uploadURL string) (offset, length int64, err error) {
	httpReq, err := http.NewRequest(http.MethodHead, uploadURL, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("offset query failed with status %d", resp.StatusCode)
	}

	offset, err = strconv.ParseInt(resp.Header.Get("Upload-Offset"), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse Upload-Offset: %w", err)
	}
	length, err = strconv.ParseInt(resp.Header.Get("Upload-Length"), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse Upload-Length: %w", err)
	}

	return offset, length, nil
}

// AppendChunk sends one chunk at the claimed offset and returns the server's
// new offset. A stale claim returns ErrOffsetConflict.
func (c *Client) AppendChunk(uploadURL string, offset int64, chunk io.Reader) (int64, error) {
	httpReq, err := http.NewRequest(http.MethodPatch, uploadURL, chunk)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/offset+octet-stream")
	httpReq.Header.Set("Upload-Offset", strconv.FormatInt(offset, 10))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		newOffset, err := strconv.ParseInt(resp.Header.Get("Upload-Offset"), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse Upload-Offset: %w", err)
		}
		return newOffset, nil
	case http.StatusConflict:
		return 0, ErrOffsetConflict
	default:
		return 0, fmt.Errorf("chunk upload failed with status %d", resp.StatusCode)
	}
}

// UploadRequest is the request parameters for Upload
type UploadRequest struct {
	// Content must be seekable so the upload can resume after a conflict or a
	// dropped connection.
	Content io.ReadSeeker
	// Length is the total number of bytes in Content.
	Length      int64
	Filename    string
	ContentType string
	// ChunkSize bounds each PATCH body; defaults to 4 MiB.
	ChunkSize int64
	// OnProgress, when set, is called with confirmed and total bytes after
	// every acknowledged chunk.
	OnProgress func(sent, total int64)
	// Retries bounds how many consecutive failed chunks are tolerated before
	// giving up; defaults to 3.
	Retries int
}

// Upload pushes the whole content through a new session, chunk by chunk,
// re-querying the offset and resuming whenever a chunk is rejected.
func (c *Client) Upload(req UploadRequest) (string, error) {
	chunkSize := req.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 4 << 20
	}
	retries := req.Retries
	if retries <= 0 {
		retries = 3
	}

	uploadURL, err := c.CreateUpload(CreateUploadRequest{
		Length:      req.Length,
		Filename:    req.Filename,
		ContentType: req.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}

	var offset int64
	failures := 0
	for offset < req.Length {
		if _, err := req.Content.Seek(offset, io.SeekStart); err != nil {
			return uploadURL, fmt.Errorf("seek to offset %d: %w", offset, err)
		}

		chunk := io.LimitReader(req.Content, chunkSize)
		newOffset, err := c.AppendChunk(uploadURL, offset, chunk)
		if err != nil {
			failures++
			if failures > retries {
				return uploadURL, fmt.Errorf("upload stalled at offset %d: %w", offset, err)
			}
			// Ask the server where to continue; covers conflicts and chunks
			// that landed partially.
			resumeOffset, _, offErr := c.Offset(uploadURL)
			if offErr != nil {
				return uploadURL, fmt.Errorf("re-query offset: %w", offErr)
			}
			offset = resumeOffset
			continue
		}

		failures = 0
		offset = newOffset
		if req.OnProgress != nil {
			req.OnProgress(offset, req.Length)
		}
	}

	return uploadURL, nil
}

// Download streams an asset to dst, verifying the blake3 checksum when the
// server knows one.
func (c *Client) Download(id string, dst io.Writer) error {
	expected, err := c.checksum(id)
	if err != nil {
		return fmt.Errorf("look up checksum: %w", err)
	}

	resp, err := c.httpClient.Get(c.baseURL + "/download/" + id)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	var writer io.Writer = dst
	var hasher *blake3.Hasher
	if expected != "" {
		hasher = blake3.New()
		writer = io.MultiWriter(dst, hasher)
	}

	if _, err := io.Copy(writer, resp.Body); err != nil {
		return fmt.Errorf("stream download: %w", err)
	}

	if hasher != nil {
		got := hex.EncodeToString(hasher.Sum(nil))
		if got != expected {
			return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, got)
		}
	}

	return nil
}

// checksum finds the asset's stored checksum via the listing; empty when the
// server has none.
func (c *Client) checksum(id string) (string, error) {
	files, err := c.Files("")
	if err != nil {
		return "", err
	}
	for _, f := range files {
		if f.ID == id {
			if f.Checksum != nil {
				return *f.Checksum, nil
			}
			return "", nil
		}
	}
	return "", nil
}
