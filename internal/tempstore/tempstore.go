// Package tempstore manages the temp area: one appendable file per upload
// session, named by session id. Chunks land here until the session completes
// and the blob is promoted into the object store.
package tempstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

type Store struct {
	root string
}

// Entry describes one temp blob, as seen by the sweeper.
type Entry struct {
	ID      string
	Size    int64
	ModTime time.Time
}

func New(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("temp root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create temp root: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) path(id string) string {
	// Session ids are server-generated uuids, but never trust a name with
	// separators in it anyway.
	return filepath.Join(s.root, filepath.Base(id))
}

// Create allocates an empty blob for a new session. Fails if one already
// exists under the id.
func (s *Store) Create(id string) error {
	f, err := os.OpenFile(s.path(id), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	return f.Close()
}

// Append writes content to the blob starting exactly at offset and returns the
// number of bytes durably written. The blob's current size must equal offset;
// the caller serializes appends per session, this check is the backstop.
func (s *Store) Append(ctx context.Context, id string, offset int64, content io.Reader) (int64, error) {
	path := s.path(id)

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat temp blob: %w", err)
	}
	if info.Size() != offset {
		return 0, fmt.Errorf("temp blob size %d does not match append offset %d", info.Size(), offset)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open temp blob: %w", err)
	}

	n, copyErr := io.Copy(f, readerContext(ctx, content))

	// The offset only advances for bytes the disk confirmed, so sync before
	// reporting n even when the copy failed mid-stream.
	if err := f.Sync(); err != nil && copyErr == nil {
		copyErr = fmt.Errorf("sync temp blob: %w", err)
	}
	if err := f.Close(); err != nil && copyErr == nil {
		copyErr = fmt.Errorf("close temp blob: %w", err)
	}

	return n, copyErr
}

// Open returns a reader over the whole blob, used during promotion.
func (s *Store) Open(id string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("open temp blob: %w", err)
	}
	return f, nil
}

// Size returns the current blob size in bytes.
func (s *Store) Size(id string) (int64, error) {
	info, err := os.Stat(s.path(id))
	if err != nil {
		return 0, fmt.Errorf("stat temp blob: %w", err)
	}
	return info.Size(), nil
}

// Remove deletes the blob. Removing a blob that is already gone is not an
// error, the sweeper and finalization can race benignly.
func (s *Store) Remove(id string) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove temp blob: %w", err)
	}
	return nil
}

// Entries lists every temp blob with its size and last modification time.
func (s *Store) Entries() ([]Entry, error) {
	dirents, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read temp root: %w", err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if d.IsDir() {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue // removed between ReadDir and Info
		}
		entries = append(entries, Entry{
			ID:      d.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return entries, nil
}

// readerContext fails the copy once ctx is done, so a caller timeout cannot
// leave Append blocked on a stalled request body.
func readerContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
