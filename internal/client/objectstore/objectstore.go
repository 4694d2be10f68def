package objectstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned by Download when no object lives under the key.
// Realizations map their backend-specific not-found errors onto it so callers
// can tell a missing blob from an I/O failure.
var ErrNotExist = errors.New("object does not exist")

type Client interface {
	Upload(ctx context.Context, key string, content io.Reader) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
