package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotConfigured is returned when no bucket or directory was set up.
var ErrNotConfigured = errors.New("storage is not configured")

// PutOptions conveys upload metadata.
type PutOptions struct {
	ContentType string
	Size        int64
}

// Service stores profile images and hands out URLs for them.
type Service interface {
	Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error
	// URL returns a link the client can fetch the object from. expires is a
	// hint; stores without signed links ignore it.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}
