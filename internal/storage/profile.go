package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"wellness-hub/internal/domain"
)

const sniffLen = 3072

// ErrUnsupportedImage is returned for uploads that are not images.
var ErrUnsupportedImage = errors.New("profile image must be an image")

// ProfileImages stores avatars under a key prefix.
type ProfileImages struct {
	store   Service
	prefix  string
	expires time.Duration
}

func NewProfileImages(store Service, prefix string, expires time.Duration) *ProfileImages {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "profile-images"
	}
	return &ProfileImages{store: store, prefix: prefix, expires: expires}
}

// Save uploads img and returns its object key.
func (p *ProfileImages) Save(ctx context.Context, img domain.ProfileImage) (string, error) {
	if img.Data == nil {
		return "", fmt.Errorf("profile image is empty")
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(img.Data, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read profile image: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return "", fmt.Errorf("profile image is empty")
	}

	detected := mimetype.Detect(head)
	if !strings.HasPrefix(detected.String(), "image/") {
		return "", fmt.Errorf("%w: got %s", ErrUnsupportedImage, detected.String())
	}

	ext := strings.ToLower(path.Ext(img.Filename))
	if ext == "" {
		ext = detected.Extension()
	}
	key := p.prefix + "/" + uuid.NewString() + ext

	body := io.MultiReader(bytes.NewReader(head), img.Data)
	if err := p.store.Put(ctx, key, body, PutOptions{ContentType: detected.String()}); err != nil {
		return "", err
	}
	return key, nil
}

// URL resolves a stored key. Absolute URLs are returned unchanged.
func (p *ProfileImages) URL(ctx context.Context, key string) (string, error) {
	if key == "" || strings.Contains(key, "://") {
		return key, nil
	}
	return p.store.URL(ctx, key, p.expires)
}

// Delete removes a stored image.
func (p *ProfileImages) Delete(ctx context.Context, key string) error {
	if key == "" || strings.Contains(key, "://") {
		return nil
	}
	return p.store.Delete(ctx, key)
}
