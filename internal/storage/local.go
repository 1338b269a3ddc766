package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// LocalService keeps objects on disk. The mock backend serves Root under
// BaseURL so the returned links resolve.
type LocalService struct {
	root    string
	baseURL string
}

func NewLocalService(root, baseURL string) *LocalService {
	return &LocalService{
		root:    filepath.Clean(root),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Root is the directory objects are written to.
func (s *LocalService) Root() string {
	return s.root
}

func (s *LocalService) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error {
	target, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create object %s: %w", key, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(target)
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close object %s: %w", key, err)
	}
	return nil
}

func (s *LocalService) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if _, err := s.path(key); err != nil {
		return "", err
	}
	return s.baseURL + "/" + key, nil
}

func (s *LocalService) Delete(ctx context.Context, key string) error {
	target, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (s *LocalService) path(key string) (string, error) {
	if s.root == "" || s.root == "." {
		return "", ErrNotConfigured
	}
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || clean != "/"+key {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

var _ Service = (*LocalService)(nil)
