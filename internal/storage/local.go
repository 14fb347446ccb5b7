package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes artifacts under a directory.
type LocalStore struct {
	Dir     string
	BaseURL string // Optional public prefix; file:// URLs otherwise
}

var _ ArtifactStore = (*LocalStore)(nil)

// NewLocalStore returns a store rooted at dir (default "audio").
func NewLocalStore(dir, baseURL string) *LocalStore {
	if dir == "" {
		dir = "audio"
	}
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

// Upload implements ArtifactStore.
func (s *LocalStore) Upload(ctx context.Context, data []byte, p, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := cleanPath(p)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, p)
	}

	dst := filepath.Join(s.Dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", err
	}

	if s.BaseURL != "" {
		return s.BaseURL + "/" + clean, nil
	}
	abs, err := filepath.Abs(dst)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}
