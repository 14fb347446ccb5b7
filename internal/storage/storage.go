// Package storage publishes rendered artifacts and returns their URLs.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrInvalidPath is returned for empty or escaping artifact paths.
var ErrInvalidPath = errors.New("invalid artifact path")

// ArtifactStore is the publish capability. Uploads overwrite an existing
// artifact at the same path.
type ArtifactStore interface {
	Upload(ctx context.Context, data []byte, path, contentType string) (url string, err error)
}

// cleanPath normalizes a slash-separated artifact path and rejects paths
// that are empty or leave the root.
func cleanPath(p string) (string, error) {
	p = path.Clean("/" + strings.TrimSpace(p))
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return "", ErrInvalidPath
	}
	return p, nil
}
