package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	storage_go "github.com/supabase-community/storage-go"
)

// uploadTimeout bounds one upload.
const uploadTimeout = 2 * time.Minute

// SupabaseStore uploads to a Supabase Storage bucket and returns the
// object's public URL.
type SupabaseStore struct {
	// storage-go keeps upload options in client-wide headers.
	mu      sync.Mutex
	client  *storage_go.Client
	bucket  string
	timeout time.Duration
}

var _ ArtifactStore = (*SupabaseStore)(nil)

// NewSupabaseStore creates a store for bucket in the given project.
func NewSupabaseStore(projectURL, serviceKey, bucket string) (*SupabaseStore, error) {
	if projectURL == "" || serviceKey == "" {
		return nil, errors.New("supabase url and service role key are required")
	}
	if bucket == "" {
		bucket = "audio"
	}
	client := storage_go.NewClient(strings.TrimRight(projectURL, "/")+"/storage/v1", serviceKey, map[string]string{
		"apikey": serviceKey,
	})
	return &SupabaseStore{client: client, bucket: bucket, timeout: uploadTimeout}, nil
}

// Upload implements ArtifactStore. Existing objects are overwritten.
func (s *SupabaseStore) Upload(ctx context.Context, data []byte, p, contentType string) (string, error) {
	clean, err := cleanPath(p)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, p)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// storage-go takes no context; an abandoned upload finishes in the
	// background while holding mu.
	done := make(chan error, 1)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		upsert := true
		_, err := s.client.UploadFile(s.bucket, clean, bytes.NewReader(data), storage_go.FileOptions{
			ContentType: &contentType,
			Upsert:      &upsert,
		})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("uploading %s: %w", clean, storageError(err))
		}
	case <-ctx.Done():
		return "", fmt.Errorf("uploading %s: %w", clean, ctx.Err())
	}
	return s.PublicURL(clean), nil
}

// PublicURL returns the public URL of an object in the bucket.
func (s *SupabaseStore) PublicURL(p string) string {
	return s.client.GetPublicUrl(s.bucket, p).SignedURL
}

// storageError gives storage-go errors without a message a readable one.
func storageError(err error) error {
	var se *storage_go.StorageError
	if errors.As(err, &se) && se.Message == "" {
		return errors.New("storage request rejected")
	}
	return err
}
