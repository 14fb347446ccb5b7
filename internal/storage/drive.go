package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DriveStore uploads artifacts to a Google Drive folder. Paths are
// flattened into file names ("personalized/u1/a.mp3" becomes
// "personalized_u1_a.mp3"); an existing file with the same name is
// replaced.
type DriveStore struct {
	srv      *gdrive.Service
	folderID string
}

var _ ArtifactStore = (*DriveStore)(nil)

// NewDriveStore wraps an existing Drive service.
func NewDriveStore(srv *gdrive.Service, folderID string) *DriveStore {
	return &DriveStore{srv: srv, folderID: folderID}
}

// NewDriveStoreFromCredentials builds a Drive service from a service
// account or authorized-user JSON file.
func NewDriveStoreFromCredentials(ctx context.Context, credentialsFile, folderID string) (*DriveStore, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading drive credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, gdrive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("parsing drive credentials: %w", err)
	}
	srv, err := gdrive.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}
	return NewDriveStore(srv, folderID), nil
}

// Upload implements ArtifactStore. It returns the file's webViewLink.
func (s *DriveStore) Upload(ctx context.Context, data []byte, p, contentType string) (string, error) {
	clean, err := cleanPath(p)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, p)
	}
	name := driveName(clean)
	mediaOpts := []googleapi.MediaOption{
		googleapi.ChunkSize(2 * 1024 * 1024),
		googleapi.ContentType(contentType),
	}

	existing, err := s.srv.Files.List().
		Q(s.query(name)).
		Fields("files(id)").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive lookup failed: %w", err)
	}

	var file *gdrive.File
	if len(existing.Files) > 0 {
		file, err = s.srv.Files.Update(existing.Files[0].Id, &gdrive.File{MimeType: contentType}).
			Media(bytes.NewReader(data), mediaOpts...).
			Fields("id,webViewLink").
			Context(ctx).
			Do()
	} else {
		meta := &gdrive.File{Name: name, MimeType: contentType}
		if s.folderID != "" {
			meta.Parents = []string{s.folderID}
		}
		file, err = s.srv.Files.Create(meta).
			Media(bytes.NewReader(data), mediaOpts...).
			Fields("id,webViewLink").
			Context(ctx).
			Do()
	}
	if err != nil {
		return "", fmt.Errorf("drive upload failed: %w", err)
	}

	if file.WebViewLink != "" {
		return file.WebViewLink, nil
	}
	return "https://drive.google.com/file/d/" + file.Id + "/view", nil
}

func (s *DriveStore) query(name string) string {
	q := fmt.Sprintf("name = '%s' and trashed = false", driveEscape(name))
	if s.folderID != "" {
		q += fmt.Sprintf(" and '%s' in parents", driveEscape(s.folderID))
	}
	return q
}

func driveName(p string) string {
	return strings.ReplaceAll(p, "/", "_")
}

// driveEscape escapes a string literal for a Drive search query.
func driveEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
