package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/lessonvox/lessonvox/internal/lesson"
)

// FileStore keeps requests in a JSON array on disk. Every operation reads
// the file, so external edits are picked up; writes replace the file
// atomically.
type FileStore struct {
	path string
	mu   sync.Mutex

	// saved identifies the file as last written by save, so Watch can
	// ignore the store's own writes.
	savedMu sync.Mutex
	saved   stamp
}

type stamp struct {
	mod  time.Time
	size int64
}

func stampOf(fi os.FileInfo) stamp {
	return stamp{mod: fi.ModTime(), size: fi.Size()}
}

var _ RequestStore = (*FileStore)(nil)

// NewFileStore returns a store backed by path. A missing file reads as
// empty and is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// FetchPending implements RequestStore.
func (s *FileStore) FetchPending(ctx context.Context) ([]lesson.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reqs, err := s.load()
	if err != nil {
		return nil, err
	}

	var pending []lesson.Request
	for _, r := range reqs {
		if r.Status == lesson.StatusApproved {
			pending = append(pending, r)
		}
	}
	slices.SortStableFunc(pending, func(a, b lesson.Request) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return pending, nil
}

// Get implements RequestStore.
func (s *FileStore) Get(ctx context.Context, id string) (lesson.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reqs, err := s.load()
	if err != nil {
		return lesson.Request{}, err
	}
	for _, r := range reqs {
		if r.ID == id {
			return r, nil
		}
	}
	return lesson.Request{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Put inserts or replaces a request.
func (s *FileStore) Put(ctx context.Context, req lesson.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reqs, err := s.load()
	if err != nil {
		return err
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now()
	}
	i := slices.IndexFunc(reqs, func(r lesson.Request) bool { return r.ID == req.ID })
	if i >= 0 {
		reqs[i] = req
	} else {
		reqs = append(reqs, req)
	}
	return s.save(reqs)
}

// Claim implements RequestStore.
func (s *FileStore) Claim(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reqs, err := s.load()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(reqs, func(r lesson.Request) bool { return r.ID == id })
	if i < 0 || reqs[i].Status != lesson.StatusApproved {
		return fmt.Errorf("%w: %s", ErrNotClaimable, id)
	}
	reqs[i].Status = lesson.StatusProcessing
	reqs[i].UpdatedAt = now()
	return s.save(reqs)
}

// SetStatus implements RequestStore.
func (s *FileStore) SetStatus(ctx context.Context, id string, status lesson.Status) error {
	return s.update(id, func(r *lesson.Request) {
		r.Status = status
		if status == lesson.StatusCompleted {
			t := r.UpdatedAt
			r.CompletedAt = &t
		}
	})
}

// MarkCompleted implements RequestStore.
func (s *FileStore) MarkCompleted(ctx context.Context, id, url string) error {
	return s.update(id, func(r *lesson.Request) {
		t := r.UpdatedAt
		r.Status = lesson.StatusCompleted
		r.AudioURL = url
		r.CompletedAt = &t
	})
}

// MarkFailed implements RequestStore.
func (s *FileStore) MarkFailed(ctx context.Context, id string) error {
	return s.update(id, func(r *lesson.Request) {
		r.Status = lesson.StatusFailed
	})
}

func (s *FileStore) update(id string, fn func(*lesson.Request)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reqs, err := s.load()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(reqs, func(r lesson.Request) bool { return r.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	reqs[i].UpdatedAt = now()
	fn(&reqs[i])
	return s.save(reqs)
}

func (s *FileStore) load() ([]lesson.Request, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading requests: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var reqs []lesson.Request
	if err := json.Unmarshal(data, &reqs); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.path, err)
	}
	return reqs, nil
}

func (s *FileStore) save(reqs []lesson.Request) error {
	data, err := json.MarshalIndent(reqs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding requests: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".requests-*.json")
	if err != nil {
		return fmt.Errorf("writing requests: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("writing requests: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing requests: %w", err)
	}

	// Held across the rename so Watch cannot see the new file before its
	// stamp is recorded.
	s.savedMu.Lock()
	defer s.savedMu.Unlock()
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	if fi, err := os.Stat(s.path); err == nil {
		s.saved = stampOf(fi)
	}
	return nil
}

// ownWrite reports whether the file is still exactly as save left it.
func (s *FileStore) ownWrite() bool {
	s.savedMu.Lock()
	defer s.savedMu.Unlock()
	fi, err := os.Stat(s.path)
	if err != nil {
		return false
	}
	return s.saved == stampOf(fi)
}

// Watch signals on the returned channel whenever the backing file is
// written, created or replaced by someone other than this store. Signals
// coalesce; the channel closes when ctx is done.
func (s *FileStore) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	// Watch the directory: editors and our own saves replace the file.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close() //nolint:errcheck
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	changes := make(chan struct{}, 1)

	go func() {
		defer close(changes)
		defer watcher.Close() //nolint:errcheck

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if s.ownWrite() {
					continue
				}
				select {
				case changes <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("Request file watcher error", "err", err)
			}
		}
	}()

	return changes, nil
}
