package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lessonvox/lessonvox/internal/lesson"
)

func seedFileStore(t *testing.T) *FileStore {
	t.Helper()
	s := NewFileStore(filepath.Join(t.TempDir(), "requests.json"))
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, r := range []lesson.Request{
		{ID: "b", UserID: "u1", AudioFilename: "lesson-1-sentence-2.mp3", Status: lesson.StatusApproved, CreatedAt: base.Add(time.Minute)},
		{ID: "a", UserID: "u1", AudioFilename: "lesson-1-sentence-1.mp3", Status: lesson.StatusApproved, CreatedAt: base},
		{ID: "c", UserID: "u2", AudioFilename: "lesson-1-sentence-1.mp3", Status: lesson.StatusPending, CreatedAt: base},
	} {
		if err := s.Put(ctx, r); err != nil {
			t.Fatalf("Put(%d) error = %v", i, err)
		}
	}
	return s
}

func TestFileStore_FetchPending(t *testing.T) {
	s := seedFileStore(t)

	pending, err := s.FetchPending(context.Background())
	if err != nil {
		t.Fatalf("FetchPending() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("FetchPending() returned %d requests, want 2", len(pending))
	}
	if pending[0].ID != "a" || pending[1].ID != "b" {
		t.Errorf("FetchPending() order = %s, %s, want a, b", pending[0].ID, pending[1].ID)
	}
}

func TestFileStore_MissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "none.json"))
	pending, err := s.FetchPending(context.Background())
	if err != nil || len(pending) != 0 {
		t.Errorf("FetchPending() = %v, %v, want empty", pending, err)
	}
}

func TestFileStore_Lifecycle(t *testing.T) {
	s := seedFileStore(t)
	ctx := context.Background()
	fixed := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = func() time.Time { return time.Now().UTC() } })

	if err := s.SetStatus(ctx, "a", lesson.StatusProcessing); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if err := s.MarkCompleted(ctx, "a", "https://cdn/a.mp3"); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	if err := s.MarkFailed(ctx, "b"); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}

	a, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if a.Status != lesson.StatusCompleted || a.AudioURL != "https://cdn/a.mp3" {
		t.Errorf("a = %s %q, want completed with url", a.Status, a.AudioURL)
	}
	if a.CompletedAt == nil || !a.CompletedAt.Equal(fixed) {
		t.Errorf("a.CompletedAt = %v, want %v", a.CompletedAt, fixed)
	}

	b, _ := s.Get(ctx, "b")
	if b.Status != lesson.StatusFailed {
		t.Errorf("b.Status = %s, want failed", b.Status)
	}

	pending, _ := s.FetchPending(ctx)
	if len(pending) != 0 {
		t.Errorf("FetchPending() after processing = %d requests, want 0", len(pending))
	}
}

func TestFileStore_NotFound(t *testing.T) {
	s := seedFileStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "zzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if err := s.MarkFailed(ctx, "zzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkFailed() error = %v, want ErrNotFound", err)
	}
}

func TestFileStore_LegacyRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.json")
	data := `[{"id":"1","user_id":"u","audio_filename":"x-sentence-1.mp3","status":"approved",
"personalized_text":"Hola. Adiós.","native_text":"Hello. Bye."}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	pending, err := NewFileStore(path).FetchPending(context.Background())
	if err != nil {
		t.Fatalf("FetchPending() error = %v", err)
	}
	pairs := pending[0].Pairs()
	if len(pairs) != 2 || pairs[1] != (lesson.SentencePair{Native: "Bye", Target: "Adiós"}) {
		t.Errorf("Pairs() = %+v", pairs)
	}
}

func TestFileStore_Watch(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "requests.json"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Put(ctx, lesson.Request{ID: "1", Status: lesson.StatusApproved}); err != nil {
		t.Fatal(err)
	}

	changes, err := s.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// The store's own writes are not changes.
	if err := s.Claim(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkCompleted(ctx, "1", "https://cdn/1.mp3"); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changes:
		t.Fatal("own save signalled a change")
	case <-time.After(300 * time.Millisecond):
	}

	edited := `[{"id":"1","status":"completed"},{"id":"2","status":"approved"}]`
	if err := os.WriteFile(s.Path(), []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("external edit not signalled")
	}

	cancel()
	for range changes {
	}
}

func TestFileStore_Claim(t *testing.T) {
	s := seedFileStore(t)
	ctx := context.Background()

	if err := s.Claim(ctx, "a"); err != nil {
		t.Fatalf("Claim(a) error = %v", err)
	}
	if err := s.Claim(ctx, "a"); !errors.Is(err, ErrNotClaimable) {
		t.Errorf("second Claim(a) error = %v, want ErrNotClaimable", err)
	}
	if err := s.Claim(ctx, "c"); !errors.Is(err, ErrNotClaimable) {
		t.Errorf("Claim(pending) error = %v, want ErrNotClaimable", err)
	}
	if err := s.Claim(ctx, "missing"); !errors.Is(err, ErrNotClaimable) {
		t.Errorf("Claim(missing) error = %v, want ErrNotClaimable", err)
	}

	got, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != lesson.StatusProcessing {
		t.Errorf("status = %s, want processing", got.Status)
	}
}

func TestFileStore_ClaimConcurrent(t *testing.T) {
	s := seedFileStore(t)

	var wg sync.WaitGroup
	var won atomic.Int32
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Claim(context.Background(), "b"); err == nil {
				won.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := won.Load(); got != 1 {
		t.Errorf("%d claims succeeded, want 1", got)
	}
}
