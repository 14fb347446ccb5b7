package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lessonvox/lessonvox/internal/audio"
	"github.com/lessonvox/lessonvox/internal/compiler"
	"github.com/lessonvox/lessonvox/internal/config"
	"github.com/lessonvox/lessonvox/internal/lesson"
	"github.com/lessonvox/lessonvox/internal/speech/engines"
	"github.com/lessonvox/lessonvox/internal/store"
	"github.com/lessonvox/lessonvox/internal/voice"
)

// memStore is an in-memory store.RequestStore.
type memStore struct {
	mu       sync.Mutex
	reqs     []lesson.Request
	fetches  int
	fetchErr error
	history  map[string][]lesson.Status
	onFetch  func() // runs after a fetch, outside the lock
}

func newMemStore(reqs ...lesson.Request) *memStore {
	return &memStore{reqs: reqs, history: make(map[string][]lesson.Status)}
}

func (m *memStore) FetchPending(context.Context) ([]lesson.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	var out []lesson.Request
	for _, r := range m.reqs {
		if r.Status == lesson.StatusApproved {
			out = append(out, r)
		}
	}
	if m.onFetch != nil {
		m.mu.Unlock()
		m.onFetch()
		m.mu.Lock()
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id string) (lesson.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reqs {
		if r.ID == id {
			return r, nil
		}
	}
	return lesson.Request{}, store.ErrNotFound
}

func (m *memStore) set(id string, fn func(*lesson.Request)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.reqs {
		if m.reqs[i].ID == id {
			fn(&m.reqs[i])
			m.history[id] = append(m.history[id], m.reqs[i].Status)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) Claim(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.reqs {
		if m.reqs[i].ID == id && m.reqs[i].Status == lesson.StatusApproved {
			m.reqs[i].Status = lesson.StatusProcessing
			m.history[id] = append(m.history[id], lesson.StatusProcessing)
			return nil
		}
	}
	return store.ErrNotClaimable
}

func (m *memStore) SetStatus(_ context.Context, id string, s lesson.Status) error {
	return m.set(id, func(r *lesson.Request) { r.Status = s })
}

func (m *memStore) MarkCompleted(_ context.Context, id, url string) error {
	return m.set(id, func(r *lesson.Request) { r.Status = lesson.StatusCompleted; r.AudioURL = url })
}

func (m *memStore) MarkFailed(_ context.Context, id string) error {
	return m.set(id, func(r *lesson.Request) { r.Status = lesson.StatusFailed })
}

func (m *memStore) status(id string) lesson.Status {
	r, _ := m.Get(context.Background(), id)
	return r.Status
}

func (m *memStore) statusHistory(id string) []lesson.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]lesson.Status(nil), m.history[id]...)
}

func (m *memStore) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

// memArtifacts records uploads and can fail specific paths.
type memArtifacts struct {
	mu      sync.Mutex
	uploads map[string][]byte
	types   map[string]string
	counts  map[string]int
	fail    map[string]bool
}

func newMemArtifacts() *memArtifacts {
	return &memArtifacts{uploads: map[string][]byte{}, types: map[string]string{}, counts: map[string]int{}, fail: map[string]bool{}}
}

func (a *memArtifacts) count(path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[path]
}

func (a *memArtifacts) Upload(_ context.Context, data []byte, path, contentType string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail[path] {
		return "", errors.New("upload refused")
	}
	a.uploads[path] = data
	a.types[path] = contentType
	a.counts[path]++
	return "https://cdn.test/" + path, nil
}

var pairs = []lesson.SentencePair{
	{Native: "My name is Karl", Target: "Me llamo Karl"},
	{Native: "I live in Madrid", Target: "Vivo en Madrid"},
}

func newTestOrchestrator(st store.RequestStore, art *memArtifacts) (*Orchestrator, *engines.MockEngine) {
	engine := engines.NewMockEngine(config.MockConfig{})
	c := compiler.New(engine, nil, voice.DefaultTable())
	return New(st, art, c, audio.WAVEncoder{}), engine
}

func TestProcessPending(t *testing.T) {
	st := newMemStore(
		lesson.Request{ID: "1", UserID: "u1", AudioFilename: "l1-sentence-1.wav", Status: lesson.StatusApproved, Sentences: pairs},
		lesson.Request{ID: "2", UserID: "u1", AudioFilename: "l1-sentence-2.wav", Status: lesson.StatusApproved, Sentences: pairs},
		lesson.Request{ID: "3", UserID: "u2", AudioFilename: "l1-sentence-1.wav", Status: lesson.StatusPending, Sentences: pairs},
	)
	art := newMemArtifacts()
	o, engine := newTestOrchestrator(st, art)

	sum, err := o.ProcessPending(context.Background())
	if err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if sum.Found != 2 || sum.Completed != 2 || sum.Failed != 0 {
		t.Errorf("summary = %+v, want 2 found, 2 completed", sum)
	}

	for _, id := range []string{"1", "2"} {
		if got := st.status(id); got != lesson.StatusCompleted {
			t.Errorf("request %s status = %s, want completed", id, got)
		}
		if h := st.history[id]; len(h) != 2 || h[0] != lesson.StatusProcessing {
			t.Errorf("request %s history = %v, want processing then completed", id, h)
		}
	}
	if got := st.status("3"); got != lesson.StatusPending {
		t.Errorf("pending request touched: %s", got)
	}

	if _, ok := art.uploads["personalized/u1/l1-sentence-1.wav"]; !ok {
		t.Errorf("uploads = %v, want personalized/u1/l1-sentence-1.wav", art.uploads)
	}
	if art.types["personalized/u1/l1-sentence-2.wav"] != "audio/wav" {
		t.Errorf("content type = %q", art.types["personalized/u1/l1-sentence-2.wav"])
	}
	if sum.Outcomes[0].URL != "https://cdn.test/personalized/u1/l1-sentence-1.wav" {
		t.Errorf("outcome url = %q", sum.Outcomes[0].URL)
	}

	// Repetition track speaks the target with the repeat voice, once per text.
	if got := engine.Calls(voice.DefaultTable().TargetRepeat, "Me llamo Karl"); got != 1 {
		t.Errorf("repeat voice calls = %d, want 1", got)
	}
}

func TestProcessPending_FailuresDoNotStopBatch(t *testing.T) {
	st := newMemStore(
		lesson.Request{ID: "unknown", UserID: "u", AudioFilename: "intro.mp3", Status: lesson.StatusApproved, Sentences: pairs},
		lesson.Request{ID: "empty", UserID: "u", AudioFilename: "l1-sentence-1.wav", Status: lesson.StatusApproved},
		lesson.Request{ID: "upload", UserID: "u", AudioFilename: "l2-sentence-1.wav", Status: lesson.StatusApproved, Sentences: pairs},
		lesson.Request{ID: "ok", UserID: "u", AudioFilename: "l3-sentence-2.wav", Status: lesson.StatusApproved, Sentences: pairs},
	)
	art := newMemArtifacts()
	art.fail["personalized/u/l2-sentence-1.wav"] = true
	o, _ := newTestOrchestrator(st, art)

	sum, err := o.ProcessPending(context.Background())
	if err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if sum.Completed != 1 || sum.Failed != 3 {
		t.Errorf("summary = %d completed, %d failed, want 1/3", sum.Completed, sum.Failed)
	}

	want := map[string]lesson.Status{
		"unknown": lesson.StatusFailed,
		"empty":   lesson.StatusFailed,
		"upload":  lesson.StatusFailed,
		"ok":      lesson.StatusCompleted,
	}
	for id, status := range want {
		if got := st.status(id); got != status {
			t.Errorf("request %s status = %s, want %s", id, got, status)
		}
	}

	if err := sum.Outcomes[0].Err; !errors.Is(err, lesson.ErrUnknownTrack) {
		t.Errorf("unknown outcome error = %v, want ErrUnknownTrack", err)
	}
	if err := sum.Outcomes[1].Err; !errors.Is(err, compiler.ErrEmptyResult) {
		t.Errorf("empty outcome error = %v, want ErrEmptyResult", err)
	}
	if msg := sum.Outcomes[2].Error(); !strings.Contains(msg, "upload refused") {
		t.Errorf("upload outcome error = %q", msg)
	}
}

func TestProcessPending_Concurrent(t *testing.T) {
	st := newMemStore(
		lesson.Request{ID: "1", UserID: "u", AudioFilename: "l1-sentence-1.wav", Status: lesson.StatusApproved, Sentences: pairs},
		lesson.Request{ID: "2", UserID: "u", AudioFilename: "l1-sentence-2.wav", Status: lesson.StatusApproved, Sentences: pairs},
	)
	art := newMemArtifacts()
	o, _ := newTestOrchestrator(st, art)

	var wg sync.WaitGroup
	sums := make([]Summary, 2)
	for i := range sums {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sum, err := o.ProcessPending(context.Background())
			if err != nil {
				t.Errorf("ProcessPending() error = %v", err)
			}
			sums[i] = sum
		}()
	}
	wg.Wait()

	if got := sums[0].Completed + sums[1].Completed; got != 2 {
		t.Errorf("completed = %d across batches, want 2", got)
	}
	for _, id := range []string{"1", "2"} {
		want := []lesson.Status{lesson.StatusProcessing, lesson.StatusCompleted}
		if h := st.statusHistory(id); !equalStatuses(h, want) {
			t.Errorf("request %s history = %v, want %v", id, h, want)
		}
	}
	for _, p := range []string{"personalized/u/l1-sentence-1.wav", "personalized/u/l1-sentence-2.wav"} {
		if n := art.count(p); n != 1 {
			t.Errorf("%s uploaded %d times, want 1", p, n)
		}
	}
}

// Two workers that both saw the request as approved must not both render it.
func TestProcessPending_SharedStore(t *testing.T) {
	st := newMemStore(
		lesson.Request{ID: "1", UserID: "u", AudioFilename: "l1-sentence-1.wav", Status: lesson.StatusApproved, Sentences: pairs},
	)
	var fetched sync.WaitGroup
	fetched.Add(2)
	st.onFetch = func() {
		fetched.Done()
		fetched.Wait()
	}

	art := newMemArtifacts()
	workers := make([]*Orchestrator, 2)
	for i := range workers {
		workers[i], _ = newTestOrchestrator(st, art)
	}

	var wg sync.WaitGroup
	sums := make([]Summary, len(workers))
	for i, o := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sum, err := o.ProcessPending(context.Background())
			if err != nil {
				t.Errorf("ProcessPending() error = %v", err)
			}
			sums[i] = sum
		}()
	}
	wg.Wait()

	var completed, skipped, failed int
	for _, sum := range sums {
		completed += sum.Completed
		skipped += sum.Skipped
		failed += sum.Failed
	}
	if completed != 1 || skipped != 1 || failed != 0 {
		t.Errorf("completed/skipped/failed = %d/%d/%d, want 1/1/0", completed, skipped, failed)
	}

	want := []lesson.Status{lesson.StatusProcessing, lesson.StatusCompleted}
	if h := st.statusHistory("1"); !equalStatuses(h, want) {
		t.Errorf("history = %v, want %v", h, want)
	}
	if n := art.count("personalized/u/l1-sentence-1.wav"); n != 1 {
		t.Errorf("uploaded %d times, want 1", n)
	}
}

func TestProcessPending_ArtifactNameFollowsEncoder(t *testing.T) {
	st := newMemStore(
		lesson.Request{ID: "1", UserID: "u", AudioFilename: "l1-sentence-1.mp3", Status: lesson.StatusApproved, Sentences: pairs},
	)
	art := newMemArtifacts()
	o, _ := newTestOrchestrator(st, art)

	sum, err := o.ProcessPending(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := art.uploads["personalized/u/l1-sentence-1.mp3"]; ok {
		t.Error("wav bytes uploaded under an .mp3 name")
	}
	if art.types["personalized/u/l1-sentence-1.wav"] != "audio/wav" {
		t.Errorf("uploads = %v, want personalized/u/l1-sentence-1.wav", art.types)
	}
	if got := sum.Outcomes[0].Filename; got != "l1-sentence-1.wav" {
		t.Errorf("outcome filename = %q, want l1-sentence-1.wav", got)
	}
	if got := sum.Outcomes[0].URL; !strings.HasSuffix(got, ".wav") {
		t.Errorf("outcome url = %q, want .wav", got)
	}
}

func equalStatuses(a, b []lesson.Status) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestProcessPending_FetchError(t *testing.T) {
	st := newMemStore()
	st.fetchErr = errors.New("db down")
	o, _ := newTestOrchestrator(st, newMemArtifacts())

	if _, err := o.ProcessPending(context.Background()); err == nil {
		t.Error("ProcessPending() error = nil, want error")
	}
}

func TestProcessPending_LegacyRequest(t *testing.T) {
	st := newMemStore(lesson.Request{
		ID: "legacy", UserID: "u", AudioFilename: "l1-sentence-1.wav", Status: lesson.StatusApproved,
		TargetText: "Hola. Hola. Adiós.", NativeText: "Hello.",
	})
	o, engine := newTestOrchestrator(st, newMemArtifacts())

	if _, err := o.ProcessPending(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := st.status("legacy"); got != lesson.StatusCompleted {
		t.Fatalf("status = %s, want completed", got)
	}
	// Duplicates are dropped and the missing native line is a placeholder.
	if got := engine.Calls(voice.DefaultTable().Native, "Sentence 2"); got != 1 {
		t.Errorf("placeholder native calls = %d, want 1", got)
	}
}

func TestProcessByID(t *testing.T) {
	st := newMemStore(
		lesson.Request{ID: "a", UserID: "u", AudioFilename: "l1-sentence-1.wav", Status: lesson.StatusApproved, Sentences: pairs},
		lesson.Request{ID: "b", UserID: "u", AudioFilename: "l1-sentence-1.wav", Status: lesson.StatusCompleted, Sentences: pairs},
	)
	o, _ := newTestOrchestrator(st, newMemArtifacts())
	ctx := context.Background()

	out, err := o.ProcessByID(ctx, "a")
	if err != nil || out.Status != lesson.StatusCompleted {
		t.Errorf("ProcessByID(a) = %+v, %v", out, err)
	}
	if _, err := o.ProcessByID(ctx, "b"); !errors.Is(err, ErrNotApproved) {
		t.Errorf("ProcessByID(b) error = %v, want ErrNotApproved", err)
	}
	if _, err := o.ProcessByID(ctx, "zzz"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("ProcessByID(zzz) error = %v, want ErrNotFound", err)
	}
}

func TestProcessByID_LostClaim(t *testing.T) {
	st := newMemStore(
		lesson.Request{ID: "a", UserID: "u", AudioFilename: "l1-sentence-1.wav", Status: lesson.StatusApproved, Sentences: pairs},
	)
	art := newMemArtifacts()
	o, _ := newTestOrchestrator(st, art)

	// Another worker claims the request between Get and Claim.
	claimed := &claimingStore{memStore: st}
	o.requests = claimed

	out, err := o.ProcessByID(context.Background(), "a")
	if !errors.Is(err, ErrNotApproved) || !out.Skipped {
		t.Fatalf("ProcessByID(a) = %+v, %v, want skipped with ErrNotApproved", out, err)
	}
	if got := st.status("a"); got != lesson.StatusProcessing {
		t.Errorf("status = %s, want processing (left to the other worker)", got)
	}
	if len(art.uploads) != 0 {
		t.Errorf("uploads = %v, want none", art.uploads)
	}
}

// claimingStore claims every request itself right after Get.
type claimingStore struct {
	*memStore
}

func (c *claimingStore) Get(ctx context.Context, id string) (lesson.Request, error) {
	r, err := c.memStore.Get(ctx, id)
	if err == nil {
		_ = c.memStore.Claim(ctx, id)
	}
	return r, err
}

func TestWatch(t *testing.T) {
	st := newMemStore()
	o, _ := newTestOrchestrator(st, newMemArtifacts())

	ctx, cancel := context.WithCancel(context.Background())
	trigger := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- o.Watch(ctx, 0, trigger) }()

	trigger <- struct{}{}
	trigger <- struct{}{}

	deadline := time.After(5 * time.Second)
	for st.fetchCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("fetches = %d, want 3", st.fetchCount())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Watch() error = %v, want context.Canceled", err)
	}
}

func TestPreview(t *testing.T) {
	short := "[native] Hi [1.0s]"
	if got := preview(short); got != short {
		t.Errorf("preview(short) = %q", got)
	}
	long := strings.Repeat("ñ", 150)
	if got := preview(long); got != strings.Repeat("ñ", 100)+"..." {
		t.Errorf("preview(long) has %d runes", len([]rune(got)))
	}
}
