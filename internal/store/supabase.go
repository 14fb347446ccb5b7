package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lessonvox/lessonvox/internal/lesson"
	"github.com/supabase-community/postgrest-go"
)

// defaultTimeout bounds every PostgREST call.
const defaultTimeout = 30 * time.Second

// SupabaseStore reads and updates the requests table through PostgREST.
type SupabaseStore struct {
	client  *postgrest.Client
	table   string
	timeout time.Duration
}

var _ RequestStore = (*SupabaseStore)(nil)

// NewSupabaseStore creates a store for table in the given project.
func NewSupabaseStore(projectURL, serviceKey, table string) (*SupabaseStore, error) {
	if projectURL == "" || serviceKey == "" {
		return nil, errors.New("supabase url and service role key are required")
	}
	if table == "" {
		table = "tts_requests"
	}

	client := postgrest.NewClient(strings.TrimRight(projectURL, "/")+"/rest/v1", "public", map[string]string{
		"apikey":        serviceKey,
		"Authorization": "Bearer " + serviceKey,
	})
	if client.ClientError != nil {
		return nil, fmt.Errorf("invalid supabase url: %w", client.ClientError)
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.ResponseHeaderTimeout = defaultTimeout
	client.Transport.Parent = tr
	return &SupabaseStore{client: client, table: table, timeout: defaultTimeout}, nil
}

// row is the table's JSON shape. Timestamps are kept as strings because
// PostgREST may omit the zone for "timestamp" columns.
type row struct {
	ID            json.RawMessage       `json:"id"`
	UserID        string                `json:"user_id"`
	LessonID      int                   `json:"lesson_id"`
	AudioFilename string                `json:"audio_filename"`
	Status        lesson.Status         `json:"status"`
	Sentences     []lesson.SentencePair `json:"sentences"`
	TargetText    string                `json:"personalized_text"`
	NativeText    *string               `json:"native_text"`
	AudioURL      *string               `json:"audio_url"`
	CreatedAt     *string               `json:"created_at"`
	UpdatedAt     *string               `json:"updated_at"`
	CompletedAt   *string               `json:"completed_at"`
}

func (r row) request() lesson.Request {
	req := lesson.Request{
		ID:            rawID(r.ID),
		UserID:        r.UserID,
		LessonID:      r.LessonID,
		AudioFilename: r.AudioFilename,
		Status:        r.Status,
		Sentences:     r.Sentences,
		TargetText:    r.TargetText,
		NativeText:    deref(r.NativeText),
		AudioURL:      deref(r.AudioURL),
		CreatedAt:     parseTime(deref(r.CreatedAt)),
		UpdatedAt:     parseTime(deref(r.UpdatedAt)),
	}
	if t := parseTime(deref(r.CompletedAt)); !t.IsZero() {
		req.CompletedAt = &t
	}
	return req
}

// rawID accepts numeric or string ids.
func rawID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// FetchPending implements RequestStore.
func (s *SupabaseStore) FetchPending(ctx context.Context) ([]lesson.Request, error) {
	var rows []row
	q := s.client.From(s.table).
		Select("*", "", false).
		Eq("status", string(lesson.StatusApproved)).
		Order("created_at", &postgrest.OrderOpts{Ascending: true})
	err := s.run(ctx, q.ExecuteTo, &rows)
	if err != nil {
		return nil, fmt.Errorf("fetching approved requests: %w", err)
	}

	reqs := make([]lesson.Request, 0, len(rows))
	for _, r := range rows {
		reqs = append(reqs, r.request())
	}
	return reqs, nil
}

// Get implements RequestStore.
func (s *SupabaseStore) Get(ctx context.Context, id string) (lesson.Request, error) {
	var rows []row
	q := s.client.From(s.table).
		Select("*", "", false).
		Eq("id", id)
	err := s.run(ctx, q.ExecuteTo, &rows)
	if err != nil {
		return lesson.Request{}, fmt.Errorf("fetching request %s: %w", id, err)
	}
	if len(rows) == 0 {
		return lesson.Request{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rows[0].request(), nil
}

// Claim implements RequestStore. The update is filtered on the approved
// status, so only one caller gets the row back.
func (s *SupabaseStore) Claim(ctx context.Context, id string) error {
	var rows []row
	q := s.client.From(s.table).
		Update(map[string]any{
			"status":     lesson.StatusProcessing,
			"updated_at": now().Format(time.RFC3339Nano),
		}, "representation", "").
		Eq("id", id).
		Eq("status", string(lesson.StatusApproved))
	err := s.run(ctx, q.ExecuteTo, &rows)
	if err != nil {
		return fmt.Errorf("claiming request %s: %w", id, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: %s", ErrNotClaimable, id)
	}
	return nil
}

// SetStatus implements RequestStore.
func (s *SupabaseStore) SetStatus(ctx context.Context, id string, status lesson.Status) error {
	ts := now().Format(time.RFC3339Nano)
	patch := map[string]any{
		"status":     status,
		"updated_at": ts,
	}
	if status == lesson.StatusCompleted {
		patch["completed_at"] = ts
	}
	return s.patch(ctx, id, patch)
}

// MarkCompleted implements RequestStore.
func (s *SupabaseStore) MarkCompleted(ctx context.Context, id, audioURL string) error {
	ts := now().Format(time.RFC3339Nano)
	return s.patch(ctx, id, map[string]any{
		"status":       lesson.StatusCompleted,
		"audio_url":    audioURL,
		"completed_at": ts,
		"updated_at":   ts,
	})
}

// MarkFailed implements RequestStore.
func (s *SupabaseStore) MarkFailed(ctx context.Context, id string) error {
	return s.patch(ctx, id, map[string]any{
		"status":     lesson.StatusFailed,
		"updated_at": now().Format(time.RFC3339Nano),
	})
}

func (s *SupabaseStore) patch(ctx context.Context, id string, fields map[string]any) error {
	var rows []row
	q := s.client.From(s.table).
		Update(fields, "representation", "").
		Eq("id", id)
	err := s.run(ctx, q.ExecuteTo, &rows)
	if err != nil {
		return fmt.Errorf("updating request %s: %w", id, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// run executes a query, giving up when ctx ends or the store
// timeout passes. postgrest-go has no context support, so an abandoned
// query finishes in the background and its result is discarded.
func (s *SupabaseStore) run(ctx context.Context, execute func(any) (int64, error), to any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := execute(to)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
