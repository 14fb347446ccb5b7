// Package store reads lesson requests and records their outcome. Two
// backends exist: a JSON file for local use and Supabase (PostgREST) for
// production.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/lessonvox/lessonvox/internal/lesson"
)

var (
	// ErrNotFound is returned when a request id does not exist.
	ErrNotFound = errors.New("request not found")

	// ErrNotClaimable is returned by Claim when the request is missing or
	// no longer approved, usually because another worker claimed it.
	ErrNotClaimable = errors.New("request is not approved")
)

// RequestStore is the request lifecycle capability.
type RequestStore interface {
	// FetchPending returns approved requests, oldest first.
	FetchPending(ctx context.Context) ([]lesson.Request, error)

	// Get returns one request.
	Get(ctx context.Context, id string) (lesson.Request, error)

	// Claim moves an approved request to processing. Exactly one of any
	// concurrent callers succeeds; the rest get ErrNotClaimable.
	Claim(ctx context.Context, id string) error

	// SetStatus moves a request to status.
	SetStatus(ctx context.Context, id string, status lesson.Status) error

	// MarkCompleted records the published URL and completes the request.
	MarkCompleted(ctx context.Context, id, url string) error

	// MarkFailed fails the request.
	MarkFailed(ctx context.Context, id string) error
}

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }
