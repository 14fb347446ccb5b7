// Package orchestrator processes lesson requests: it builds each request's
// script, compiles it, encodes and publishes the audio, and records the
// outcome. Requests are handled one at a time, batches never overlap and
// one failure never stops a batch.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/lessonvox/lessonvox/internal/audio"
	"github.com/lessonvox/lessonvox/internal/compiler"
	"github.com/lessonvox/lessonvox/internal/lesson"
	"github.com/lessonvox/lessonvox/internal/script"
	"github.com/lessonvox/lessonvox/internal/storage"
	"github.com/lessonvox/lessonvox/internal/store"
)

// previewLength is how much of a built script is logged.
const previewLength = 100

// markTimeout bounds status writes made after the request context ended.
const markTimeout = 10 * time.Second

// ErrNotApproved is returned by ProcessByID for requests that are not
// waiting to be processed.
var ErrNotApproved = errors.New("request is not approved")

// Orchestrator drives requests from a store through the compiler to
// artifact storage.
type Orchestrator struct {
	mu sync.Mutex // serializes batches

	requests  store.RequestStore
	artifacts storage.ArtifactStore
	compiler  *compiler.Compiler
	encoder   audio.Encoder
	logger    *log.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an orchestrator.
func New(requests store.RequestStore, artifacts storage.ArtifactStore, c *compiler.Compiler, enc audio.Encoder, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		requests:  requests,
		artifacts: artifacts,
		compiler:  c,
		encoder:   enc,
		logger:    log.WithPrefix("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Outcome is the result of processing one request.
type Outcome struct {
	RequestID string        `json:"request_id"`
	Filename  string        `json:"audio_filename"`
	Status    lesson.Status `json:"status"`
	Skipped   bool          `json:"skipped,omitempty"`
	URL       string        `json:"audio_url,omitempty"`
	Dropped   int           `json:"dropped,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Err       error         `json:"-"`
}

// Error returns the failure message, or "".
func (o Outcome) Error() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Summary aggregates a batch.
type Summary struct {
	Found     int       `json:"found"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped,omitempty"`
	Outcomes  []Outcome `json:"outcomes"`
}

func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch {
	case o.Skipped:
		s.Skipped++
	case o.Status == lesson.StatusCompleted:
		s.Completed++
	default:
		s.Failed++
	}
}

// ProcessPending processes every approved request in order. It returns an
// error only when the pending list cannot be fetched or ctx ends; the
// summary then covers the requests handled so far. Concurrent calls wait
// for the running batch to finish.
func (o *Orchestrator) ProcessPending(ctx context.Context) (Summary, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var sum Summary

	reqs, err := o.requests.FetchPending(ctx)
	if err != nil {
		return sum, fmt.Errorf("fetching pending requests: %w", err)
	}
	sum.Found = len(reqs)
	if len(reqs) == 0 {
		o.logger.Debug("No approved requests")
		return sum, nil
	}
	o.logger.Info("Found approved requests", "count", len(reqs))

	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.add(o.process(ctx, req))
	}

	o.logger.Info("Batch finished", "completed", sum.Completed, "failed", sum.Failed, "skipped", sum.Skipped)
	return sum, nil
}

// ProcessByID fetches one request and processes it if it is approved.
func (o *Orchestrator) ProcessByID(ctx context.Context, id string) (Outcome, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	req, err := o.requests.Get(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	if req.Status != lesson.StatusApproved {
		return Outcome{}, fmt.Errorf("%w: %s is %s", ErrNotApproved, id, req.Status)
	}
	out := o.process(ctx, req)
	if out.Skipped {
		return out, fmt.Errorf("%w: %s was claimed by another worker", ErrNotApproved, id)
	}
	return out, nil
}

// process claims, compiles and publishes one request and records the
// result in the store. Any failure after the claim marks it failed.
func (o *Orchestrator) process(ctx context.Context, req lesson.Request) Outcome {
	filename := req.FilenameFor(o.encoder.Ext())
	logger := o.logger.With("request", req.ID, "file", filename)
	out := Outcome{RequestID: req.ID, Filename: filename}

	if err := o.requests.Claim(ctx, req.ID); err != nil {
		if errors.Is(err, store.ErrNotClaimable) {
			logger.Info("Request already taken, skipping")
			out.Status = lesson.StatusProcessing
			out.Skipped = true
			return out
		}
		logger.Error("Could not claim request", "err", err)
		out.Status = lesson.StatusFailed
		out.Err = fmt.Errorf("marking processing: %w", err)
		return out
	}

	url, res, err := o.render(ctx, logger, req)
	if err != nil {
		logger.Error("Request failed", "err", err)
		out.Status = lesson.StatusFailed
		out.Err = err
		if merr := o.markFailed(ctx, req.ID); merr != nil {
			logger.Error("Could not mark request failed", "err", merr)
			out.Err = errors.Join(err, merr)
		}
		return out
	}

	out.Status = lesson.StatusCompleted
	out.URL = url
	out.Dropped = res.Dropped
	out.Duration = res.Audio.Duration()
	logger.Info("Request completed", "url", url, "duration", out.Duration.Round(time.Second), "dropped", res.Dropped)
	return out
}

func (o *Orchestrator) render(ctx context.Context, logger *log.Logger, req lesson.Request) (string, *compiler.Result, error) {
	track, err := req.Track()
	if err != nil {
		return "", nil, err
	}

	pairs := req.Pairs()
	scr, err := script.Build(track, pairs)
	if err != nil {
		return "", nil, err
	}
	logger.Info("Processing request", "user", req.UserID, "track", track, "sentences", len(pairs))
	logger.Debug("Script preview", "script", preview(scr))

	res, err := o.compiler.CompileScript(ctx, scr, track)
	if err != nil {
		return "", nil, fmt.Errorf("compiling: %w", err)
	}

	data, err := o.encoder.Encode(ctx, res.Audio)
	if err != nil {
		return "", nil, fmt.Errorf("encoding: %w", err)
	}
	logger.Debug("Encoded", "format", o.encoder.Ext(), "size", humanize.Bytes(uint64(len(data))))

	url, err := o.artifacts.Upload(ctx, data, req.StoragePathFor(o.encoder.Ext()), o.encoder.ContentType())
	if err != nil {
		return "", nil, fmt.Errorf("uploading: %w", err)
	}

	if err := o.requests.MarkCompleted(ctx, req.ID, url); err != nil {
		return "", nil, fmt.Errorf("marking completed: %w", err)
	}
	return url, res, nil
}

// markFailed records a failure even if ctx has already ended.
func (o *Orchestrator) markFailed(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markTimeout)
	defer cancel()
	return o.requests.MarkFailed(ctx, id)
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLength {
		return s
	}
	return string(r[:previewLength]) + "..."
}
