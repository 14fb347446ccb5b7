// Package lesson holds the sentence data a lesson track is built from and
// the request records that ask for a track to be rendered.
package lesson

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// SentencePair is one native sentence and its target-language rendition.
type SentencePair struct {
	Native string `json:"native" yaml:"native"`
	Target string `json:"target" yaml:"target"`
}

// TrackKind selects which audio product is rendered for a lesson.
type TrackKind int

const (
	// Bilingual is the listen-and-translate track.
	Bilingual TrackKind = iota
	// Repetition is the repeat-after-me drill track.
	Repetition
)

// ErrUnknownTrack is returned when a track kind cannot be determined.
var ErrUnknownTrack = errors.New("unknown track kind")

// String returns the string representation of the track kind.
func (k TrackKind) String() string {
	switch k {
	case Bilingual:
		return "bilingual"
	case Repetition:
		return "repetition"
	default:
		return "unknown"
	}
}

// ParseTrackKind parses "bilingual" or "repetition" (case-insensitive).
func ParseTrackKind(s string) (TrackKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bilingual", "translate":
		return Bilingual, nil
	case "repetition", "repeat":
		return Repetition, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTrack, s)
	}
}

// TrackKindFromFilename derives the track from a stored audio file name.
// "sentence-1" files are bilingual, "sentence-2" files are drills.
func TrackKindFromFilename(name string) (TrackKind, error) {
	switch {
	case strings.Contains(name, "sentence-1"):
		return Bilingual, nil
	case strings.Contains(name, "sentence-2"):
		return Repetition, nil
	default:
		return 0, fmt.Errorf("%w: audio file %q", ErrUnknownTrack, name)
	}
}

// Status is the lifecycle state of a Request.
type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRejected   Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusProcessing, StatusCompleted, StatusFailed, StatusRejected:
		return true
	}
	return false
}

// Request asks for one lesson track to be rendered and published.
//
// Sentences is the structured form. Legacy rows carry period-joined
// TargetText/NativeText instead; Pairs reconciles the two.
type Request struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	LessonID      int            `json:"lesson_id,omitempty"`
	AudioFilename string         `json:"audio_filename"`
	Status        Status         `json:"status"`
	Sentences     []SentencePair `json:"sentences,omitempty"`
	TargetText    string         `json:"personalized_text,omitempty"`
	NativeText    string         `json:"native_text,omitempty"`
	AudioURL      string         `json:"audio_url,omitempty"`
	CreatedAt     time.Time      `json:"created_at,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

// Pairs returns the request's sentence pairs, preferring the structured
// list and falling back to the legacy delimiter-joined columns.
func (r Request) Pairs() []SentencePair {
	if len(r.Sentences) > 0 {
		return r.Sentences
	}
	return PairsFromLegacy(r.TargetText, r.NativeText)
}

// Track returns the track kind implied by the request's audio file name.
func (r Request) Track() (TrackKind, error) {
	return TrackKindFromFilename(r.AudioFilename)
}

// StoragePath is where the rendered artifact for r is published.
func (r Request) StoragePath() string {
	return fmt.Sprintf("personalized/%s/%s", r.UserID, r.AudioFilename)
}

// FilenameFor returns the requested file name with its extension replaced
// by ext, so the stored name matches the bytes actually produced.
func (r Request) FilenameFor(ext string) string {
	return WithExt(r.AudioFilename, ext)
}

// StoragePathFor is StoragePath for an artifact with extension ext.
func (r Request) StoragePathFor(ext string) string {
	return fmt.Sprintf("personalized/%s/%s", r.UserID, r.FilenameFor(ext))
}

// WithExt replaces the extension of name with ext. Names that already carry
// ext, in any case, are returned unchanged.
func WithExt(name, ext string) string {
	if ext == "" {
		return name
	}
	old := path.Ext(name)
	if strings.EqualFold(old, ext) {
		return name
	}
	return strings.TrimSuffix(name, old) + ext
}
