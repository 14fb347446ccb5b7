package compiler

import (
	"errors"
	"fmt"
)

// ErrEmptyResult is returned when compilation produced no audio at all,
// either because there were no tokens or because every token failed.
var ErrEmptyResult = errors.New("no audio produced")

// FailureKind classifies a dropped segment.
type FailureKind int

const (
	// FailureUnknownVoice means no voice is bound to the token's tag.
	FailureUnknownVoice FailureKind = iota

	// FailureRender means the speech engine returned an error.
	FailureRender

	// FailureDecode means the rendered bytes could not be decoded.
	FailureDecode

	// FailurePause means a silence token is longer than pause.MaxExplicit
	// or not a number.
	FailurePause
)

// String returns the string representation of the failure kind
func (k FailureKind) String() string {
	switch k {
	case FailureUnknownVoice:
		return "unknown voice"
	case FailureRender:
		return "render"
	case FailureDecode:
		return "decode"
	case FailurePause:
		return "pause"
	default:
		return "unknown"
	}
}

// Failure describes one dropped segment.
type Failure struct {
	Index int    // Token index
	Tag   string // Language tag
	Text  string
	Kind  FailureKind
	Err   error
}

// Error implements the error interface
func (f Failure) Error() string {
	return fmt.Sprintf("token %d [%s] %q: %s: %v", f.Index, f.Tag, f.Text, f.Kind, f.Err)
}

// Unwrap returns the underlying error
func (f Failure) Unwrap() error {
	return f.Err
}
