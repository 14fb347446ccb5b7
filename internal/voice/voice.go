// Package voice maps script language tags to synthesis voices.
package voice

import (
	"errors"
	"sort"

	"github.com/lessonvox/lessonvox/internal/lesson"
)

// Language tags understood by the script grammar.
const (
	TagNative = "native"
	TagTarget = "target"
)

// Key identifies a synthesis voice, e.g. "en-US-JennyNeural".
type Key string

// ErrIncomplete is returned by Validate when a voice is missing.
var ErrIncomplete = errors.New("voice table is incomplete")

// Table binds the language tags to voices. A repetition track speaks the
// target tag with TargetRepeat, so voice identity depends on the track as
// well as the tag.
type Table struct {
	Native       Key `mapstructure:"native" yaml:"native" json:"native"`
	Target       Key `mapstructure:"target" yaml:"target" json:"target"`
	TargetRepeat Key `mapstructure:"target_repeat" yaml:"target_repeat" json:"target_repeat"`
}

// DefaultTable returns the English/Spanish Azure voices.
func DefaultTable() Table {
	return Table{
		Native:       "en-US-JennyNeural",
		Target:       "es-ES-AlvaroNeural",
		TargetRepeat: "es-ES-ElviraNeural",
	}
}

// Resolve returns the voice that speaks tag on a track of the given kind.
func (t Table) Resolve(tag string, track lesson.TrackKind) (Key, bool) {
	switch tag {
	case TagNative:
		return t.Native, t.Native != ""
	case TagTarget:
		if track == lesson.Repetition {
			return t.TargetRepeat, t.TargetRepeat != ""
		}
		return t.Target, t.Target != ""
	default:
		return "", false
	}
}

// Tags returns the language tags this table registers, sorted.
func (t Table) Tags() []string {
	var tags []string
	if t.Native != "" {
		tags = append(tags, TagNative)
	}
	if t.Target != "" || t.TargetRepeat != "" {
		tags = append(tags, TagTarget)
	}
	sort.Strings(tags)
	return tags
}

// Validate checks that every voice is set.
func (t Table) Validate() error {
	if t.Native == "" || t.Target == "" || t.TargetRepeat == "" {
		return ErrIncomplete
	}
	return nil
}
