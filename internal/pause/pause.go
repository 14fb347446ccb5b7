// Package pause computes the silent gaps placed between spoken phrases in a
// lesson script.
package pause

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind selects the pause heuristic.
type Kind int

const (
	// Repetition is the gap a listener gets to repeat a target phrase.
	Repetition Kind = iota
	// Translation is the gap a listener gets to translate a native phrase.
	Translation
	// BetweenSentence separates two sentence pairs.
	BetweenSentence
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case Repetition:
		return "repetition"
	case Translation:
		return "translation"
	case BetweenSentence:
		return "between_sentence"
	default:
		return "unknown"
	}
}

const (
	// MinRepetition is the floor for repetition pauses, in seconds.
	MinRepetition = 2.0
	// MinTranslation is the floor for translation pauses, in seconds.
	MinTranslation = 3.0
	// BetweenSentenceSeconds is the fixed gap between sentence pairs.
	BetweenSentenceSeconds = 1.0
	// MaxExplicit is the longest pause a directive may request, in seconds.
	MaxExplicit = 600.0
)

// ErrInvalidDirective is returned when a pause directive cannot be parsed.
var ErrInvalidDirective = errors.New("invalid pause directive")

// directivePattern matches "<digits>[.<digits>]s".
var directivePattern = regexp.MustCompile(`^\d+(\.\d+)?s$`)

// Duration returns the pause length in seconds for text.
//
// The linear terms are computed in hundredths of a second so that the result
// is the float nearest to the decimal value; Format then renders it without
// binary noise and Explicit reads back the identical float. Results never
// exceed MaxExplicit, so every computed pause is a valid directive.
func Duration(text string, kind Kind) float64 {
	n := utf8.RuneCountInString(strings.TrimSpace(text))

	switch kind {
	case Repetition:
		return min(MaxExplicit, max(MinRepetition, float64(15*n+100)/100))
	case Translation:
		return min(MaxExplicit, max(MinTranslation, float64(20*n+200)/100))
	default:
		return BetweenSentenceSeconds
	}
}

// IsDirective reports whether tag has the shape of a pause directive.
// A bare "s" is never a directive.
func IsDirective(tag string) bool {
	return len(tag) > 1 && directivePattern.MatchString(tag)
}

// Explicit parses an author-specified directive such as "2s" or "3.5s".
// No floor is applied; directives longer than MaxExplicit are rejected.
func Explicit(tag string) (float64, error) {
	if !IsDirective(tag) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDirective, tag)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSuffix(tag, "s"), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidDirective, tag, err)
	}
	if seconds > MaxExplicit {
		return 0, fmt.Errorf("%w: %q exceeds %s", ErrInvalidDirective, tag, Format(MaxExplicit))
	}
	return seconds, nil
}

// Format renders seconds as a directive tag body, e.g. 2.05 -> "2.05s".
// Whole numbers keep one decimal ("2.0s").
func Format(seconds float64) string {
	s := strconv.FormatFloat(seconds, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s + "s"
}
