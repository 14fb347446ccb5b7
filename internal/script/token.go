package script

import (
	"fmt"
	"strings"
)

// TokenKind distinguishes speech from silence.
type TokenKind int

const (
	// TokenSpeech is text spoken with the voice bound to Tag.
	TokenSpeech TokenKind = iota
	// TokenSilence is a gap of Seconds.
	TokenSilence
)

// String returns the string representation of the token kind.
func (k TokenKind) String() string {
	switch k {
	case TokenSpeech:
		return "speech"
	case TokenSilence:
		return "silence"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k TokenKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Token is one parsed script segment.
type Token struct {
	Kind    TokenKind `json:"kind"`
	Tag     string    `json:"tag,omitempty"`
	Text    string    `json:"text,omitempty"`
	Seconds float64   `json:"seconds,omitempty"`
}

// Speech returns a speech token.
func Speech(tag, text string) Token {
	return Token{Kind: TokenSpeech, Tag: tag, Text: text}
}

// Silence returns a silence token.
func Silence(seconds float64) Token {
	return Token{Kind: TokenSilence, Seconds: seconds}
}

// String renders the token back into script notation.
func (t Token) String() string {
	if t.Kind == TokenSilence {
		return fmt.Sprintf("[%gs]", t.Seconds)
	}
	return fmt.Sprintf("[%s] %s", t.Tag, t.Text)
}

// DiagnosticKind classifies a span the grammar dropped.
type DiagnosticKind int

const (
	// DiagUnknownTag is a bracketed tag that is neither a registered
	// language nor a pause directive.
	DiagUnknownTag DiagnosticKind = iota
	// DiagEmptySpeech is a language tag with no text after it.
	DiagEmptySpeech
	// DiagMalformedPause looks like a pause directive but does not parse.
	DiagMalformedPause
	// DiagStrayText is text that no tag owns.
	DiagStrayText
	// DiagEmptyScript means a non-blank script produced no tokens.
	DiagEmptyScript
)

// String returns the string representation of the diagnostic kind.
func (k DiagnosticKind) String() string {
	switch k {
	case DiagUnknownTag:
		return "unknown_tag"
	case DiagEmptySpeech:
		return "empty_speech"
	case DiagMalformedPause:
		return "malformed_pause"
	case DiagStrayText:
		return "stray_text"
	case DiagEmptyScript:
		return "empty_script"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k DiagnosticKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Diagnostic records a dropped span. Diagnostics never stop a parse.
type Diagnostic struct {
	Kind   DiagnosticKind `json:"kind"`
	Offset int            `json:"offset"`
	Tag    string         `json:"tag,omitempty"`
	Text   string         `json:"text,omitempty"`
}

// String renders the diagnostic for logs.
func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s at %d", d.Kind, d.Offset)
	if d.Tag != "" {
		fmt.Fprintf(&b, " [%s]", d.Tag)
	}
	if d.Text != "" {
		fmt.Fprintf(&b, " %q", d.Text)
	}
	return b.String()
}

// Result is the outcome of parsing a script.
type Result struct {
	Tokens      []Token      `json:"tokens"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// SpeechCount returns the number of speech tokens.
func (r Result) SpeechCount() int {
	n := 0
	for _, t := range r.Tokens {
		if t.Kind == TokenSpeech {
			n++
		}
	}
	return n
}

// TotalSilence returns the summed silence in seconds.
func (r Result) TotalSilence() float64 {
	var s float64
	for _, t := range r.Tokens {
		if t.Kind == TokenSilence {
			s += t.Seconds
		}
	}
	return s
}
