// Package script implements the lesson script notation: builders that turn
// sentence pairs into scripts and a lenient parser that turns scripts into
// speech and silence tokens.
//
// A script is a sequence of bracketed tags, each followed by free text that
// runs until the next "[":
//
//	[native] My name is Karl [4.6s] [target] Me llamo Karl [1.0s]
package script

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/lessonvox/lessonvox/internal/pause"
)

// tagPattern matches a bracketed tag with no nested brackets.
var tagPattern = regexp.MustCompile(`\[([^\[\]]*)\]`)

// Parser tokenizes scripts against a set of registered language tags.
type Parser struct {
	languages map[string]bool
}

// NewParser creates a parser that recognizes the given language tags.
func NewParser(languages ...string) *Parser {
	p := &Parser{languages: make(map[string]bool, len(languages))}
	for _, l := range languages {
		p.languages[l] = true
	}
	return p
}

// IsLanguage reports whether tag is a registered language tag.
func (p *Parser) IsLanguage(tag string) bool {
	return p.languages[tag]
}

// Parse tokenizes script. It never fails: spans it cannot use are dropped
// and reported as diagnostics.
func (p *Parser) Parse(script string) Result {
	res := Result{Tokens: []Token{}}

	matches := tagPattern.FindAllStringSubmatchIndex(script, -1)

	// Text before the first tag has no voice.
	lead := len(script)
	if len(matches) > 0 {
		lead = matches[0][0]
	}
	p.stray(&res, script[:lead], 0)

	for i, m := range matches {
		tag := script[m[2]:m[3]]
		bodyStart := m[1]
		bodyEnd := len(script)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}

		// Free text stops at the next "[", even an unmatched one.
		body := script[bodyStart:bodyEnd]
		if j := strings.IndexByte(body, '['); j >= 0 {
			p.stray(&res, body[j:], bodyStart+j)
			body = body[:j]
		}
		text := strings.TrimSpace(body)

		// Language tags take precedence over pause directives.
		switch {
		case p.IsLanguage(tag):
			if text == "" {
				res.Diagnostics = append(res.Diagnostics, Diagnostic{Kind: DiagEmptySpeech, Offset: m[0], Tag: tag})
				continue
			}
			res.Tokens = append(res.Tokens, Speech(tag, text))

		case pause.IsDirective(tag):
			seconds, err := pause.Explicit(tag)
			if err != nil {
				res.Diagnostics = append(res.Diagnostics, Diagnostic{Kind: DiagMalformedPause, Offset: m[0], Tag: tag})
				continue
			}
			res.Tokens = append(res.Tokens, Silence(seconds))
			p.stray(&res, body, bodyStart)

		case looksLikePause(tag):
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Kind: DiagMalformedPause, Offset: m[0], Tag: tag})

		default:
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Kind: DiagUnknownTag, Offset: m[0], Tag: tag, Text: text})
		}
	}

	if len(res.Tokens) == 0 && strings.TrimSpace(script) != "" {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{Kind: DiagEmptyScript})
	}

	return res
}

// stray records non-blank text that no tag owns.
func (p *Parser) stray(res *Result, text string, offset int) {
	if t := strings.TrimSpace(text); t != "" {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{Kind: DiagStrayText, Offset: offset, Text: t})
	}
}

// looksLikePause reports tags such as "2.s" or "1.5.2s" that were meant as
// pauses but do not match the directive pattern.
func looksLikePause(tag string) bool {
	if len(tag) < 2 || !strings.HasSuffix(tag, "s") {
		return false
	}
	return unicode.IsDigit(rune(tag[0]))
}
