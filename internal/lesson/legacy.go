package lesson

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SplitSentences splits period-joined text into trimmed, non-empty
// sentences. Duplicates are removed keeping the first occurrence.
func SplitSentences(text string) []string {
	parts := strings.Split(text, ".")
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		s := norm.NFC.String(strings.TrimSpace(p))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// PairsFromLegacy realigns legacy target and native columns by index.
// A target sentence without a native counterpart gets a numbered
// placeholder so the pair is still speakable.
func PairsFromLegacy(targetText, nativeText string) []SentencePair {
	targets := SplitSentences(targetText)
	natives := SplitSentences(nativeText)

	pairs := make([]SentencePair, 0, len(targets))
	for i, target := range targets {
		native := fmt.Sprintf("Sentence %d", i+1)
		if i < len(natives) {
			native = natives[i]
		}
		pairs = append(pairs, SentencePair{Native: native, Target: target})
	}
	return pairs
}
