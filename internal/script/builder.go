package script

import (
	"strings"

	"github.com/lessonvox/lessonvox/internal/lesson"
	"github.com/lessonvox/lessonvox/internal/pause"
	"github.com/lessonvox/lessonvox/internal/voice"
)

// RepetitionCount is how many times a drill track repeats each target
// sentence.
const RepetitionCount = 5

// Build returns the script for a track of the given kind.
func Build(track lesson.TrackKind, pairs []lesson.SentencePair) (string, error) {
	switch track {
	case lesson.Bilingual:
		return BuildBilingual(pairs), nil
	case lesson.Repetition:
		return BuildRepetition(pairs), nil
	default:
		return "", lesson.ErrUnknownTrack
	}
}

// BuildBilingual emits, per pair, the native sentence, a translation pause
// sized to the target sentence, the target sentence and a between-sentence
// pause.
func BuildBilingual(pairs []lesson.SentencePair) string {
	parts := make([]string, 0, len(pairs)*4)
	between := pause.Duration("", pause.BetweenSentence)

	for _, p := range pairs {
		translation := pause.Duration(p.Target, pause.Translation)
		parts = append(parts,
			speechPart(voice.TagNative, p.Native),
			silencePart(translation),
			speechPart(voice.TagTarget, p.Target),
			silencePart(between),
		)
	}
	return strings.Join(parts, " ")
}

// BuildRepetition emits each target sentence RepetitionCount times, each
// followed by the same repetition pause.
func BuildRepetition(pairs []lesson.SentencePair) string {
	parts := make([]string, 0, len(pairs)*RepetitionCount*2)

	for _, p := range pairs {
		repetition := pause.Duration(p.Target, pause.Repetition)
		for range RepetitionCount {
			parts = append(parts,
				speechPart(voice.TagTarget, p.Target),
				silencePart(repetition),
			)
		}
	}
	return strings.Join(parts, " ")
}

// speechPart renders "[tag] text". Brackets in text would open a new tag,
// so they are replaced with parentheses.
func speechPart(tag, text string) string {
	text = strings.NewReplacer("[", "(", "]", ")").Replace(strings.TrimSpace(text))
	return "[" + tag + "] " + text
}

func silencePart(seconds float64) string {
	return "[" + pause.Format(seconds) + "]"
}
