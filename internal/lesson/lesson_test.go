package lesson

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"Empty", "", []string{}},
		{"Single", "Hola", []string{"Hola"}},
		{"Trailing period", "Me llamo Karl. Soy de Berlin.", []string{"Me llamo Karl", "Soy de Berlin"}},
		{"Dedup keeps first", "Hola. Adios. Hola. Gracias", []string{"Hola", "Adios", "Gracias"}},
		{"Blank parts skipped", "Uno.. . Dos", []string{"Uno", "Dos"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitSentences(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestPairsFromLegacy(t *testing.T) {
	got := PairsFromLegacy("Me llamo Karl. Soy de Berlin. Tengo un perro", "My name is Karl. I am from Berlin")
	want := []SentencePair{
		{Native: "My name is Karl", Target: "Me llamo Karl"},
		{Native: "I am from Berlin", Target: "Soy de Berlin"},
		{Native: "Sentence 3", Target: "Tengo un perro"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PairsFromLegacy() = %+v, want %+v", got, want)
	}
}

func TestRequest_Pairs(t *testing.T) {
	structured := []SentencePair{{Native: "Hi", Target: "Hola"}}

	r := Request{Sentences: structured, TargetText: "ignored"}
	if got := r.Pairs(); !reflect.DeepEqual(got, structured) {
		t.Errorf("structured Pairs() = %+v, want %+v", got, structured)
	}

	r = Request{TargetText: "Hola", NativeText: "Hi"}
	if got := r.Pairs(); !reflect.DeepEqual(got, structured) {
		t.Errorf("legacy Pairs() = %+v, want %+v", got, structured)
	}
}

func TestTrackKindFromFilename(t *testing.T) {
	tests := []struct {
		name    string
		want    TrackKind
		wantErr bool
	}{
		{"lesson-7-sentence-1.mp3", Bilingual, false},
		{"lesson-7-sentence-2.mp3", Repetition, false},
		{"lesson-7-intro.mp3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TrackKindFromFilename(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("TrackKindFromFilename(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnknownTrack) {
				t.Errorf("error = %v, want ErrUnknownTrack", err)
			}
			if got != tt.want {
				t.Errorf("TrackKindFromFilename(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestParseTrackKind(t *testing.T) {
	if k, err := ParseTrackKind("Bilingual"); err != nil || k != Bilingual {
		t.Errorf("ParseTrackKind(Bilingual) = %v, %v", k, err)
	}
	if k, err := ParseTrackKind("repeat"); err != nil || k != Repetition {
		t.Errorf("ParseTrackKind(repeat) = %v, %v", k, err)
	}
	if _, err := ParseTrackKind("karaoke"); !errors.Is(err, ErrUnknownTrack) {
		t.Errorf("ParseTrackKind(karaoke) error = %v, want ErrUnknownTrack", err)
	}
}

func TestRequest_StoragePath(t *testing.T) {
	r := Request{UserID: "u-42", AudioFilename: "lesson-7-sentence-1.mp3"}
	if got, want := r.StoragePath(), "personalized/u-42/lesson-7-sentence-1.mp3"; got != want {
		t.Errorf("StoragePath() = %q, want %q", got, want)
	}
}

func TestRequest_StoragePathFor(t *testing.T) {
	r := Request{UserID: "u-42", AudioFilename: "lesson-7-sentence-1.mp3"}
	if got, want := r.StoragePathFor(".wav"), "personalized/u-42/lesson-7-sentence-1.wav"; got != want {
		t.Errorf("StoragePathFor(.wav) = %q, want %q", got, want)
	}
	if got, want := r.StoragePathFor(".mp3"), r.StoragePath(); got != want {
		t.Errorf("StoragePathFor(.mp3) = %q, want %q", got, want)
	}
}

func TestWithExt(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want string
	}{
		{"a.mp3", ".wav", "a.wav"},
		{"a.MP3", ".mp3", "a.MP3"},
		{"a.wav", ".wav", "a.wav"},
		{"lesson-1", ".wav", "lesson-1.wav"},
		{"v1.2/lesson", ".mp3", "v1.2/lesson.mp3"},
		{"a.mp3", "", "a.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.name+tt.ext, func(t *testing.T) {
			if got := WithExt(tt.name, tt.ext); got != tt.want {
				t.Errorf("WithExt(%q, %q) = %q, want %q", tt.name, tt.ext, got, tt.want)
			}
		})
	}
}

func TestReadPairs(t *testing.T) {
	want := []SentencePair{
		{Native: "My name is Karl", Target: "Me llamo Karl"},
		{Native: "Thank you", Target: "Gracias"},
	}

	tests := []struct {
		name string
		doc  string
	}{
		{"YAML document", "title: Intro\nsentences:\n  - native: My name is Karl\n    target: Me llamo Karl\n  - native: Thank you\n    target: Gracias\n"},
		{"YAML list", "- native: My name is Karl\n  target: Me llamo Karl\n- native: Thank you\n  target: Gracias\n"},
		{"JSON list", `[{"native":"My name is Karl","target":"Me llamo Karl"},{"native":"Thank you","target":"Gracias"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadPairs(strings.NewReader(tt.doc))
			if err != nil {
				t.Fatalf("ReadPairs() error = %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("ReadPairs() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestReadPairs_Empty(t *testing.T) {
	got, err := ReadPairs(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ReadPairs() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ReadPairs(\"\") = %+v, want empty", got)
	}
}
