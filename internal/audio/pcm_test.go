package audio

import (
	"errors"
	"testing"
	"time"
)

func TestFormat_DurationOf(t *testing.T) {
	f := DefaultFormat() // 24 kHz, 2 bytes per frame

	tests := []struct {
		bytes int
		want  time.Duration
	}{
		{0, 0},
		{1, 0},
		{48000, time.Second},
		{4800, 100 * time.Millisecond},
		{48001, time.Second},
	}

	for _, tt := range tests {
		if got := f.DurationOf(tt.bytes); got != tt.want {
			t.Errorf("DurationOf(%d) = %v, want %v", tt.bytes, got, tt.want)
		}
	}
	if got := (Format{}).DurationOf(100); got != 0 {
		t.Errorf("zero format DurationOf = %v, want 0", got)
	}
}

func TestPlayer_Tail(t *testing.T) {
	p := &Player{format: DefaultFormat()}
	if got := p.tail(0); got != deviceBuffer {
		t.Errorf("tail(0) = %v, want %v", got, deviceBuffer)
	}
	if got := p.tail(48000); got != time.Second+deviceBuffer {
		t.Errorf("tail(48000) = %v, want %v", got, time.Second+deviceBuffer)
	}
}

func TestSilence(t *testing.T) {
	f := DefaultFormat()

	tests := []struct {
		seconds float64
		frames  int
	}{
		{0, 0},
		{1, SampleRate},
		{2.5, SampleRate * 5 / 2},
		{-1, 0},
	}

	for _, tt := range tests {
		s := Silence(tt.seconds, f)
		if s.Frames() != tt.frames {
			t.Errorf("Silence(%v) frames = %d, want %d", tt.seconds, s.Frames(), tt.frames)
		}
		for _, b := range s.Data {
			if b != 0 {
				t.Fatalf("Silence(%v) contains non-zero byte", tt.seconds)
			}
		}
	}

	if got := Silence(2, f).Seconds(); got != 2 {
		t.Errorf("Silence(2).Seconds() = %v, want 2", got)
	}
}

func TestConcat_PreservesOrder(t *testing.T) {
	f := DefaultFormat()
	a := Segment{Format: f, Data: []byte{1, 0, 2, 0}}
	b := Segment{Format: f, Data: []byte{3, 0}}
	c := Segment{Format: f, Data: []byte{4, 0, 5, 0}}

	out, err := Concat([]Segment{a, b, c})
	if err != nil {
		t.Fatalf("Concat failed: %v", err)
	}

	want := []byte{1, 0, 2, 0, 3, 0, 4, 0, 5, 0}
	if string(out.Data) != string(want) {
		t.Errorf("Concat data = %v, want %v", out.Data, want)
	}
	if out.Frames() != 5 {
		t.Errorf("Concat frames = %d, want 5", out.Frames())
	}
}

func TestConcat_DurationIsSum(t *testing.T) {
	f := DefaultFormat()
	segs := []Segment{Silence(0.5, f), Silence(2, f), Silence(1.25, f)}

	out, err := Concat(segs)
	if err != nil {
		t.Fatalf("Concat failed: %v", err)
	}
	if got := out.Seconds(); got != 3.75 {
		t.Errorf("duration = %v, want 3.75", got)
	}
}

func TestConcat_FormatMismatch(t *testing.T) {
	a := Silence(1, DefaultFormat())
	b := Silence(1, Format{SampleRate: 44100, Channels: 1, BitDepth: 16})

	if _, err := Concat([]Segment{a, b}); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("Concat error = %v, want ErrFormatMismatch", err)
	}
}

func TestConcat_Empty(t *testing.T) {
	out, err := Concat(nil)
	if err != nil {
		t.Fatalf("Concat(nil) failed: %v", err)
	}
	if !out.IsEmpty() {
		t.Error("Concat(nil) should be empty")
	}
}

func TestAppend(t *testing.T) {
	f := DefaultFormat()
	acc, err := Append(Segment{}, Silence(1, f))
	if err != nil {
		t.Fatalf("Append to zero segment failed: %v", err)
	}
	acc, err = Append(acc, Silence(1, f))
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if acc.Seconds() != 2 {
		t.Errorf("Append duration = %v, want 2", acc.Seconds())
	}

	other := Format{SampleRate: 8000, Channels: 1, BitDepth: 16}
	if _, err := Append(acc, Silence(1, other)); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("Append error = %v, want ErrFormatMismatch", err)
	}
}
