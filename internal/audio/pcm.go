package audio

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Common audio format constants. Every segment is normalized to this format
// before it is appended to a clip.
const (
	// SampleRate is the clip sample rate in Hz.
	SampleRate = 24000
	// Channels is the number of channels (1 = mono).
	Channels = 1
	// BitDepth is the bit depth per sample.
	BitDepth = 16
)

var (
	// ErrFormatMismatch is returned when appending segments of different formats.
	ErrFormatMismatch = errors.New("audio format mismatch")

	// ErrUnaligned is returned when PCM data is not a whole number of frames.
	ErrUnaligned = errors.New("pcm data not frame aligned")
)

// Format describes interleaved little-endian signed PCM.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat returns the common clip format.
func DefaultFormat() Format {
	return Format{
		SampleRate: SampleRate,
		Channels:   Channels,
		BitDepth:   BitDepth,
	}
}

// BytesPerFrame returns the size of one sample across all channels.
func (f Format) BytesPerFrame() int {
	return f.BitDepth / 8 * f.Channels
}

// DurationOf returns how long n bytes of audio in f play for.
func (f Format) DurationOf(n int) time.Duration {
	if f.SampleRate <= 0 || f.BytesPerFrame() <= 0 {
		return 0
	}
	frames := int64(n / f.BytesPerFrame())
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Validate checks the format is one this package can process.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("invalid channel count %d", f.Channels)
	}
	switch f.BitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth %d", f.BitDepth)
	}
	return nil
}

// String returns e.g. "24000Hz/1ch/16bit".
func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitDepth)
}

// Segment is one immutable unit of audio.
type Segment struct {
	Format Format
	Data   []byte
}

// Frames returns the number of sample frames in the segment.
func (s Segment) Frames() int {
	if s.Format.BytesPerFrame() == 0 {
		return 0
	}
	return len(s.Data) / s.Format.BytesPerFrame()
}

// Seconds returns the segment duration in seconds.
func (s Segment) Seconds() float64 {
	if s.Format.SampleRate == 0 {
		return 0
	}
	return float64(s.Frames()) / float64(s.Format.SampleRate)
}

// Duration returns the segment duration.
func (s Segment) Duration() time.Duration {
	return time.Duration(s.Seconds() * float64(time.Second))
}

// IsEmpty reports whether the segment holds no audio.
func (s Segment) IsEmpty() bool {
	return len(s.Data) == 0
}

// Silence generates a silent segment of the given length in format f.
// Negative durations yield an empty segment.
func Silence(seconds float64, f Format) Segment {
	frames := int(math.Round(seconds * float64(f.SampleRate)))
	if frames < 0 {
		frames = 0
	}
	return Segment{Format: f, Data: make([]byte, frames*f.BytesPerFrame())}
}

// Append returns acc followed by next. Both must share a format; an empty
// acc with a zero format adopts next's format.
func Append(acc, next Segment) (Segment, error) {
	if acc.Format == (Format{}) && acc.IsEmpty() {
		acc.Format = next.Format
	}
	if acc.Format != next.Format {
		return acc, fmt.Errorf("%w: %s vs %s", ErrFormatMismatch, acc.Format, next.Format)
	}
	data := make([]byte, 0, len(acc.Data)+len(next.Data))
	data = append(data, acc.Data...)
	data = append(data, next.Data...)
	return Segment{Format: acc.Format, Data: data}, nil
}

// Concat folds segments left to right into one segment. Order is preserved
// and nothing overlaps.
func Concat(segments []Segment) (Segment, error) {
	var size int
	for _, s := range segments {
		size += len(s.Data)
	}

	var out Segment
	out.Data = make([]byte, 0, size)
	for i, s := range segments {
		if i == 0 {
			out.Format = s.Format
		}
		if s.Format != out.Format {
			return Segment{}, fmt.Errorf("segment %d: %w: %s vs %s", i, ErrFormatMismatch, out.Format, s.Format)
		}
		out.Data = append(out.Data, s.Data...)
	}
	return out, nil
}

// validatePCM checks data is frame aligned for f.
func validatePCM(data []byte, f Format) error {
	if bpf := f.BytesPerFrame(); bpf == 0 || len(data)%bpf != 0 {
		return fmt.Errorf("%w: %d bytes for %s", ErrUnaligned, len(data), f)
	}
	return nil
}
