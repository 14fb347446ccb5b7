package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// Encoder turns a finished clip into an uploadable artifact.
type Encoder interface {
	Encode(ctx context.Context, s Segment) ([]byte, error)
	ContentType() string
	Ext() string
}

// WAVEncoder writes uncompressed PCM WAV.
type WAVEncoder struct{}

// Encode implements Encoder.
func (WAVEncoder) Encode(_ context.Context, s Segment) ([]byte, error) {
	if s.IsEmpty() {
		return nil, errors.New("cannot encode empty audio")
	}
	return EncodeWAV(s), nil
}

// ContentType implements Encoder.
func (WAVEncoder) ContentType() string { return "audio/wav" }

// Ext implements Encoder.
func (WAVEncoder) Ext() string { return ".wav" }

// FFmpegEncoder compresses clips to MP3 by piping WAV through ffmpeg.
type FFmpegEncoder struct {
	Binary  string
	Bitrate string
	Timeout time.Duration
}

// NewFFmpegEncoder returns an MP3 encoder at 128k.
func NewFFmpegEncoder() *FFmpegEncoder {
	return &FFmpegEncoder{
		Binary:  "ffmpeg",
		Bitrate: "128k",
		Timeout: 2 * time.Minute,
	}
}

// Available reports whether the ffmpeg binary can be found.
func (e *FFmpegEncoder) Available() bool {
	_, err := exec.LookPath(e.Binary)
	return err == nil
}

// Encode implements Encoder.
func (e *FFmpegEncoder) Encode(ctx context.Context, s Segment) ([]byte, error) {
	if s.IsEmpty() {
		return nil, errors.New("cannot encode empty audio")
	}

	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "wav", "-i", "pipe:0",
		"-ar", strconv.Itoa(s.Format.SampleRate),
		"-ac", strconv.Itoa(s.Format.Channels),
		"-codec:a", "libmp3lame",
		"-b:a", e.Bitrate,
		"-f", "mp3", "pipe:1",
	}

	cmd := exec.CommandContext(ctx, e.Binary, args...)
	cmd.Stdin = bytes.NewReader(EncodeWAV(s))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Interrupt first so ffmpeg can flush; kill if it lingers.
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 100 * time.Millisecond

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffmpeg encode timeout: %w", ctx.Err())
		}
		return nil, fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, stderr.String())
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output, stderr: %s", stderr.String())
	}
	return stdout.Bytes(), nil
}

// ContentType implements Encoder.
func (e *FFmpegEncoder) ContentType() string { return "audio/mpeg" }

// Ext implements Encoder.
func (e *FFmpegEncoder) Ext() string { return ".mp3" }

// NewEncoder returns the encoder for a format name ("mp3" or "wav").
// MP3 falls back to WAV when ffmpeg is missing.
func NewEncoder(name string) (Encoder, error) {
	switch name {
	case "", "mp3":
		enc := NewFFmpegEncoder()
		if !enc.Available() {
			return WAVEncoder{}, fmt.Errorf("ffmpeg not found in PATH, using wav: %w", exec.ErrNotFound)
		}
		return enc, nil
	case "wav":
		return WAVEncoder{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", name)
	}
}
