package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Player plays finished clips on the local audio device using oto.
// Only one oto context may exist per process, so a Player is created once
// and reused.
type Player struct {
	context *oto.Context
	format  Format
}

// deviceBuffer is the device-side buffer requested from oto. Audio this long
// may still be queued after a player reports it has stopped.
const deviceBuffer = 100 * time.Millisecond

// NewPlayer opens the audio device for format f. Only 16-bit PCM is
// supported.
func NewPlayer(f Format) (*Player, error) {
	if f.BitDepth != 16 {
		return nil, fmt.Errorf("bit depth must be 16, got %d", f.BitDepth)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return nil, fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", f.Channels)
	}

	op := &oto.NewContextOptions{
		SampleRate:   f.SampleRate,
		ChannelCount: f.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   deviceBuffer,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	return &Player{context: ctx, format: f}, nil
}

// Play plays s and blocks until playback finishes or ctx is done.
func (p *Player) Play(ctx context.Context, s Segment) error {
	if s.IsEmpty() {
		return errors.New("audio data is empty")
	}
	if s.Format != p.format {
		return fmt.Errorf("%w: player %s, clip %s", ErrFormatMismatch, p.format, s.Format)
	}

	player := p.context.NewPlayer(bytes.NewReader(s.Data))
	defer player.Close() //nolint:errcheck
	player.Play()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	if err := player.Err(); err != nil {
		return err
	}

	// Let the queued tail reach the speakers before the player is closed.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.tail(player.BufferedSize())):
	}
	return nil
}

// tail is how long buffered bytes plus the device buffer take to play out.
func (p *Player) tail(buffered int) time.Duration {
	return p.format.DurationOf(buffered) + deviceBuffer
}
