package engines

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lessonvox/lessonvox/internal/config"
	"github.com/lessonvox/lessonvox/internal/speech"
	"github.com/lessonvox/lessonvox/internal/voice"
	"golang.org/x/time/rate"
)

const gttsMaxTextSize = 5000

// GTTSEngine renders speech with gTTS (Google Translate TTS).
// Process: text -> gtts-cli -> MP3 -> ffmpeg -> WAV.
// Voice keys are language codes ("es", "en") or locale-prefixed voice
// names, of which only the language part is used.
type GTTSEngine struct {
	binary     string
	ffmpeg     string
	slow       bool
	timeout    time.Duration
	sampleRate int

	// Rate limiting to avoid being blocked by Google
	rateLimiter *rate.Limiter
}

var _ speech.Engine = (*GTTSEngine)(nil)

// NewGTTSEngine creates a new gTTS engine.
func NewGTTSEngine(cfg config.GTTSConfig) (*GTTSEngine, error) {
	if cfg.Binary == "" {
		cfg.Binary = "gtts-cli"
	}
	if cfg.FFmpeg == "" {
		cfg.FFmpeg = "ffmpeg"
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = 50 // Conservative default
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &GTTSEngine{
		binary:      cfg.Binary,
		ffmpeg:      cfg.FFmpeg,
		slow:        cfg.Slow,
		timeout:     cfg.Timeout,
		sampleRate:  24000,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
	}, nil
}

// Render implements speech.Renderer.
func (e *GTTSEngine) Render(ctx context.Context, text string, v voice.Key) ([]byte, error) {
	if err := checkText(text, gttsMaxTextSize); err != nil {
		return nil, err
	}

	if err := e.rateLimiter.Wait(ctx); err != nil {
		return nil, speech.NewError(speech.ErrorCodeCanceled, "rate limit wait canceled", err)
	}

	// Text goes through stdin so a leading "-" is not read as a flag.
	mp3, err := run(ctx, e.timeout, strings.NewReader(text), e.binary, e.args(v)...)
	if err != nil {
		return nil, fmt.Errorf("MP3 generation failed: %w", err)
	}

	wav, err := run(ctx, e.timeout/2, bytes.NewReader(mp3), e.ffmpeg, e.convertArgs()...)
	if err != nil {
		return nil, fmt.Errorf("MP3 to WAV conversion failed: %w", err)
	}
	return wav, nil
}

func (e *GTTSEngine) args(v voice.Key) []string {
	args := []string{"-", "-l", gttsLanguage(v)}
	if e.slow {
		args = append(args, "--slow")
	}
	return append(args, "-o", "-")
}

func (e *GTTSEngine) convertArgs() []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "mp3", "-i", "pipe:0",
		"-ar", strconv.Itoa(e.sampleRate),
		"-ac", "1",
		"-acodec", "pcm_s16le",
		"-f", "wav", "pipe:1",
	}
}

// gttsLanguage maps a voice key to a gTTS language code.
func gttsLanguage(v voice.Key) string {
	lang, _, _ := strings.Cut(string(v), "-")
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return "en"
	}
	return lang
}

// Info implements speech.Engine.
func (e *GTTSEngine) Info() speech.EngineInfo {
	return speech.EngineInfo{
		Name:        "gtts",
		SampleRate:  e.sampleRate,
		MaxTextSize: gttsMaxTextSize,
		IsOnline:    true, // Requires internet connection
	}
}

// Validate implements speech.Engine.
func (e *GTTSEngine) Validate(context.Context) error {
	if err := lookPath(e.binary, "Install with: pip install gtts"); err != nil {
		return err
	}
	return lookPath(e.ffmpeg, "Install ffmpeg for audio conversion")
}

// Close implements speech.Engine.
func (e *GTTSEngine) Close() error { return nil }
