package engines

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lessonvox/lessonvox/internal/audio"
	"github.com/lessonvox/lessonvox/internal/config"
	"github.com/lessonvox/lessonvox/internal/speech"
	"github.com/lessonvox/lessonvox/internal/voice"
)

const piperMaxTextSize = 5000

// PiperEngine renders speech with Piper (offline neural TTS). A fresh
// process is started per render with the text pre-loaded on stdin.
// Voice keys name a model file, resolved against the data directory
// (".onnx" is appended when missing).
type PiperEngine struct {
	binary     string
	dataDir    string
	sampleRate int
	timeout    time.Duration
}

var _ speech.Engine = (*PiperEngine)(nil)

// NewPiperEngine creates a new Piper engine.
func NewPiperEngine(cfg config.PiperConfig) (*PiperEngine, error) {
	if cfg.Binary == "" {
		cfg.Binary = "piper"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 22050
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &PiperEngine{
		binary:     cfg.Binary,
		dataDir:    cfg.DataDir,
		sampleRate: cfg.SampleRate,
		timeout:    cfg.Timeout,
	}, nil
}

// Render implements speech.Renderer.
func (e *PiperEngine) Render(ctx context.Context, text string, v voice.Key) ([]byte, error) {
	if err := checkText(text, piperMaxTextSize); err != nil {
		return nil, err
	}

	model, cfg := e.modelPaths(v)
	if _, err := os.Stat(model); err != nil {
		return nil, speech.NewError(speech.ErrorCodeInvalidInput, "model file not found", err).
			WithContext("voice", string(v))
	}

	args := []string{
		"--model", model,
		"--config", cfg,
		"--output-raw",
	}

	pcm, err := run(ctx, e.timeout, strings.NewReader(text), e.binary, args...)
	if err != nil {
		return nil, err
	}

	// Raw output is 16-bit mono at the model's rate; drop a dangling byte.
	pcm = pcm[:len(pcm)-len(pcm)%2]
	return audio.EncodeWAV(audio.Segment{
		Format: audio.Format{SampleRate: e.sampleRate, Channels: 1, BitDepth: 16},
		Data:   pcm,
	}), nil
}

// modelPaths returns the model and config file paths for a voice key.
func (e *PiperEngine) modelPaths(v voice.Key) (model, cfg string) {
	model = string(v)
	if filepath.Ext(model) != ".onnx" {
		model += ".onnx"
	}
	if e.dataDir != "" && !filepath.IsAbs(model) {
		model = filepath.Join(e.dataDir, model)
	}
	cfg = model + ".json"
	return model, cfg
}

// Info implements speech.Engine.
func (e *PiperEngine) Info() speech.EngineInfo {
	return speech.EngineInfo{
		Name:        "piper",
		SampleRate:  e.sampleRate,
		MaxTextSize: piperMaxTextSize,
		IsOnline:    false,
	}
}

// Validate implements speech.Engine.
func (e *PiperEngine) Validate(context.Context) error {
	if err := lookPath(e.binary, "Install Piper from https://github.com/rhasspy/piper"); err != nil {
		return err
	}
	if e.dataDir != "" {
		if _, err := os.Stat(e.dataDir); err != nil {
			return fmt.Errorf("piper data directory: %w", err)
		}
	}
	return nil
}

// Close implements speech.Engine.
func (e *PiperEngine) Close() error { return nil }
