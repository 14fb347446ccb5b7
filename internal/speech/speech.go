// Package speech defines the text-to-speech capability the compiler renders
// lesson scripts with. Engines live in the engines subpackage.
package speech

import (
	"context"

	"github.com/lessonvox/lessonvox/internal/voice"
)

// Renderer synthesizes text with a voice. Implementations return a complete
// RIFF/WAVE PCM file; callers decode and normalize it.
type Renderer interface {
	Render(ctx context.Context, text string, v voice.Key) ([]byte, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, text string, v voice.Key) ([]byte, error)

// Render implements Renderer.
func (f RendererFunc) Render(ctx context.Context, text string, v voice.Key) ([]byte, error) {
	return f(ctx, text, v)
}

// Engine is a Renderer with a lifecycle.
type Engine interface {
	Renderer

	// Info returns engine capabilities.
	Info() EngineInfo

	// Validate checks the engine is configured and reachable.
	Validate(ctx context.Context) error

	// Close releases resources held by the engine.
	Close() error
}

// EngineInfo describes an engine.
type EngineInfo struct {
	Name        string // Engine name (e.g., "azure", "gtts")
	SampleRate  int    // Native output sample rate in Hz
	MaxTextSize int    // Maximum text size in characters
	IsOnline    bool   // Whether the engine requires network access
}
