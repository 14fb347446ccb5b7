package engines

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/lessonvox/lessonvox/internal/audio"
	"github.com/lessonvox/lessonvox/internal/config"
	"github.com/lessonvox/lessonvox/internal/speech"
	"github.com/lessonvox/lessonvox/internal/voice"
)

// MockEngine renders silence of an estimated speaking duration. It needs
// no network or binaries, and records every call for tests.
type MockEngine struct {
	mu sync.Mutex

	wordsPerMinute int
	delay          time.Duration

	// Control for testing
	failAll error
	failOn  map[string]error

	calls     map[mockCall]int
	callCount int
}

type mockCall struct {
	voice voice.Key
	text  string
}

var _ speech.Engine = (*MockEngine)(nil)

// NewMockEngine creates a mock engine.
func NewMockEngine(cfg config.MockConfig) *MockEngine {
	if cfg.WordsPerMinute <= 0 {
		cfg.WordsPerMinute = 150
	}
	return &MockEngine{
		wordsPerMinute: cfg.WordsPerMinute,
		failOn:         make(map[string]error),
		calls:          make(map[mockCall]int),
	}
}

// Render implements speech.Renderer.
func (e *MockEngine) Render(ctx context.Context, text string, v voice.Key) ([]byte, error) {
	e.mu.Lock()
	e.calls[mockCall{v, text}]++
	e.callCount++
	delay, err := e.delay, e.failAll
	if failure, ok := e.failOn[text]; ok {
		err = failure
	}
	e.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, contextError(ctx.Err(), "mock render")
		}
	}
	if err != nil {
		return nil, err
	}
	if err := checkText(text, 0); err != nil {
		return nil, err
	}

	return audio.EncodeWAV(audio.Silence(e.estimateDuration(text).Seconds(), audio.DefaultFormat())), nil
}

// estimateDuration estimates speaking duration for text.
func (e *MockEngine) estimateDuration(text string) time.Duration {
	words := len(strings.Fields(text))
	if words < 1 {
		words = 1
	}
	seconds := float64(words) * 60.0 / float64(e.wordsPerMinute)
	return time.Duration(seconds * float64(time.Second))
}

// Info implements speech.Engine.
func (e *MockEngine) Info() speech.EngineInfo {
	return speech.EngineInfo{
		Name:       "mock",
		SampleRate: audio.SampleRate,
	}
}

// Validate implements speech.Engine.
func (e *MockEngine) Validate(context.Context) error { return nil }

// Close implements speech.Engine.
func (e *MockEngine) Close() error { return nil }

// Test control methods

// SetDelay sets the simulated processing delay.
func (e *MockEngine) SetDelay(delay time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delay = delay
}

// SetFailure makes every render fail with err.
func (e *MockEngine) SetFailure(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failAll = err
}

// FailOn makes renders of text fail with err.
func (e *MockEngine) FailOn(text string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failOn[text] = err
}

// ClearFailure resets the engine to normal operation.
func (e *MockEngine) ClearFailure() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failAll = nil
	clear(e.failOn)
}

// Calls returns how many times (v, text) was rendered.
func (e *MockEngine) Calls(v voice.Key, text string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[mockCall{v, text}]
}

// CallCount returns the total number of Render calls.
func (e *MockEngine) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.callCount
}
