package engines

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/lessonvox/lessonvox/internal/speech"
	"github.com/lessonvox/lessonvox/internal/voice"
)

// FallbackEngine wraps a primary engine and switches to a secondary one
// after maxFailures consecutive primary failures.
type FallbackEngine struct {
	primary       speech.Engine
	fallback      speech.Engine
	failures      int
	maxFailures   int
	usingFallback bool
	mu            sync.Mutex
}

var _ speech.Engine = (*FallbackEngine)(nil)

// NewFallbackEngine creates a new engine with automatic fallback.
func NewFallbackEngine(primary, fallback speech.Engine, maxFailures int) *FallbackEngine {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &FallbackEngine{
		primary:     primary,
		fallback:    fallback,
		maxFailures: maxFailures,
	}
}

// Render implements speech.Renderer.
func (f *FallbackEngine) Render(ctx context.Context, text string, v voice.Key) ([]byte, error) {
	f.mu.Lock()
	using := f.usingFallback
	f.mu.Unlock()

	if using {
		return f.fallback.Render(ctx, text, v)
	}

	data, err := f.primary.Render(ctx, text, v)
	if err == nil {
		f.mu.Lock()
		if f.failures > 0 {
			log.Info("Primary engine recovered", "failures", f.failures)
			f.failures = 0
		}
		f.mu.Unlock()
		return data, nil
	}

	// Caller errors and cancellation say nothing about engine health.
	switch speech.CodeOf(err) {
	case speech.ErrorCodeInvalidInput, speech.ErrorCodeCanceled:
		return nil, err
	}

	f.mu.Lock()
	f.failures++
	failures := f.failures
	switched := !f.usingFallback && failures >= f.maxFailures
	if switched {
		f.usingFallback = true
	}
	f.mu.Unlock()

	log.Warn("Primary engine failed", "attempt", failures, "max", f.maxFailures, "err", err)
	if !switched {
		return nil, err
	}

	log.Warn("Switching to fallback engine", "engine", f.fallback.Info().Name)
	data, ferr := f.fallback.Render(ctx, text, v)
	if ferr != nil {
		return nil, fmt.Errorf("both engines failed: %w", errors.Join(err, ferr))
	}
	return data, nil
}

// Info returns the active engine's info.
func (f *FallbackEngine) Info() speech.EngineInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usingFallback {
		return f.fallback.Info()
	}
	return f.primary.Info()
}

// Validate switches to the fallback immediately when the primary is
// unusable. It fails only if neither engine validates.
func (f *FallbackEngine) Validate(ctx context.Context) error {
	perr := f.primary.Validate(ctx)
	if perr == nil {
		return nil
	}
	if ferr := f.fallback.Validate(ctx); ferr != nil {
		return fmt.Errorf("both engines failed validation: %w", errors.Join(perr, ferr))
	}

	log.Warn("Primary engine not available, switching to fallback", "err", perr)
	f.mu.Lock()
	f.usingFallback = true
	f.mu.Unlock()
	return nil
}

// Close closes both engines.
func (f *FallbackEngine) Close() error {
	var errs []error
	if err := f.primary.Close(); err != nil {
		errs = append(errs, fmt.Errorf("primary close: %w", err))
	}
	if err := f.fallback.Close(); err != nil {
		errs = append(errs, fmt.Errorf("fallback close: %w", err))
	}
	return errors.Join(errs...)
}

// Reset returns to the primary engine.
func (f *FallbackEngine) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = 0
	f.usingFallback = false
}

// Status describes the current engine selection.
func (f *FallbackEngine) Status() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usingFallback {
		return fmt.Sprintf("Using fallback engine (primary failed %d times)", f.failures)
	}
	return fmt.Sprintf("Using primary engine (failures: %d/%d)", f.failures, f.maxFailures)
}
