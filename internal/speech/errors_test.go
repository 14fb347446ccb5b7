package speech

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lessonvox/lessonvox/internal/voice"
)

func TestError(t *testing.T) {
	cause := errors.New("boom")
	err := NewError(ErrorCodeSynthesisFailed, "render failed", cause).WithContext("voice", "v1")

	if got, want := err.Error(), "SYNTHESIS_FAILED: render failed: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if err.Context["voice"] != "v1" {
		t.Errorf("context voice = %v", err.Context["voice"])
	}
	if err.IsRetryable() {
		t.Error("synthesis failure should not be retryable")
	}
	if !NewError(ErrorCodeRateLimited, "slow down", nil).IsRetryable() {
		t.Error("rate limit should be retryable")
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewError(ErrorCodeUnauthorized, "bad key", nil))
	if got := CodeOf(wrapped); got != ErrorCodeUnauthorized {
		t.Errorf("CodeOf() = %q, want %q", got, ErrorCodeUnauthorized)
	}
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
}

func TestRendererFunc(t *testing.T) {
	var r Renderer = RendererFunc(func(_ context.Context, text string, _ voice.Key) ([]byte, error) {
		return []byte(text), nil
	})
	b, err := r.Render(context.Background(), "hi", "v")
	if err != nil || string(b) != "hi" {
		t.Errorf("Render() = %q, %v", b, err)
	}
}
