package engines

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/lessonvox/lessonvox/internal/speech"
)

// maxOutputSize bounds subprocess output.
const maxOutputSize = 50 * 1024 * 1024

// run executes binary with a timeout and returns its stdout. On timeout the
// process is interrupted first and killed if it does not exit.
func run(ctx context.Context, timeout time.Duration, stdin io.Reader, binary string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 100 * time.Millisecond

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, contextError(ctx.Err(), binary)
		}
		return nil, speech.NewError(speech.ErrorCodeSynthesisFailed,
			fmt.Sprintf("%s failed, stderr: %s", binary, stderr.String()), err)
	}

	if stdout.Len() == 0 {
		return nil, speech.NewError(speech.ErrorCodeSynthesisFailed,
			fmt.Sprintf("%s produced no output, stderr: %s", binary, stderr.String()), nil)
	}
	if stdout.Len() > maxOutputSize {
		return nil, speech.NewError(speech.ErrorCodeSynthesisFailed,
			fmt.Sprintf("%s output too large: %d bytes (max %d)", binary, stdout.Len(), maxOutputSize), nil)
	}
	return stdout.Bytes(), nil
}

// contextError maps a context error to a speech error.
func contextError(err error, what string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return speech.NewError(speech.ErrorCodeTimeout, what+" timed out", err)
	}
	return speech.NewError(speech.ErrorCodeCanceled, what+" canceled", err)
}

// checkText validates text against an engine limit.
func checkText(text string, max int) error {
	if text == "" {
		return speech.NewError(speech.ErrorCodeInvalidInput, "empty text", speech.ErrEmptyText)
	}
	if max > 0 && len([]rune(text)) > max {
		return speech.NewError(speech.ErrorCodeInvalidInput,
			fmt.Sprintf("%d characters (max %d)", len([]rune(text)), max), speech.ErrTextTooLong)
	}
	return nil
}

// lookPath reports whether binary is executable, with an install hint.
func lookPath(binary, hint string) error {
	if _, err := exec.LookPath(binary); err != nil {
		return fmt.Errorf("%s not found in PATH: %w\n\n%s", binary, err, hint)
	}
	return nil
}
