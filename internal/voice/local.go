package voice

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"revoice/internal/services"
)

// Runner executes an external command, returning combined output on failure.
type Runner func(ctx context.Context, name string, args ...string) error

// LocalEngine synthesizes speech with a local TTS binary (espeak-ng by
// default). It ignores the reference sample's timbre and always reports
// standard quality.
type LocalEngine struct {
	binary string
	run    Runner
}

// NewLocalEngine builds a local engine around the named binary.
func NewLocalEngine(binary string) *LocalEngine {
	if binary == "" {
		binary = "espeak-ng"
	}
	return &LocalEngine{binary: binary}
}

// WithRunner swaps the command runner (for testing).
func (e *LocalEngine) WithRunner(run Runner) *LocalEngine {
	e.run = run
	return e
}

// Available reports whether the TTS binary can be found.
func (e *LocalEngine) Available() bool {
	if e == nil {
		return false
	}
	if e.run != nil {
		return true
	}
	_, err := exec.LookPath(e.binary)
	return err == nil
}

// Synthesize renders text to a WAV file at destPath.
func (e *LocalEngine) Synthesize(ctx context.Context, text, destPath string) error {
	if strings.TrimSpace(text) == "" {
		return services.Wrap(services.ErrInputInvalid, stageName, "local synthesize", "text required", nil)
	}
	if destPath == "" {
		return services.Wrap(services.ErrInputInvalid, stageName, "local synthesize", "destination required", nil)
	}
	args := []string{"-w", destPath, text}
	if e.run != nil {
		if err := e.run(ctx, e.binary, args...); err != nil {
			return services.Wrap(services.ErrToolMissing, stageName, "local synthesize", e.binary, err)
		}
		return nil
	}
	cmd := exec.CommandContext(ctx, e.binary, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return services.Wrap(services.ErrToolMissing, stageName, "local synthesize", e.binary+" not found", err)
		}
		if ctx.Err() != nil {
			return services.Wrap(services.ErrTimeout, stageName, "local synthesize", e.binary, ctx.Err())
		}
		detail := fmt.Sprintf("%s: %s", e.binary, strings.TrimSpace(string(output)))
		return services.Wrap(services.ErrProviderUnavailable, stageName, "local synthesize", detail, err)
	}
	return nil
}
