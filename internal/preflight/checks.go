package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"revoice/internal/config"
	"revoice/internal/deps"
)

const providerCheckTimeout = 5 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckTranscriptionProvider verifies the speech-to-text endpoint is reachable
// and the credential is accepted. A single attempt, no retries.
func CheckTranscriptionProvider(ctx context.Context, cfg config.Transcription) Result {
	const name = "Transcription provider"
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return Result{Name: name, Detail: "missing base url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, providerCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, cfg.BaseURL+"/models", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	return evaluateProviderResponse(name, req)
}

// CheckVoiceProvider verifies the voice-cloning endpoint is reachable and the
// credential is accepted.
func CheckVoiceProvider(ctx context.Context, cfg config.Voice) Result {
	const name = "Voice provider"
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return Result{Name: name, Detail: "missing base url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, providerCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, cfg.BaseURL+"/voices", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}
	req.Header.Set("xi-api-key", cfg.APIKey)
	return evaluateProviderResponse(name, req)
}

func evaluateProviderResponse(name string, req *http.Request) Result {
	client := &http.Client{Timeout: providerCheckTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeTransportError(err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "API reachable"}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%d)", resp.StatusCode)}
	}
}

// CheckSystemDeps evaluates the external tools the pipeline shells out to.
// Both the process preflight and the CLI status command use this to avoid
// duplicating the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for extraction, slicing, stitching, and muxing",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for media inspection",
		},
		{
			Name:        "Local TTS engine",
			Command:     localEngineBinary(cfg),
			Description: "Required fallback when no voice provider is configured",
		},
	}
	if strings.TrimSpace(cfg.Diarization.ModelScript) != "" {
		requirements = append(requirements, deps.Requirement{
			Name:        "Diarization model runtime",
			Command:     cfg.Diarization.ModelCommand,
			Description: "Runs the neural diarization model script",
			Optional:    true,
		})
	}

	statuses := deps.CheckBinaries(requirements)
	if strings.TrimSpace(cfg.Diarization.ModelScript) != "" {
		statuses = append(statuses, deps.CheckScript(
			"Diarization model script",
			cfg.Diarization.ModelScript,
			"Neural speaker diarization, first tier of the fallback chain",
		))
	}
	return statuses
}

func localEngineBinary(cfg *config.Config) string {
	if engine := strings.TrimSpace(cfg.Voice.LocalEngine); engine != "" {
		return engine
	}
	return "espeak-ng"
}

// summarizeTransportError produces a human-readable summary for provider
// check failures.
func summarizeTransportError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (API unreachable)"
	}
	return err.Error()
}
