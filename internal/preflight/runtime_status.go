package preflight

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"revoice/internal/config"
)

// CheckTranscriptionFromConfig evaluates transcription provider status from
// config and connectivity, for status displays.
func CheckTranscriptionFromConfig(cfg *config.Config) Result {
	const name = "Transcription provider"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Transcription.APIKey) == "" {
		// Degraded mode is still a working mode.
		return Result{Name: name, Passed: true, Detail: "No credential (canned transcript fallback)"}
	}
	return CheckTranscriptionProvider(context.Background(), cfg.Transcription)
}

// CheckVoiceFromConfig evaluates voice provider status from config and
// connectivity, for status displays.
func CheckVoiceFromConfig(cfg *config.Config) Result {
	const name = "Voice provider"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Voice.APIKey) == "" {
		return Result{Name: name, Passed: true, Detail: "No credential (local engine fallback)"}
	}
	return CheckVoiceProvider(context.Background(), cfg.Voice)
}

// EngineProbe reports the local TTS engine snapshot.
type EngineProbe struct {
	Available bool
	Binary    string
	Version   string
}

// ProbeLocalEngine attempts to detect the local synthesis engine and its
// version.
func ProbeLocalEngine(binary string) EngineProbe {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "espeak-ng"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return EngineProbe{Binary: binary}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary, "--version")
	output, err := cmd.Output()
	if err != nil {
		return EngineProbe{Available: true, Binary: binary}
	}
	version := strings.TrimSpace(string(output))
	if idx := strings.IndexByte(version, '\n'); idx > 0 {
		version = version[:idx]
	}
	return EngineProbe{Available: true, Binary: binary, Version: version}
}

// EngineDetail renders a display-friendly summary for status UIs.
func (p EngineProbe) EngineDetail() string {
	if !p.Available {
		return "Local engine " + p.Binary + " not found"
	}
	if p.Version == "" {
		return p.Binary + " available"
	}
	return p.Version
}
