package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values that would break the pipeline
// at runtime. Provider credentials are optional: missing keys select the
// degraded fallback paths instead of failing validation.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		problems = append(problems, "paths.work_dir is required")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		problems = append(problems, "paths.output_dir is required")
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		problems = append(problems, "transcription.timeout_seconds must be positive")
	}
	if c.Voice.CloneTimeoutSeconds <= 0 {
		problems = append(problems, "voice.clone_timeout_seconds must be positive")
	}
	if c.Voice.SynthTimeoutSeconds <= 0 {
		problems = append(problems, "voice.synth_timeout_seconds must be positive")
	}
	if c.Voice.MaxConcurrent <= 0 {
		problems = append(problems, "voice.max_concurrent must be positive")
	}
	if c.Voice.Stability < 0 || c.Voice.Stability > 1 {
		problems = append(problems, "voice.stability must be within [0,1]")
	}
	if c.Voice.SimilarityBoost < 0 || c.Voice.SimilarityBoost > 1 {
		problems = append(problems, "voice.similarity_boost must be within [0,1]")
	}
	if c.Diarization.NoiseFloorDB >= 0 {
		problems = append(problems, "diarization.noise_floor_db must be negative dBFS")
	}
	if c.Diarization.MinSilenceSeconds <= 0 {
		problems = append(problems, "diarization.min_silence_seconds must be positive")
	}
	if c.Diarization.AlternateAfterSeconds <= 0 {
		problems = append(problems, "diarization.alternate_after_seconds must be positive")
	}
	if c.Workflow.RetryAttempts <= 0 {
		problems = append(problems, "workflow.retry_attempts must be positive")
	}
	if c.Workflow.TempRetentionHours < 0 {
		problems = append(problems, "workflow.temp_retention_hours must not be negative")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + formatProblems(problems))
	}
	return nil
}

func formatProblems(problems []string) string {
	if len(problems) == 1 {
		return problems[0]
	}
	return fmt.Sprintf("%d problems: %s", len(problems), strings.Join(problems, "; "))
}
