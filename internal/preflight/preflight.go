package preflight

import (
	"context"

	"revoice/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Provider checks only run when a credential is configured; the pipeline has
// working fallbacks for both, so their absence never blocks a run.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	for _, status := range CheckSystemDeps(cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Command
		} else if status.Optional {
			// Optional tools report but never fail the preflight.
			result.Passed = true
		}
		results = append(results, result)
	}

	if cfg.Transcription.APIKey != "" {
		results = append(results, CheckTranscriptionProvider(ctx, cfg.Transcription))
	}
	if cfg.Voice.APIKey != "" {
		results = append(results, CheckVoiceProvider(ctx, cfg.Voice))
	}

	return results
}

// Passed reports whether every result in the set passed.
func Passed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
