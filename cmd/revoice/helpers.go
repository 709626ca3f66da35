package main

import (
	"fmt"
	"strings"
	"time"

	"revoice/internal/runs"
)

// stageAliases maps CLI stage names to run steps.
var stageAliases = map[string]runs.Step{
	"extract":    runs.StepExtracting,
	"diarize":    runs.StepDiarizing,
	"transcribe": runs.StepTranscribing,
	"synthesize": runs.StepSynthesizing,
	"stitch":     runs.StepStitching,
	"mux":        runs.StepMuxing,
}

// stageNames returns the CLI stage names in pipeline order.
func stageNames() []string {
	return []string{"extract", "diarize", "transcribe", "synthesize", "stitch", "mux"}
}

func parseStage(name string) (runs.Step, bool) {
	step, ok := stageAliases[strings.ToLower(strings.TrimSpace(name))]
	return step, ok
}

func formatProgress(run *runs.Run) string {
	if run.Step.IsTerminal() {
		return string(run.Step)
	}
	return fmt.Sprintf("%.0f%% %s", run.ProgressPercent, run.ProgressMessage)
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

func truncatePath(path string, max int) string {
	if len(path) <= max {
		return path
	}
	return "..." + path[len(path)-max+3:]
}

func checkMark(passed bool) string {
	if passed {
		return "ok"
	}
	return "FAIL"
}
