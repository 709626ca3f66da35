package runs

import (
	"strings"
	"time"
)

// Step is a pipeline run's position in the state machine.
type Step string

const (
	StepQueued       Step = "queued"
	StepExtracting   Step = "extracting"
	StepDiarizing    Step = "diarizing"
	StepTranscribing Step = "transcribing"
	StepSynthesizing Step = "synthesizing"
	StepStitching    Step = "stitching"
	StepMuxing       Step = "muxing"
	StepDone         Step = "done"
	StepFailed       Step = "failed"
)

var allSteps = []Step{
	StepQueued,
	StepExtracting,
	StepDiarizing,
	StepTranscribing,
	StepSynthesizing,
	StepStitching,
	StepMuxing,
	StepDone,
	StepFailed,
}

var stepSet = func() map[Step]struct{} {
	set := make(map[Step]struct{}, len(allSteps))
	for _, step := range allSteps {
		set[step] = struct{}{}
	}
	return set
}()

// AllSteps returns the ordered list of known steps.
func AllSteps() []Step {
	cp := make([]Step, len(allSteps))
	copy(cp, allSteps)
	return cp
}

// ParseStep converts a string into a known Step.
func ParseStep(value string) (Step, bool) {
	normalized := Step(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stepSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a step ends the run.
func (s Step) IsTerminal() bool {
	return s == StepDone || s == StepFailed
}

// IsProcessing reports whether a step reflects in-flight work.
func (s Step) IsProcessing() bool {
	switch s {
	case StepExtracting, StepDiarizing, StepTranscribing, StepSynthesizing, StepStitching, StepMuxing:
		return true
	default:
		return false
	}
}

// Artifact kinds recorded against a run.
const (
	ArtifactAudio      = "audio"
	ArtifactVideo      = "video"
	ArtifactTranscript = "transcript"
	ArtifactError      = "error"
)

// Run is a pipeline run persisted in SQLite.
type Run struct {
	ID              string
	SourcePath      string
	Step            Step
	ProgressPercent float64
	ProgressMessage string
	ErrorMessage    string
	OutputPath      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastHeartbeat   *time.Time
}

// Artifact is an append-only record of something a run produced.
type Artifact struct {
	ID           int64
	RunID        string
	Kind         string
	Path         string
	MetadataJSON string
	CreatedAt    time.Time
}

// SetProgress updates the progress fields together.
func (r *Run) SetProgress(message string, percent float64) {
	r.ProgressMessage = message
	r.ProgressPercent = percent
}

// SetFailed marks the run failed with the given error message.
func (r *Run) SetFailed(message string) {
	r.Step = StepFailed
	r.ErrorMessage = message
	r.ProgressMessage = message
	r.LastHeartbeat = nil
}

// SetDone marks the run completed with its final output.
func (r *Run) SetDone(outputPath string) {
	r.Step = StepDone
	r.OutputPath = outputPath
	r.ProgressPercent = 100
	r.ProgressMessage = "completed"
	r.ErrorMessage = ""
	r.LastHeartbeat = nil
}
