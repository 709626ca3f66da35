package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"revoice/internal/diarize"
)

// State carries intermediate results between stages. It is persisted as JSON
// in the run's working directory so standalone stage invocations can resume
// where the previous stage left off.
type State struct {
	SourcePath      string                   `json:"source_path"`
	AudioPath       string                   `json:"audio_path,omitempty"`
	DurationSeconds float64                  `json:"duration_seconds,omitempty"`
	Language        string                   `json:"language,omitempty"`
	Method          string                   `json:"diarization_method,omitempty"`
	Segments        []diarize.SpeakerSegment `json:"segments,omitempty"`
	Transcript      string                   `json:"transcript,omitempty"`
	VoiceIDs        map[string]string        `json:"voice_ids,omitempty"`
	Clips           map[string][]string      `json:"clips,omitempty"`
	FailedSegments  []int                    `json:"failed_segments,omitempty"`
	StitchedPath    string                   `json:"stitched_path,omitempty"`
	OutputPath      string                   `json:"output_path,omitempty"`
}

const stateFileName = "state.json"

func statePath(workDir string) string {
	return filepath.Join(workDir, stateFileName)
}

// LoadState reads the persisted state from workDir. A missing file yields an
// empty state so the first stage starts clean.
func LoadState(workDir string) (*State, error) {
	data, err := os.ReadFile(statePath(workDir))
	if os.IsNotExist(err) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read run state: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse run state: %w", err)
	}
	return &st, nil
}

// Save writes the state atomically into workDir.
func (s *State) Save(workDir string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run state: %w", err)
	}
	tmp := statePath(workDir) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write run state: %w", err)
	}
	if err := os.Rename(tmp, statePath(workDir)); err != nil {
		return fmt.Errorf("replace run state: %w", err)
	}
	return nil
}
