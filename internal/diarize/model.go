package diarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const modelConfidence = 0.85

// ModelRunner abstracts the diarization model subprocess for testing. It
// returns the model's stdout.
type ModelRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ModelProvider invokes the optional neural diarization model as a
// subprocess. The model receives an audio file path and prints speaker turns
// as JSON on stdout.
type ModelProvider struct {
	Command string
	Script  string
	run     ModelRunner
}

// NewModelProvider builds a provider; Script may be empty, in which case the
// provider reports itself unavailable.
func NewModelProvider(command, script string) *ModelProvider {
	return &ModelProvider{Command: command, Script: script}
}

// WithRunner sets a custom subprocess runner (for testing).
func (p *ModelProvider) WithRunner(run ModelRunner) *ModelProvider {
	p.run = run
	return p
}

// Available reports whether the model can be invoked at all.
func (p *ModelProvider) Available() bool {
	if p == nil || strings.TrimSpace(p.Script) == "" {
		return false
	}
	if p.run != nil {
		return true
	}
	if _, err := os.Stat(p.Script); err != nil {
		return false
	}
	if _, err := exec.LookPath(p.Command); err != nil {
		return false
	}
	return true
}

// modelPayload is the JSON structure printed by the diarization model:
// a speakers map keyed by label plus the concatenated transcript.
type modelPayload struct {
	Speakers map[string]struct {
		Segments []struct {
			Start   float64 `json:"start"`
			End     float64 `json:"end"`
			Text    string  `json:"text"`
			Speaker string  `json:"speaker"`
		} `json:"segments"`
	} `json:"speakers"`
	FullText string `json:"fullText"`
}

// Run executes the model and parses its output into a Result.
func (p *ModelProvider) Run(ctx context.Context, audioPath string) (Result, error) {
	if audioPath == "" {
		return Result{}, errors.New("diarize model: audio path required")
	}
	output, err := p.exec(ctx, audioPath)
	if err != nil {
		return Result{}, fmt.Errorf("diarize model: %w", err)
	}

	payload, err := parseModelOutput(output)
	if err != nil {
		return Result{}, err
	}

	var segments []SpeakerSegment
	for label, speaker := range payload.Speakers {
		for _, seg := range speaker.Segments {
			if seg.End <= seg.Start {
				continue
			}
			segments = append(segments, SpeakerSegment{
				Speaker:    label,
				Start:      seg.Start,
				End:        seg.End,
				Confidence: modelConfidence,
				Text:       strings.TrimSpace(seg.Text),
			})
		}
	}
	if len(segments) == 0 {
		return Result{}, errors.New("diarize model: no usable segments in output")
	}
	return buildResult(segments, MethodModel), nil
}

func (p *ModelProvider) exec(ctx context.Context, audioPath string) ([]byte, error) {
	if p.run != nil {
		return p.run(ctx, p.Command, p.Script, audioPath)
	}
	cmd := exec.CommandContext(ctx, p.Command, p.Script, audioPath)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s: %w: %s", p.Command, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return output, nil
}

// parseModelOutput tolerates leading log noise before the JSON document by
// scanning for the first '{'.
func parseModelOutput(output []byte) (modelPayload, error) {
	var payload modelPayload
	trimmed := output
	if idx := strings.IndexByte(string(output), '{'); idx > 0 {
		trimmed = output[idx:]
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return payload, fmt.Errorf("diarize model: parse output: %w", err)
	}
	return payload, nil
}
