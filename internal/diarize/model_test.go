package diarize

import (
	"context"
	"errors"
	"testing"
)

const modelJSON = `{
  "speakers": {
    "SPEAKER_00": {"segments": [
      {"start": 0.0, "end": 2.5, "text": "hello there", "speaker": "SPEAKER_00"},
      {"start": 5.0, "end": 6.0, "text": "right", "speaker": "SPEAKER_00"}
    ]},
    "SPEAKER_01": {"segments": [
      {"start": 2.5, "end": 5.0, "text": "hi", "speaker": "SPEAKER_01"}
    ]}
  },
  "fullText": "hello there hi right"
}`

func TestModelProviderRun(t *testing.T) {
	provider := NewModelProvider("python3", "diarize.py").WithRunner(
		func(context.Context, string, ...string) ([]byte, error) {
			return []byte(modelJSON), nil
		})

	result, err := provider.Run(context.Background(), "audio.wav")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.TotalSpeakers != 2 {
		t.Fatalf("expected 2 speakers, got %d", result.TotalSpeakers)
	}
	if result.Method != MethodModel {
		t.Fatalf("expected model method, got %s", result.Method)
	}
	if len(result.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(result.Segments))
	}
	// Chronological order regardless of map iteration.
	for i := 1; i < len(result.Segments); i++ {
		if result.Segments[i].Start < result.Segments[i-1].Start {
			t.Fatal("segments not time-ordered")
		}
	}
	summary := result.Speakers["SPEAKER_00"]
	if summary.TotalDuration != 3.5 {
		t.Fatalf("expected 3.5s total for SPEAKER_00, got %f", summary.TotalDuration)
	}
	for _, seg := range result.Segments {
		if seg.Confidence != modelConfidence {
			t.Fatalf("expected confidence %f, got %f", modelConfidence, seg.Confidence)
		}
	}
}

func TestModelProviderToleratesLogNoise(t *testing.T) {
	provider := NewModelProvider("python3", "diarize.py").WithRunner(
		func(context.Context, string, ...string) ([]byte, error) {
			return []byte("Loading model weights...\n" + modelJSON), nil
		})
	if _, err := provider.Run(context.Background(), "audio.wav"); err != nil {
		t.Fatalf("Run with log noise: %v", err)
	}
}

func TestModelProviderRejectsEmptyOutput(t *testing.T) {
	provider := NewModelProvider("python3", "diarize.py").WithRunner(
		func(context.Context, string, ...string) ([]byte, error) {
			return []byte(`{"speakers": {}, "fullText": ""}`), nil
		})
	if _, err := provider.Run(context.Background(), "audio.wav"); err == nil {
		t.Fatal("expected error for empty speakers")
	}
}

func TestModelProviderSubprocessFailure(t *testing.T) {
	provider := NewModelProvider("python3", "diarize.py").WithRunner(
		func(context.Context, string, ...string) ([]byte, error) {
			return nil, errors.New("exit status 1")
		})
	if _, err := provider.Run(context.Background(), "audio.wav"); err == nil {
		t.Fatal("expected subprocess failure")
	}
}

func TestModelProviderAvailability(t *testing.T) {
	if (&ModelProvider{}).Available() {
		t.Fatal("empty provider should be unavailable")
	}
	var nilProvider *ModelProvider
	if nilProvider.Available() {
		t.Fatal("nil provider should be unavailable")
	}
}
