package stitch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"revoice/internal/diarize"
)

// fakeTool records calls and materializes output files so cleanup paths are
// exercised for real.
type fakeTool struct {
	slices     []string
	transcodes []string
	concatced  [][]string
	concatErr  error
	sliceErr   error
}

func (f *fakeTool) Slice(ctx context.Context, source string, start, end float64, dest string) error {
	if f.sliceErr != nil {
		return f.sliceErr
	}
	f.slices = append(f.slices, dest)
	return os.WriteFile(dest, []byte("original slice"), 0o644)
}

func (f *fakeTool) Concat(ctx context.Context, chunks []string, dest string) error {
	f.concatced = append(f.concatced, append([]string(nil), chunks...))
	if f.concatErr != nil {
		return f.concatErr
	}
	return os.WriteFile(dest, []byte("stitched"), 0o644)
}

func (f *fakeTool) TranscodeToCanonicalWav(ctx context.Context, source, dest string) error {
	f.transcodes = append(f.transcodes, source)
	return os.WriteFile(dest, []byte("replacement"), 0o644)
}

func threeSegments() []diarize.SpeakerSegment {
	return []diarize.SpeakerSegment{
		{Speaker: "A", Start: 0, End: 2},
		{Speaker: "B", Start: 2, End: 5},
		{Speaker: "A", Start: 5, End: 8},
	}
}

func TestStitchExhaustedQueueFallsBackToOriginal(t *testing.T) {
	// Speaker A appears twice but only one replacement clip is queued: the
	// first A slot consumes it, the second silently reuses original audio.
	tool := &fakeTool{}
	stitcher := New(tool, nil)
	workDir := t.TempDir()
	dest := filepath.Join(workDir, "final.wav")

	result, err := stitcher.Stitch(context.Background(), "original.wav", threeSegments(),
		map[string][]string{"A": {"clip_a0.mp3"}}, workDir, dest)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if len(result.ReplacedSlots) != 1 || result.ReplacedSlots[0] != 0 {
		t.Fatalf("expected slot 0 replaced, got %v", result.ReplacedSlots)
	}
	if len(result.FallbackSlots) != 2 {
		t.Fatalf("expected 2 fallback slots, got %v", result.FallbackSlots)
	}
	if len(tool.transcodes) != 1 || tool.transcodes[0] != "clip_a0.mp3" {
		t.Fatalf("unexpected transcodes %v", tool.transcodes)
	}
	if result.OutputPath != dest {
		t.Fatalf("unexpected output path %q", result.OutputPath)
	}
}

func TestStitchProducesOneChunkPerSegment(t *testing.T) {
	tool := &fakeTool{}
	stitcher := New(tool, nil)
	workDir := t.TempDir()

	_, err := stitcher.Stitch(context.Background(), "original.wav", threeSegments(),
		map[string][]string{"A": {"a0.mp3", "a1.mp3"}, "B": {"b0.mp3"}},
		workDir, filepath.Join(workDir, "final.wav"))
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if len(tool.concatced) != 1 {
		t.Fatalf("expected a single concat, got %d", len(tool.concatced))
	}
	chunks := tool.concatced[0]
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i] <= chunks[i-1] {
			t.Fatal("chunks not in chronological order")
		}
	}
}

func TestStitchRemovesChunksAfterConcat(t *testing.T) {
	tool := &fakeTool{}
	stitcher := New(tool, nil)
	workDir := t.TempDir()
	dest := filepath.Join(workDir, "final.wav")

	if _, err := stitcher.Stitch(context.Background(), "original.wav", threeSegments(),
		nil, workDir, dest); err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	entries, err := os.ReadDir(workDir)
	if err != nil {
		t.Fatalf("read workdir: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() != "final.wav" {
			t.Fatalf("leftover temp file %s", entry.Name())
		}
	}
}

func TestStitchConcatFailureCleansUpAndKeepsError(t *testing.T) {
	concatErr := errors.New("concat demuxer failed")
	tool := &fakeTool{concatErr: concatErr}
	stitcher := New(tool, nil)
	workDir := t.TempDir()

	_, err := stitcher.Stitch(context.Background(), "original.wav", threeSegments(),
		nil, workDir, filepath.Join(workDir, "final.wav"))
	if !errors.Is(err, concatErr) {
		t.Fatalf("expected concat error, got %v", err)
	}
	entries, readErr := os.ReadDir(workDir)
	if readErr != nil {
		t.Fatalf("read workdir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("expected best-effort cleanup, found %d files", len(entries))
	}
}

func TestStitchDoesNotConsumeCallerQueues(t *testing.T) {
	tool := &fakeTool{}
	stitcher := New(tool, nil)
	workDir := t.TempDir()
	queues := map[string][]string{"A": {"a0.mp3", "a1.mp3"}}

	if _, err := stitcher.Stitch(context.Background(), "original.wav", threeSegments(),
		queues, workDir, filepath.Join(workDir, "final.wav")); err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if len(queues["A"]) != 2 {
		t.Fatalf("caller queue mutated: %v", queues["A"])
	}
}

func TestStitchValidatesInput(t *testing.T) {
	stitcher := New(&fakeTool{}, nil)
	if _, err := stitcher.Stitch(context.Background(), "", threeSegments(), nil, t.TempDir(), "out.wav"); err == nil {
		t.Fatal("expected error for missing original audio")
	}
	if _, err := stitcher.Stitch(context.Background(), "original.wav", nil, nil, t.TempDir(), "out.wav"); err == nil {
		t.Fatal("expected error for empty segment list")
	}
}

func TestQueuesFromClips(t *testing.T) {
	queues := QueuesFromClips(map[string][]string{
		"A":  {"a0.mp3"},
		"":   {"ignored.mp3"},
		"B":  {},
		"C ": nil,
	})
	if len(queues) != 1 {
		t.Fatalf("expected only speaker A, got %v", queues)
	}
	if len(queues["A"]) != 1 {
		t.Fatalf("unexpected queue %v", queues["A"])
	}
}
