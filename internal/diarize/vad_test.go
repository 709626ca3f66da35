package diarize

import (
	"testing"

	"revoice/internal/media/ffmpeg"
)

func TestSegmentsFromSilenceAlternation(t *testing.T) {
	// Speech [0,3.5], [4,7], [7.6,10]: the first segment exceeds the 3 s
	// alternation threshold, so subsequent segments flip to speaker_1; the
	// second segment is exactly 3 s and keeps the label.
	silences := []ffmpeg.SilenceRange{
		{Start: 3.5, End: 4},
		{Start: 7, End: 7.6},
	}
	segments := segmentsFromSilence(silences, 10, 3)
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	wantSpeakers := []string{speakerA, speakerB, speakerB}
	wantBounds := [][2]float64{{0, 3.5}, {4, 7}, {7.6, 10}}
	for i, seg := range segments {
		if seg.Speaker != wantSpeakers[i] {
			t.Errorf("segment %d: speaker %q, want %q", i, seg.Speaker, wantSpeakers[i])
		}
		if seg.Start != wantBounds[i][0] || seg.End != wantBounds[i][1] {
			t.Errorf("segment %d: bounds [%f,%f], want %v", i, seg.Start, seg.End, wantBounds[i])
		}
		if seg.Confidence != vadConfidence {
			t.Errorf("segment %d: confidence %f, want %f", i, seg.Confidence, vadConfidence)
		}
		if seg.Duration() <= 0 {
			t.Errorf("segment %d: non-positive duration", i)
		}
	}
}

func TestSegmentsFromSilenceShortSegmentsKeepLabel(t *testing.T) {
	// All speech bursts are under the threshold; nobody alternates.
	silences := []ffmpeg.SilenceRange{
		{Start: 1, End: 2},
		{Start: 3, End: 4},
		{Start: 5, End: 6},
	}
	segments := segmentsFromSilence(silences, 7, 3)
	for i, seg := range segments {
		if seg.Speaker != speakerA {
			t.Fatalf("segment %d: expected %s, got %s", i, speakerA, seg.Speaker)
		}
	}
}

func TestSegmentsFromSilenceOpenEndedSilence(t *testing.T) {
	// Open-ended silence (End=-1) means the track ended silent; no trailing
	// speech segment should be emitted.
	silences := []ffmpeg.SilenceRange{{Start: 8, End: -1}}
	segments := segmentsFromSilence(silences, 10, 3)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].Start != 0 || segments[0].End != 8 {
		t.Fatalf("unexpected bounds [%f,%f]", segments[0].Start, segments[0].End)
	}
}

func TestSegmentsFromSilenceFullySilent(t *testing.T) {
	silences := []ffmpeg.SilenceRange{{Start: 0, End: 10}}
	if segments := segmentsFromSilence(silences, 10, 3); len(segments) != 0 {
		t.Fatalf("expected no segments for fully silent input, got %d", len(segments))
	}
}

func TestSingleSegment(t *testing.T) {
	segments := singleSegment(42)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	seg := segments[0]
	if seg.Start != 0 || seg.End != 42 || seg.Speaker != speakerA {
		t.Fatalf("unexpected segment %+v", seg)
	}
	if seg.Confidence != singleConfidence {
		t.Fatalf("unexpected confidence %f", seg.Confidence)
	}
	if got := singleSegment(0); got != nil {
		t.Fatal("expected nil for zero duration")
	}
}
