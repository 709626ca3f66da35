package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"revoice/internal/config"
	"revoice/internal/diarize"
	"revoice/internal/media/ffmpeg"
	"revoice/internal/media/ffprobe"
	"revoice/internal/pipeline"
	"revoice/internal/runs"
	"revoice/internal/services"
	"revoice/internal/stitch"
	"revoice/internal/testsupport"
	"revoice/internal/transcribe"
	"revoice/internal/voice"
)

type fakeTool struct {
	extracted  []string
	sliced     []string
	transcoded []string
	concatted  [][]string
	muxed      []string
	muxErr     error
}

func (f *fakeTool) materialize(dest, content string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte(content), 0o644)
}

func (f *fakeTool) ExtractAudio(ctx context.Context, source string, format ffmpeg.AudioFormat, dest string) error {
	f.extracted = append(f.extracted, dest)
	return f.materialize(dest, "RIFF extracted")
}

func (f *fakeTool) Slice(ctx context.Context, source string, start, end float64, dest string) error {
	f.sliced = append(f.sliced, dest)
	return f.materialize(dest, "RIFF slice")
}

func (f *fakeTool) TranscodeToCanonicalWav(ctx context.Context, source, dest string) error {
	f.transcoded = append(f.transcoded, dest)
	return f.materialize(dest, "RIFF transcoded")
}

func (f *fakeTool) Concat(ctx context.Context, chunks []string, dest string) error {
	f.concatted = append(f.concatted, append([]string(nil), chunks...))
	return f.materialize(dest, "RIFF concat")
}

func (f *fakeTool) Mux(ctx context.Context, video, audio, dest string) error {
	if f.muxErr != nil {
		return f.muxErr
	}
	f.muxed = append(f.muxed, dest)
	return f.materialize(dest, "muxed container")
}

func probeResult(videoStreams, audioStreams int, duration string) ffprobe.Result {
	var streams []ffprobe.Stream
	for i := 0; i < videoStreams; i++ {
		streams = append(streams, ffprobe.Stream{CodecType: "video"})
	}
	for i := 0; i < audioStreams; i++ {
		streams = append(streams, ffprobe.Stream{CodecType: "audio", Duration: duration})
	}
	return ffprobe.Result{Streams: streams, Format: ffprobe.Format{Duration: duration, Size: "2048"}}
}

type fakeDiarizer struct {
	segments []diarize.SpeakerSegment
	err      error
}

func (f *fakeDiarizer) Diarize(ctx context.Context, audioPath string, totalDuration float64) (diarize.Result, error) {
	if f.err != nil {
		return diarize.Result{}, f.err
	}
	speakers := map[string]struct{}{}
	for _, segment := range f.segments {
		speakers[segment.Speaker] = struct{}{}
	}
	return diarize.Result{
		Segments:      f.segments,
		TotalSpeakers: len(speakers),
		Method:        diarize.MethodVoiceActivity,
	}, nil
}

type fakeTranscriber struct {
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath, languageHint string) (transcribe.Result, error) {
	f.calls++
	return transcribe.Result{
		Text:     fmt.Sprintf("line %d", f.calls),
		Language: "en",
		Source:   transcribe.SourceProvider,
	}, nil
}

// fakeSynthesizer keys failure injection by the clip directory's base name,
// which the pipeline sets to the speaker label.
type fakeSynthesizer struct {
	configured   bool
	cloneErr     error
	failSegments map[string][]int
}

func (f *fakeSynthesizer) ProviderConfigured() bool { return f.configured }

func (f *fakeSynthesizer) CloneVoice(ctx context.Context, name, samplePath string) (string, error) {
	if f.cloneErr != nil {
		return "", f.cloneErr
	}
	if _, err := os.Stat(samplePath); err != nil {
		return "", fmt.Errorf("sample missing: %w", err)
	}
	return "voice-" + name, nil
}

func (f *fakeSynthesizer) ReplaceSpeaker(ctx context.Context, voiceID string, segments []diarize.SpeakerSegment, outputDir string) (voice.ReplaceResult, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return voice.ReplaceResult{}, err
	}
	speaker := filepath.Base(outputDir)
	failed := map[int]bool{}
	for _, idx := range f.failSegments[speaker] {
		failed[idx] = true
	}

	result := voice.ReplaceResult{Errors: map[int]string{}}
	for i := range segments {
		if failed[i] {
			result.FailedSegments = append(result.FailedSegments, i)
			result.Errors[i] = "synthesis exploded"
			continue
		}
		path := filepath.Join(outputDir, fmt.Sprintf("replacement_%03d.mp3", i))
		if err := os.WriteFile(path, []byte("ID3 clip"), 0o644); err != nil {
			return result, err
		}
		result.Clips = append(result.Clips, voice.ReplacementClip{SegmentIndex: i, AudioPath: path, Quality: voice.QualityCloned})
		result.SuccessfulSegments = append(result.SuccessfulSegments, i)
	}
	return result, nil
}

func testSegments() []diarize.SpeakerSegment {
	return []diarize.SpeakerSegment{
		{Speaker: "speaker_0", Start: 0, End: 4, Confidence: 0.6},
		{Speaker: "speaker_1", Start: 4, End: 7, Confidence: 0.6},
		{Speaker: "speaker_0", Start: 7, End: 10, Confidence: 0.6},
	}
}

type testRig struct {
	pipeline    *pipeline.Pipeline
	cfg         *config.Config
	store       *runs.Store
	tool        *fakeTool
	transcriber *fakeTranscriber
}

func newTestRig(t *testing.T, synth pipeline.Synthesizer) *testRig {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	tool := &fakeTool{}
	transcriber := &fakeTranscriber{}

	p := pipeline.New(cfg, store, nil).
		WithMediaTool(tool).
		WithProber(func(ctx context.Context, path string) (ffprobe.Result, error) {
			return probeResult(1, 1, "10.0"), nil
		}).
		WithDiarizer(&fakeDiarizer{segments: testSegments()}).
		WithTranscriber(transcriber).
		WithSynthesizer(synth).
		WithStitcher(stitch.New(tool, nil))

	return &testRig{pipeline: p, cfg: cfg, store: store, tool: tool, transcriber: transcriber}
}

func writeSource(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	testsupport.WriteFile(t, path, 2048)
	return path
}

func TestProcessCompletesRun(t *testing.T) {
	rig := newTestRig(t, &fakeSynthesizer{configured: true})
	source := writeSource(t, "sample.mp4")

	run, err := rig.pipeline.Process(context.Background(), source)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if run.Step != runs.StepDone {
		t.Fatalf("expected done run, got %s (%s)", run.Step, run.ErrorMessage)
	}
	if run.ProgressPercent != 100 {
		t.Fatalf("expected 100%%, got %.0f", run.ProgressPercent)
	}

	wantOutput := filepath.Join(rig.cfg.Paths.OutputDir, "sample.replaced.mp4")
	if run.OutputPath != wantOutput {
		t.Fatalf("unexpected output path %q", run.OutputPath)
	}
	if _, err := os.Stat(wantOutput); err != nil {
		t.Fatalf("output file missing: %v", err)
	}

	if rig.transcriber.calls != 3 {
		t.Fatalf("expected 3 transcriptions, got %d", rig.transcriber.calls)
	}
	// All three segments had replacement clips, so the stitch normalized each
	// and sliced nothing for fallback beyond the two clone samples and the
	// three transcription clips.
	if len(rig.tool.transcoded) != 3 {
		t.Fatalf("expected 3 transcoded chunks, got %d", len(rig.tool.transcoded))
	}
	if len(rig.tool.muxed) != 1 {
		t.Fatalf("expected 1 mux, got %d", len(rig.tool.muxed))
	}

	workDir := filepath.Join(rig.cfg.Paths.WorkDir, run.ID)
	st, err := pipeline.LoadState(workDir)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if st.VoiceIDs["speaker_0"] != "voice-speaker_0" || st.VoiceIDs["speaker_1"] != "voice-speaker_1" {
		t.Fatalf("unexpected voice ids %#v", st.VoiceIDs)
	}
	if len(st.Clips["speaker_0"]) != 2 || len(st.Clips["speaker_1"]) != 1 {
		t.Fatalf("unexpected clips %#v", st.Clips)
	}
	if st.Language != "en" {
		t.Fatalf("unexpected language %q", st.Language)
	}

	_, artifacts, err := rig.pipeline.Status(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	kinds := map[string]int{}
	for _, artifact := range artifacts {
		kinds[artifact.Kind]++
	}
	if kinds[runs.ArtifactAudio] != 2 || kinds[runs.ArtifactTranscript] != 2 || kinds[runs.ArtifactVideo] != 1 {
		t.Fatalf("unexpected artifact kinds %#v", kinds)
	}
	if kinds[runs.ArtifactError] != 0 {
		t.Fatalf("clean run must not record error artifacts, got %#v", kinds)
	}
}

func TestProcessRejectsSourceWithoutAudioStream(t *testing.T) {
	rig := newTestRig(t, &fakeSynthesizer{})
	rig.pipeline.WithProber(func(ctx context.Context, path string) (ffprobe.Result, error) {
		return probeResult(1, 0, "10.0"), nil
	})
	source := writeSource(t, "mute.mp4")

	run, err := rig.pipeline.Process(context.Background(), source)
	if !errors.Is(err, services.ErrInputInvalid) {
		t.Fatalf("expected ErrInputInvalid, got %v", err)
	}
	if run == nil || run.Step != runs.StepFailed {
		t.Fatalf("expected failed run, got %#v", run)
	}

	fetched, err := rig.store.GetByID(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Step != runs.StepFailed || fetched.ErrorMessage == "" {
		t.Fatalf("unexpected persisted run %#v", fetched)
	}

	artifacts, err := rig.store.ArtifactsForRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("ArtifactsForRun: %v", err)
	}
	if len(artifacts) != 1 || artifacts[0].Kind != runs.ArtifactError {
		t.Fatalf("expected one error artifact, got %#v", artifacts)
	}
}

func TestProcessMissingSource(t *testing.T) {
	rig := newTestRig(t, &fakeSynthesizer{})

	run, err := rig.pipeline.Process(context.Background(), filepath.Join(t.TempDir(), "absent.mp4"))
	if !errors.Is(err, services.ErrInputInvalid) {
		t.Fatalf("expected ErrInputInvalid, got %v", err)
	}
	if run != nil {
		t.Fatalf("no run should be created for a missing source, got %#v", run)
	}
}

func TestSynthesisPartialFailureStillCompletes(t *testing.T) {
	synth := &fakeSynthesizer{failSegments: map[string][]int{"speaker_0": {1}}}
	rig := newTestRig(t, synth)
	source := writeSource(t, "podcast.mp4")

	run, err := rig.pipeline.Process(context.Background(), source)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if run.Step != runs.StepDone {
		t.Fatalf("expected done run despite failed segment, got %s (%s)", run.Step, run.ErrorMessage)
	}

	workDir := filepath.Join(rig.cfg.Paths.WorkDir, run.ID)
	st, err := pipeline.LoadState(workDir)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	// speaker_0's second segment is global index 2.
	if len(st.FailedSegments) != 1 || st.FailedSegments[0] != 2 {
		t.Fatalf("unexpected failed segments %v", st.FailedSegments)
	}
	if len(st.Clips["speaker_0"]) != 1 {
		t.Fatalf("expected one surviving speaker_0 clip, got %v", st.Clips["speaker_0"])
	}

	// Two slots replaced, one fell back to the original audio slice.
	if len(rig.tool.transcoded) != 2 {
		t.Fatalf("expected 2 transcoded chunks, got %d", len(rig.tool.transcoded))
	}

	artifacts, err := rig.store.ArtifactsForRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("ArtifactsForRun: %v", err)
	}
	errorCount := 0
	for _, artifact := range artifacts {
		if artifact.Kind == runs.ArtifactError {
			errorCount++
		}
	}
	if errorCount != 1 {
		t.Fatalf("expected 1 error artifact, got %d", errorCount)
	}
}

func TestCloneFailureDegradesToStandardQuality(t *testing.T) {
	synth := &fakeSynthesizer{
		configured: true,
		cloneErr:   services.Wrap(services.ErrProviderRejected, "synthesizing", "clone", "sample too short", nil),
	}
	rig := newTestRig(t, synth)
	source := writeSource(t, "interview.mp4")

	run, err := rig.pipeline.Process(context.Background(), source)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if run.Step != runs.StepDone {
		t.Fatalf("expected done run, got %s (%s)", run.Step, run.ErrorMessage)
	}

	workDir := filepath.Join(rig.cfg.Paths.WorkDir, run.ID)
	st, err := pipeline.LoadState(workDir)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if len(st.VoiceIDs) != 0 {
		t.Fatalf("no voices should be registered, got %#v", st.VoiceIDs)
	}

	artifacts, err := rig.store.ArtifactsForRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("ArtifactsForRun: %v", err)
	}
	cloneErrors := 0
	for _, artifact := range artifacts {
		if artifact.Kind == runs.ArtifactError {
			cloneErrors++
		}
	}
	if cloneErrors != 2 {
		t.Fatalf("expected a clone error artifact per speaker, got %d", cloneErrors)
	}
}

func TestRunStepRequiresEarlierState(t *testing.T) {
	rig := newTestRig(t, &fakeSynthesizer{})
	run := testsupport.NewRun(t, rig.store, writeSource(t, "skip.mp4"))

	_, err := rig.pipeline.RunStep(context.Background(), run.ID, runs.StepDiarizing)
	if !errors.Is(err, services.ErrInputInvalid) {
		t.Fatalf("expected ErrInputInvalid, got %v", err)
	}

	fetched, err := rig.store.GetByID(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Step != runs.StepFailed {
		t.Fatalf("expected failed run, got %s", fetched.Step)
	}
}

func TestRunStepUnknownStep(t *testing.T) {
	rig := newTestRig(t, &fakeSynthesizer{})
	run := testsupport.NewRun(t, rig.store, writeSource(t, "odd.mp4"))

	if _, err := rig.pipeline.RunStep(context.Background(), run.ID, runs.StepQueued); err == nil {
		t.Fatal("expected error for step without a stage")
	}
}

func TestResumeRejectsTerminalRun(t *testing.T) {
	rig := newTestRig(t, &fakeSynthesizer{})
	run := testsupport.NewRun(t, rig.store, writeSource(t, "finished.mp4"))
	run.SetDone("/output/finished.replaced.mp4")
	if err := rig.store.Update(context.Background(), run); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, err := rig.pipeline.Resume(context.Background(), run.ID); err == nil {
		t.Fatal("expected error resuming a done run")
	}
}

func TestResumeRunsQueuedRunToCompletion(t *testing.T) {
	rig := newTestRig(t, &fakeSynthesizer{})
	run := testsupport.NewRun(t, rig.store, writeSource(t, "queued.mp4"))

	resumed, err := rig.pipeline.Resume(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.Step != runs.StepDone {
		t.Fatalf("expected done run, got %s (%s)", resumed.Step, resumed.ErrorMessage)
	}
}
