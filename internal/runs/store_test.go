package runs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"revoice/internal/runs"
	"revoice/internal/testsupport"
)

func TestNewRunStartsQueued(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	run, err := store.NewRun(ctx, "/videos/sample.mp4")
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected run id to be assigned")
	}
	if run.Step != runs.StepQueued {
		t.Fatalf("expected queued step, got %s", run.Step)
	}
	if run.SourcePath != "/videos/sample.mp4" {
		t.Fatalf("unexpected source path %q", run.SourcePath)
	}

	fetched, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.ID != run.ID || fetched.Step != runs.StepQueued {
		t.Fatalf("unexpected fetched run %#v", fetched)
	}
}

func TestNewRunRequiresSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.NewRun(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty source path")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.GetByID(context.Background(), "no-such-run")
	if !errors.Is(err, runs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdatePersistsProgressAndTerminalStates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	run := testsupport.NewRun(t, store, "/videos/sample.mp4")
	run.Step = runs.StepDiarizing
	run.SetProgress("partitioning speakers", 35)
	if err := store.Update(ctx, run); err != nil {
		t.Fatalf("Update: %v", err)
	}

	fetched, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Step != runs.StepDiarizing || fetched.ProgressPercent != 35 {
		t.Fatalf("unexpected run %#v", fetched)
	}
	if fetched.ProgressMessage != "partitioning speakers" {
		t.Fatalf("unexpected progress message %q", fetched.ProgressMessage)
	}

	run.SetDone("/output/sample.replaced.mp4")
	if err := store.Update(ctx, run); err != nil {
		t.Fatalf("Update done: %v", err)
	}
	fetched, err = store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Step != runs.StepDone || fetched.OutputPath != "/output/sample.replaced.mp4" {
		t.Fatalf("unexpected done run %#v", fetched)
	}
	if !fetched.Step.IsTerminal() {
		t.Fatal("done must be terminal")
	}
}

func TestUpdateRejectsUnknownStep(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	run := testsupport.NewRun(t, store, "/videos/sample.mp4")
	run.Step = runs.Step("rewinding")
	if err := store.Update(context.Background(), run); err == nil {
		t.Fatal("expected error for unknown step")
	}
}

func TestSetFailedRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	run := testsupport.NewRun(t, store, "/videos/sample.mp4")
	run.SetFailed("extraction found no audio stream")
	if err := store.Update(ctx, run); err != nil {
		t.Fatalf("Update: %v", err)
	}

	fetched, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Step != runs.StepFailed {
		t.Fatalf("expected failed step, got %s", fetched.Step)
	}
	if fetched.ErrorMessage != "extraction found no audio stream" {
		t.Fatalf("unexpected error message %q", fetched.ErrorMessage)
	}
}

func TestListNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for _, source := range []string{"/videos/a.mp4", "/videos/b.mp4", "/videos/c.mp4"} {
		if _, err := store.NewRun(ctx, source); err != nil {
			t.Fatalf("NewRun %s: %v", source, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	listed, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(listed))
	}
	if listed[0].SourcePath != "/videos/c.mp4" {
		t.Fatalf("expected newest first, got %q", listed[0].SourcePath)
	}
}

func TestArtifactsAppendOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	run := testsupport.NewRun(t, store, "/videos/sample.mp4")
	if err := store.AddArtifact(ctx, run.ID, runs.ArtifactAudio, "/work/audio.wav", ""); err != nil {
		t.Fatalf("AddArtifact: %v", err)
	}
	if err := store.AddArtifact(ctx, run.ID, runs.ArtifactError, "", `{"segment": 2}`); err != nil {
		t.Fatalf("AddArtifact: %v", err)
	}

	artifacts, err := store.ArtifactsForRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("ArtifactsForRun: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(artifacts))
	}
	if artifacts[0].Kind != runs.ArtifactAudio || artifacts[1].Kind != runs.ArtifactError {
		t.Fatalf("unexpected artifact order %#v", artifacts)
	}
	if artifacts[1].MetadataJSON != `{"segment": 2}` {
		t.Fatalf("unexpected metadata %q", artifacts[1].MetadataJSON)
	}
}

func TestHeartbeatAndFailStale(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	stale := testsupport.NewRun(t, store, "/videos/stale.mp4")
	stale.Step = runs.StepSynthesizing
	if err := store.Update(ctx, stale); err != nil {
		t.Fatalf("Update: %v", err)
	}

	alive := testsupport.NewRun(t, store, "/videos/alive.mp4")
	alive.Step = runs.StepSynthesizing
	if err := store.Update(ctx, alive); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := store.Heartbeat(ctx, alive.ID); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}

	affected, err := store.FailStale(ctx, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("FailStale: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 stale run, got %d", affected)
	}

	fetched, err := store.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Step != runs.StepFailed {
		t.Fatalf("expected stale run failed, got %s", fetched.Step)
	}
	living, err := store.GetByID(ctx, alive.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if living.Step != runs.StepSynthesizing {
		t.Fatalf("heartbeated run must survive, got %s", living.Step)
	}
}

func TestFailStaleComparesTimestampsWithinOneSecond(t *testing.T) {
	// Stored timestamps are compared as strings in SQL; a whole-second
	// heartbeat and a fractional cutoff in the same second must still order
	// chronologically.
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	stale := testsupport.NewRun(t, store, "/videos/whole-second.mp4")
	stale.Step = runs.StepSynthesizing
	stale.LastHeartbeat = &base
	if err := store.Update(ctx, stale); err != nil {
		t.Fatalf("Update: %v", err)
	}

	alive := testsupport.NewRun(t, store, "/videos/fractional.mp4")
	alive.Step = runs.StepSynthesizing
	beat := base.Add(900 * time.Millisecond)
	alive.LastHeartbeat = &beat
	if err := store.Update(ctx, alive); err != nil {
		t.Fatalf("Update: %v", err)
	}

	affected, err := store.FailStale(ctx, base.Add(500*time.Millisecond))
	if err != nil {
		t.Fatalf("FailStale: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected only the whole-second heartbeat reaped, got %d", affected)
	}

	fetched, err := store.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Step != runs.StepFailed {
		t.Fatalf("expected whole-second heartbeat failed, got %s", fetched.Step)
	}
	living, err := store.GetByID(ctx, alive.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if living.Step != runs.StepSynthesizing {
		t.Fatalf("heartbeat after cutoff must survive, got %s", living.Step)
	}
}

func TestParseStep(t *testing.T) {
	if step, ok := runs.ParseStep(" Diarizing "); !ok || step != runs.StepDiarizing {
		t.Fatalf("unexpected parse result %q %v", step, ok)
	}
	if _, ok := runs.ParseStep("rewinding"); ok {
		t.Fatal("expected unknown step to fail")
	}
}
