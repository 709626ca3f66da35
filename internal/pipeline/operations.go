package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"revoice/internal/fileutil"
	"revoice/internal/runs"
	"revoice/internal/services"
)

// Process creates a run for the source video and drives it through every
// stage. The returned run reflects the final persisted state even when a
// stage failed.
func (p *Pipeline) Process(ctx context.Context, sourcePath string) (*runs.Run, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, services.Wrap(services.ErrInputInvalid, "", "process", "source not readable", err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrInputInvalid, "", "process", "source is a directory", nil)
	}

	run, err := p.store.NewRun(ctx, sourcePath)
	if err != nil {
		return nil, err
	}
	if err := p.runStages(ctx, run, 0); err != nil {
		return run, err
	}
	return run, nil
}

// Resume continues an existing run from its current step. Queued runs start
// from extraction; runs caught mid-step redo that step. Terminal runs are
// rejected.
func (p *Pipeline) Resume(ctx context.Context, runID string) (*runs.Run, error) {
	run, err := p.store.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Step.IsTerminal() {
		return run, fmt.Errorf("run %s already %s", run.ID, run.Step)
	}

	start := 0
	if run.Step != runs.StepQueued {
		start = -1
		for i, spec := range p.stageSpecs() {
			if spec.step == run.Step {
				start = i
				break
			}
		}
		if start < 0 {
			return run, fmt.Errorf("run %s has unexpected step %s", run.ID, run.Step)
		}
	}
	if err := p.runStages(ctx, run, start); err != nil {
		return run, err
	}
	return run, nil
}

// RunStep executes a single stage of an existing run, leaving the rest of the
// pipeline untouched. Earlier stages must already have produced the state the
// requested stage consumes.
func (p *Pipeline) RunStep(ctx context.Context, runID string, step runs.Step) (*runs.Run, error) {
	run, err := p.store.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	for _, spec := range p.stageSpecs() {
		if spec.step == step {
			if err := p.executeStage(ctx, run, spec); err != nil {
				return run, err
			}
			return run, nil
		}
	}
	return run, fmt.Errorf("no stage for step %s", step)
}

// Status returns the persisted run and its artifacts.
func (p *Pipeline) Status(ctx context.Context, runID string) (*runs.Run, []runs.Artifact, error) {
	run, err := p.store.GetByID(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	artifacts, err := p.store.ArtifactsForRun(ctx, runID)
	if err != nil {
		return run, nil, err
	}
	return run, artifacts, nil
}

// SweepTemp removes run workdirs older than the configured retention window
// and fails runs whose heartbeat went silent over the same period.
func (p *Pipeline) SweepTemp(ctx context.Context) (int, error) {
	retention := time.Duration(p.cfg.Workflow.TempRetentionHours) * time.Hour
	if retention <= 0 {
		return 0, nil
	}
	if _, err := p.store.FailStale(ctx, time.Now().Add(-retention)); err != nil {
		return 0, err
	}
	return fileutil.SweepStale(p.cfg.Paths.WorkDir, retention)
}

func (p *Pipeline) runStages(ctx context.Context, run *runs.Run, start int) error {
	for _, spec := range p.stageSpecs()[start:] {
		if err := p.executeStage(ctx, run, spec); err != nil {
			return err
		}
	}
	return nil
}
