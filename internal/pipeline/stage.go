package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"revoice/internal/fileutil"
	"revoice/internal/logging"
	"revoice/internal/runs"
	"revoice/internal/services"
)

const (
	eventStageStart    = "stage_start"
	eventStageComplete = "stage_complete"
	eventStageFailure  = "stage_failure"
)

// stageFunc does one stage's work. It may update run progress fields; the
// executor persists the run after it returns.
type stageFunc func(ctx context.Context, run *runs.Run, st *State, workDir string) error

type stageSpec struct {
	step    runs.Step
	percent float64
	message string
	fn      stageFunc
}

func (p *Pipeline) stageSpecs() []stageSpec {
	return []stageSpec{
		{runs.StepExtracting, 10, "extracting audio track", p.stageExtract},
		{runs.StepDiarizing, 25, "partitioning speakers", p.stageDiarize},
		{runs.StepTranscribing, 45, "transcribing segments", p.stageTranscribe},
		{runs.StepSynthesizing, 65, "synthesizing replacement clips", p.stageSynthesize},
		{runs.StepStitching, 80, "stitching final track", p.stageStitch},
		{runs.StepMuxing, 90, "muxing output video", p.stageMux},
	}
}

// executeStage moves the run into the stage's step, loads the persisted state,
// runs the stage, and persists both state and run. Stage errors mark the run
// failed; persistence errors are returned as-is since the run's stored step no
// longer reflects reality.
func (p *Pipeline) executeStage(ctx context.Context, run *runs.Run, spec stageSpec) error {
	ctx = services.WithRunID(ctx, run.ID)
	ctx = services.WithStage(ctx, string(spec.step))
	logger := logging.WithContext(ctx, p.logger)

	workDir, err := fileutil.RunWorkdir(p.cfg.Paths.WorkDir, run.ID)
	if err != nil {
		return p.failRun(ctx, run, logger, spec.step, err)
	}

	run.Step = spec.step
	run.SetProgress(spec.message, spec.percent)
	now := time.Now().UTC()
	run.LastHeartbeat = &now
	if err := p.store.Update(ctx, run); err != nil {
		return err
	}
	logger.Info("stage started", logging.String(logging.FieldEventType, eventStageStart))

	st, err := LoadState(workDir)
	if err != nil {
		return p.failRun(ctx, run, logger, spec.step, err)
	}
	if err := spec.fn(ctx, run, st, workDir); err != nil {
		return p.failRun(ctx, run, logger, spec.step, err)
	}
	if err := st.Save(workDir); err != nil {
		return p.failRun(ctx, run, logger, spec.step, err)
	}
	if err := p.store.Update(ctx, run); err != nil {
		return err
	}
	logger.Info("stage completed", logging.String(logging.FieldEventType, eventStageComplete))
	return nil
}

// failRun records a stage failure on the run and as an error artifact. The
// persistence context is detached so a cancelled run still lands in the store
// as failed rather than stuck mid-step.
func (p *Pipeline) failRun(ctx context.Context, run *runs.Run, logger *slog.Logger, step runs.Step, stageErr error) error {
	logger.Error("stage failed",
		logging.String(logging.FieldEventType, eventStageFailure),
		logging.Error(stageErr))

	run.SetFailed(services.Details(stageErr))
	persistCtx := context.WithoutCancel(ctx)
	if err := p.store.Update(persistCtx, run); err != nil {
		logger.Error("failed to persist run failure", logging.Error(err))
	}
	metadata, _ := json.Marshal(map[string]string{
		"stage": string(step),
		"error": services.Details(stageErr),
	})
	if err := p.store.AddArtifact(persistCtx, run.ID, runs.ArtifactError, "", string(metadata)); err != nil {
		logger.Error("failed to record failure artifact", logging.Error(err))
	}
	return stageErr
}
