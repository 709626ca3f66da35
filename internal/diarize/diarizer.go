package diarize

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/media/ffmpeg"
)

const defaultTierTimeout = 5 * time.Minute

// SilenceDetector is the slice of the media tool the VAD fallback needs.
type SilenceDetector interface {
	DetectSilence(ctx context.Context, audio string, noiseDB, minDur float64) ([]ffmpeg.SilenceRange, error)
}

// Diarizer partitions an audio timeline into speaker-attributed segments.
// It degrades through three tiers: neural model subprocess, silence-based
// voice activity detection, then a single whole-duration segment. For any
// non-empty audio it always reports at least one speaker.
type Diarizer struct {
	model    *ModelProvider
	detector SilenceDetector
	cfg      config.Diarization
	logger   *slog.Logger
}

// New constructs a Diarizer. model may be nil when no neural model is
// configured; detector is required.
func New(model *ModelProvider, detector SilenceDetector, cfg config.Diarization, logger *slog.Logger) *Diarizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Diarizer{model: model, detector: detector, cfg: cfg, logger: logger}
}

// Diarize runs the fallback chain over the audio at audioPath. totalDuration
// is the track length in seconds, used to close open-ended silence ranges
// and to build the last-resort segment.
func (d *Diarizer) Diarize(ctx context.Context, audioPath string, totalDuration float64) (Result, error) {
	if audioPath == "" {
		return Result{}, errors.New("diarize: audio path required")
	}
	if totalDuration <= 0 {
		return Result{}, errors.New("diarize: total duration must be positive")
	}

	if d.model.Available() {
		modelCtx, cancel := context.WithTimeout(ctx, d.tierTimeout())
		result, err := d.model.Run(modelCtx, audioPath)
		cancel()
		if err == nil {
			d.logger.Info("diarization model succeeded",
				logging.Int("speakers", result.TotalSpeakers),
				logging.Int("segments", len(result.Segments)))
			return result, nil
		}
		// Caller cancellation aborts the chain; an expired tier deadline only
		// fails the tier.
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		d.logger.Warn("diarization model failed, falling back to voice activity detection",
			logging.Error(err))
	}

	if d.detector != nil {
		detectCtx, cancel := context.WithTimeout(ctx, d.tierTimeout())
		silences, err := d.detector.DetectSilence(detectCtx, audioPath, d.cfg.NoiseFloorDB, d.cfg.MinSilenceSeconds)
		cancel()
		if err == nil {
			segments := segmentsFromSilence(silences, totalDuration, d.cfg.AlternateAfterSeconds)
			if len(segments) > 0 {
				result := buildResult(segments, MethodVoiceActivity)
				d.logger.Info("voice activity diarization succeeded",
					logging.Int("speakers", result.TotalSpeakers),
					logging.Int("segments", len(result.Segments)))
				return result, nil
			}
		} else {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			d.logger.Warn("silence detection failed, falling back to single segment",
				logging.Error(err))
		}
	}

	d.logger.Info("using single-segment diarization fallback",
		logging.Float64("duration", totalDuration))
	return buildResult(singleSegment(totalDuration), MethodSingleSegment), nil
}

// tierTimeout bounds each tier so a hung model or detector cannot hold the
// stage past diarization.timeout_seconds.
func (d *Diarizer) tierTimeout() time.Duration {
	if d.cfg.TimeoutSeconds > 0 {
		return time.Duration(d.cfg.TimeoutSeconds) * time.Second
	}
	return defaultTierTimeout
}
