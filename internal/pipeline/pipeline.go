package pipeline

import (
	"context"
	"log/slog"
	"time"

	"revoice/internal/config"
	"revoice/internal/diarize"
	"revoice/internal/logging"
	"revoice/internal/media/ffmpeg"
	"revoice/internal/media/ffprobe"
	"revoice/internal/runs"
	"revoice/internal/services"
	"revoice/internal/stitch"
	"revoice/internal/transcribe"
	"revoice/internal/voice"
)

// MediaTool is the ffmpeg surface the pipeline drives. It is a superset of
// stitch.MediaTool so one fake covers both in tests.
type MediaTool interface {
	ExtractAudio(ctx context.Context, source string, format ffmpeg.AudioFormat, dest string) error
	Slice(ctx context.Context, source string, start, end float64, dest string) error
	Concat(ctx context.Context, chunks []string, dest string) error
	TranscodeToCanonicalWav(ctx context.Context, source, dest string) error
	Mux(ctx context.Context, video, audio, dest string) error
}

// Prober inspects a media container.
type Prober func(ctx context.Context, path string) (ffprobe.Result, error)

// Diarizer partitions an audio track into speaker segments.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string, totalDuration float64) (diarize.Result, error)
}

// Transcriber produces text for an audio clip.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, languageHint string) (transcribe.Result, error)
}

// Synthesizer clones voices and renders replacement clips.
type Synthesizer interface {
	ProviderConfigured() bool
	CloneVoice(ctx context.Context, name, samplePath string) (string, error)
	ReplaceSpeaker(ctx context.Context, voiceID string, segments []diarize.SpeakerSegment, outputDir string) (voice.ReplaceResult, error)
}

// Stitcher assembles the final audio track from segments and replacement queues.
type Stitcher interface {
	Stitch(ctx context.Context, originalAudio string, segments []diarize.SpeakerSegment, replacements map[string][]string, workDir, dest string) (stitch.Result, error)
}

// Pipeline orchestrates a run through its stages, persisting every transition.
type Pipeline struct {
	cfg    *config.Config
	store  *runs.Store
	logger *slog.Logger

	tool        MediaTool
	probe       Prober
	diarizer    Diarizer
	transcriber Transcriber
	synthesizer Synthesizer
	stitcher    Stitcher
}

// New wires a Pipeline from configuration with the production components.
func New(cfg *config.Config, store *runs.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}

	tool := ffmpeg.NewTool(cfg.FFmpegBinary())
	retry := services.RetryPolicy{
		MaxAttempts: cfg.Workflow.RetryAttempts,
		BaseDelay:   time.Duration(cfg.Workflow.RetryBaseSeconds) * time.Second,
	}
	model := diarize.NewModelProvider(cfg.Diarization.ModelCommand, cfg.Diarization.ModelScript)

	p := &Pipeline{
		cfg:    cfg,
		store:  store,
		logger: logger,
		tool:   tool,
		probe: func(ctx context.Context, path string) (ffprobe.Result, error) {
			return ffprobe.Inspect(ctx, cfg.FFprobeBinary(), path)
		},
		diarizer:    diarize.New(model, tool, cfg.Diarization, logger),
		transcriber: transcribe.NewTranscriber(transcribe.NewClient(cfg.Transcription), retry, logger),
		synthesizer: voice.NewSynthesizer(voice.NewClient(cfg.Voice), voice.NewLocalEngine(cfg.Voice.LocalEngine), retry, cfg.Voice, logger),
		stitcher:    stitch.New(tool, logger),
	}
	return p
}

// WithMediaTool replaces the ffmpeg adapter (for testing).
func (p *Pipeline) WithMediaTool(tool MediaTool) *Pipeline {
	p.tool = tool
	return p
}

// WithProber replaces the container prober (for testing).
func (p *Pipeline) WithProber(probe Prober) *Pipeline {
	p.probe = probe
	return p
}

// WithDiarizer replaces the diarizer (for testing).
func (p *Pipeline) WithDiarizer(d Diarizer) *Pipeline {
	p.diarizer = d
	return p
}

// WithTranscriber replaces the transcriber (for testing).
func (p *Pipeline) WithTranscriber(t Transcriber) *Pipeline {
	p.transcriber = t
	return p
}

// WithSynthesizer replaces the synthesizer (for testing).
func (p *Pipeline) WithSynthesizer(s Synthesizer) *Pipeline {
	p.synthesizer = s
	return p
}

// WithStitcher replaces the stitcher (for testing).
func (p *Pipeline) WithStitcher(s Stitcher) *Pipeline {
	p.stitcher = s
	return p
}

func (p *Pipeline) probeTimeout() time.Duration {
	seconds := p.cfg.Workflow.ProbeTimeoutSeconds
	if seconds <= 0 {
		seconds = 15
	}
	return time.Duration(seconds) * time.Second
}
