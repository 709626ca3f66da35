package voice

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/services"
)

// Quality tiers reported on synthesized clips.
const (
	QualityCloned   = "cloned"
	QualityStandard = "standard"
)

// placeholderText stands in for segments the transcriber left empty.
const placeholderText = "This part of the conversation was replaced."

// Request describes one synthesis job.
type Request struct {
	Text      string
	VoiceID   string
	OutputDir string
	BaseName  string
	// Dialogue selects the lower-stability provider setting tuned for
	// conversational turns.
	Dialogue bool
}

// Result is a completed synthesis.
type Result struct {
	AudioPath string
	Quality   string
	VoiceID   string
}

// Synthesizer routes synthesis jobs to the premium provider when possible and
// to the local engine otherwise. Cloning has no local fallback; a run without
// a credential simply skips cloning and synthesizes at standard quality.
type Synthesizer struct {
	client *Client
	local  *LocalEngine
	retry  services.RetryPolicy
	cfg    config.Voice
	logger *slog.Logger
}

// NewSynthesizer builds a Synthesizer. local is required; client may be nil.
func NewSynthesizer(client *Client, local *LocalEngine, retry services.RetryPolicy, cfg config.Voice, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Synthesizer{client: client, local: local, retry: retry, cfg: cfg, logger: logger}
}

// ProviderConfigured reports whether the premium path is usable at all.
func (s *Synthesizer) ProviderConfigured() bool {
	return s.client.Configured()
}

// CloneVoice registers a voice from the reference sample. Clone failures are
// reported as-is; they are never folded into later synthesis errors.
func (s *Synthesizer) CloneVoice(ctx context.Context, name, samplePath string) (string, error) {
	if !s.client.Configured() {
		return "", services.Wrap(services.ErrProviderUnavailable, stageName, "clone", "api key not configured", nil)
	}
	var voiceID string
	err := s.retry.Retry(ctx, func(ctx context.Context) error {
		var attemptErr error
		voiceID, attemptErr = s.client.Clone(ctx, name, samplePath)
		return attemptErr
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("voice cloned", logging.String("voice_id", voiceID))
	return voiceID, nil
}

// Synthesize renders the request's text. The premium path needs both a
// configured client and a voice id; anything else, including a provider
// failure after retries, lands on the local engine.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (Result, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		text = placeholderText
	}
	if req.OutputDir == "" || req.BaseName == "" {
		return Result{}, services.Wrap(services.ErrInputInvalid, stageName, "synthesize", "output location required", nil)
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrInputInvalid, stageName, "synthesize", "ensure output dir", err)
	}

	if s.client.Configured() && req.VoiceID != "" {
		var audio []byte
		err := s.retry.Retry(ctx, func(ctx context.Context) error {
			var attemptErr error
			audio, attemptErr = s.client.Synthesize(ctx, req.VoiceID, text, req.Dialogue)
			return attemptErr
		})
		if err == nil {
			dest := filepath.Join(req.OutputDir, req.BaseName+".mp3")
			if writeErr := os.WriteFile(dest, audio, 0o644); writeErr != nil {
				return Result{}, services.Wrap(services.ErrInputInvalid, stageName, "synthesize", "write clip", writeErr)
			}
			return Result{AudioPath: dest, Quality: QualityCloned, VoiceID: req.VoiceID}, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		s.logger.Warn("provider synthesis failed, using local engine", logging.Error(err))
	}

	dest := filepath.Join(req.OutputDir, req.BaseName+".wav")
	if err := s.local.Synthesize(ctx, text, dest); err != nil {
		return Result{}, err
	}
	return Result{AudioPath: dest, Quality: QualityStandard}, nil
}
