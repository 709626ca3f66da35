package transcribe

import (
	"context"
	"errors"
	"log/slog"

	"revoice/internal/logging"
	"revoice/internal/services"
)

// Transcriber wraps the provider client with retry and the canned-transcript
// degrade path. Provider failures after retries never surface to the caller;
// the pipeline always receives usable text.
type Transcriber struct {
	client *Client
	retry  services.RetryPolicy
	logger *slog.Logger
}

// NewTranscriber builds a Transcriber. client may be nil when no provider is
// configured, in which case every call takes the canned path.
func NewTranscriber(client *Client, retry services.RetryPolicy, logger *slog.Logger) *Transcriber {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Transcriber{client: client, retry: retry, logger: logger}
}

// Transcribe returns the provider transcript for the audio at audioPath,
// retrying transient failures, or the canned fallback once the provider path
// is exhausted. Context cancellation and invalid input are the only errors
// returned.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath, languageHint string) (Result, error) {
	if audioPath == "" {
		return Result{}, services.Wrap(services.ErrInputInvalid, stageName, "transcribe", "audio path required", nil)
	}
	if !t.client.Configured() {
		t.logger.Info("no transcription credential configured, using canned transcript")
		return CannedResult(audioPath, languageHint), nil
	}

	var result Result
	err := t.retry.Retry(ctx, func(ctx context.Context) error {
		var attemptErr error
		result, attemptErr = t.client.Transcribe(ctx, audioPath, languageHint)
		return attemptErr
	})
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	// Only unreadable local input is a hard stop. Provider-side failures of
	// any flavor, rejections included, degrade to canned text.
	if errors.Is(err, services.ErrInputInvalid) || errors.Is(err, services.ErrToolMissing) {
		return Result{}, err
	}

	t.logger.Warn("transcription provider failed, using canned transcript", logging.Error(err))
	return CannedResult(audioPath, languageHint), nil
}
