package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"revoice/internal/config"
	"revoice/internal/services"
)

const (
	stageName = "synthesizing"

	defaultCloneTimeout = 60 * time.Second
	defaultSynthTimeout = 120 * time.Second
)

// Client talks to an ElevenLabs-style voice provider. Clone and Synthesize
// are independent network calls with mandatory per-call timeouts; the
// provider may stall.
type Client struct {
	cfg        config.Voice
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a voice provider client. Per-call deadlines come from
// the configured clone/synth timeouts, not from the HTTP client itself.
func NewClient(cfg config.Voice, opts ...Option) *Client {
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Configured reports whether a provider credential is present.
func (c *Client) Configured() bool {
	return c != nil && strings.TrimSpace(c.cfg.APIKey) != ""
}

func (c *Client) cloneTimeout() time.Duration {
	if c.cfg.CloneTimeoutSeconds > 0 {
		return time.Duration(c.cfg.CloneTimeoutSeconds) * time.Second
	}
	return defaultCloneTimeout
}

func (c *Client) synthTimeout() time.Duration {
	if c.cfg.SynthTimeoutSeconds > 0 {
		return time.Duration(c.cfg.SynthTimeoutSeconds) * time.Second
	}
	return defaultSynthTimeout
}

// Clone registers a voice from the sample at samplePath and returns the
// provider's voice id. A provider-side rejection of the sample surfaces as
// ErrProviderRejected so callers never mistake it for a synthesis failure.
func (c *Client) Clone(ctx context.Context, name, samplePath string) (string, error) {
	if !c.Configured() {
		return "", services.Wrap(services.ErrProviderUnavailable, stageName, "clone", "api key not configured", nil)
	}
	if name == "" {
		return "", services.Wrap(services.ErrInputInvalid, stageName, "clone", "voice name required", nil)
	}

	sample, err := os.Open(samplePath)
	if err != nil {
		return "", services.Wrap(services.ErrInputInvalid, stageName, "clone", "open voice sample", err)
	}
	defer sample.Close()

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	if err := writer.WriteField("name", name); err != nil {
		return "", services.Wrap(services.ErrProviderUnavailable, stageName, "clone", "build multipart body", err)
	}
	part, err := writer.CreateFormFile("files", filepath.Base(samplePath))
	if err != nil {
		return "", services.Wrap(services.ErrProviderUnavailable, stageName, "clone", "build multipart body", err)
	}
	if _, err := io.Copy(part, sample); err != nil {
		return "", services.Wrap(services.ErrInputInvalid, stageName, "clone", "read voice sample", err)
	}
	if err := writer.Close(); err != nil {
		return "", services.Wrap(services.ErrProviderUnavailable, stageName, "clone", "build multipart body", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cloneTimeout())
	defer cancel()

	endpoint := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/voices/add"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, buf)
	if err != nil {
		return "", services.Wrap(services.ErrProviderUnavailable, stageName, "clone", "build request", err)
	}
	req.Header.Set("xi-api-key", strings.TrimSpace(c.cfg.APIKey))
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError("clone", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrProviderUnavailable, stageName, "clone", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus("clone", resp.StatusCode, payload)
	}

	var decoded struct {
		VoiceID string `json:"voice_id"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", services.Wrap(services.ErrProviderUnavailable, stageName, "clone", "decode response", err)
	}
	if decoded.VoiceID == "" {
		return "", services.Wrap(services.ErrProviderRejected, stageName, "clone", "provider returned no voice id", nil)
	}
	return decoded.VoiceID, nil
}

// Synthesize renders text in the cloned voice and returns the raw audio
// bytes (MP3). dialogue selects the lower-stability setting tuned for
// conversational turns.
func (c *Client) Synthesize(ctx context.Context, voiceID, text string, dialogue bool) ([]byte, error) {
	if !c.Configured() {
		return nil, services.Wrap(services.ErrProviderUnavailable, stageName, "synthesize", "api key not configured", nil)
	}
	if voiceID == "" {
		return nil, services.Wrap(services.ErrInputInvalid, stageName, "synthesize", "voice id required", nil)
	}
	if strings.TrimSpace(text) == "" {
		return nil, services.Wrap(services.ErrInputInvalid, stageName, "synthesize", "text required", nil)
	}

	stability := c.cfg.Stability
	if dialogue {
		stability = c.cfg.DialogueStability
	}
	body := map[string]any{
		"text":     text,
		"model_id": c.cfg.ModelID,
		"voice_settings": map[string]any{
			"stability":         stability,
			"similarity_boost":  c.cfg.SimilarityBoost,
			"style":             c.cfg.Style,
			"use_speaker_boost": true,
		},
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, services.Wrap(services.ErrProviderUnavailable, stageName, "synthesize", "encode body", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.synthTimeout())
	defer cancel()

	endpoint := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/text-to-speech/" + url.PathEscape(voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrProviderUnavailable, stageName, "synthesize", "build request", err)
	}
	req.Header.Set("xi-api-key", strings.TrimSpace(c.cfg.APIKey))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError("synthesize", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrProviderUnavailable, stageName, "synthesize", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus("synthesize", resp.StatusCode, payload)
	}
	if len(payload) == 0 {
		return nil, services.Wrap(services.ErrProviderUnavailable, stageName, "synthesize", "provider returned empty audio", nil)
	}
	return payload, nil
}

func classifyTransportError(op string, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return services.Wrap(services.ErrTimeout, stageName, op, "request timed out", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, stageName, op, "request timed out", err)
	}
	return services.Wrap(services.ErrProviderUnavailable, stageName, op, "http error", err)
}

func classifyStatus(op string, status int, body []byte) error {
	detail := fmt.Sprintf("http %d: %s", status, summarizeBody(body))
	switch {
	case status == http.StatusRequestTimeout:
		return services.Wrap(services.ErrTimeout, stageName, op, detail, nil)
	case status == http.StatusTooManyRequests,
		status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		status >= http.StatusInternalServerError:
		return services.Wrap(services.ErrProviderUnavailable, stageName, op, detail, nil)
	default:
		return services.Wrap(services.ErrProviderRejected, stageName, op, detail, nil)
	}
}

func summarizeBody(body []byte) string {
	trimmed := strings.Join(strings.Fields(string(body)), " ")
	const limit = 160
	if len(trimmed) > limit {
		return trimmed[:limit] + "..."
	}
	if trimmed == "" {
		return "<empty>"
	}
	return trimmed
}
