package transcribe

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
	"revoice/internal/language"
	"revoice/internal/services"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	responseFormat     = "verbose_json"
	stageName          = "transcribing"
)

// Source identifies where a transcript came from.
type Source string

const (
	// SourceProvider marks text returned by the speech-to-text provider.
	SourceProvider Source = "provider"
	// SourceCanned marks deterministic fallback text used when the provider
	// path is unavailable.
	SourceCanned Source = "canned"
)

// Segment is one timed span of provider output.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is a completed transcription.
type Result struct {
	Text            string
	DurationSeconds float64
	Language        string
	Segments        []Segment
	Source          Source
}

// Client talks to a Whisper-compatible transcription endpoint.
type Client struct {
	cfg        config.Transcription
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

// NewClient constructs a transcription client from configuration.
func NewClient(cfg config.Transcription, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
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

// Transcribe uploads the audio at audioPath and returns the provider's
// transcript. languageHint, when non-empty, is normalized to ISO-639-1 before
// being forwarded.
func (c *Client) Transcribe(ctx context.Context, audioPath, languageHint string) (Result, error) {
	var result Result
	if audioPath == "" {
		return result, services.Wrap(services.ErrInputInvalid, stageName, "transcribe", "audio path required", nil)
	}
	if !c.Configured() {
		return result, services.Wrap(services.ErrProviderUnavailable, stageName, "transcribe", "api key not configured", nil)
	}

	body, contentType, err := c.buildRequestBody(audioPath, languageHint)
	if err != nil {
		return result, err
	}

	endpoint := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return result, services.Wrap(services.ErrProviderUnavailable, stageName, "transcribe", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.cfg.APIKey))
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return result, classifyTransportError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, services.Wrap(services.ErrProviderUnavailable, stageName, "transcribe", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return result, classifyStatus(resp.StatusCode, payload)
	}

	var decoded struct {
		Text     string    `json:"text"`
		Duration float64   `json:"duration"`
		Language string    `json:"language"`
		Segments []Segment `json:"segments"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return result, services.Wrap(services.ErrProviderUnavailable, stageName, "transcribe", "decode response", err)
	}
	if strings.TrimSpace(decoded.Text) == "" {
		return result, services.Wrap(services.ErrProviderUnavailable, stageName, "transcribe", "provider returned empty transcript", nil)
	}

	result = Result{
		Text:            strings.TrimSpace(decoded.Text),
		DurationSeconds: decoded.Duration,
		Language:        decoded.Language,
		Segments:        decoded.Segments,
		Source:          SourceProvider,
	}
	return result, nil
}

func (c *Client) buildRequestBody(audioPath, languageHint string) (*bytes.Buffer, string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, "", services.Wrap(services.ErrInputInvalid, stageName, "transcribe", "open audio", err)
	}
	defer file.Close()

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", services.Wrap(services.ErrProviderUnavailable, stageName, "transcribe", "build multipart body", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", services.Wrap(services.ErrInputInvalid, stageName, "transcribe", "read audio", err)
	}
	fields := map[string]string{
		"model":           c.cfg.Model,
		"response_format": responseFormat,
	}
	if lang := language.ToISO2(languageHint); lang != "" {
		fields["language"] = lang
	}
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", services.Wrap(services.ErrProviderUnavailable, stageName, "transcribe", "build multipart body", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", services.Wrap(services.ErrProviderUnavailable, stageName, "transcribe", "build multipart body", err)
	}
	return buf, writer.FormDataContentType(), nil
}

func classifyTransportError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return services.Wrap(services.ErrTimeout, stageName, "transcribe", "request timed out", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, stageName, "transcribe", "request timed out", err)
	}
	return services.Wrap(services.ErrProviderUnavailable, stageName, "transcribe", "http error", err)
}

func classifyStatus(status int, body []byte) error {
	detail := fmt.Sprintf("http %d: %s", status, summarizeBody(body))
	switch {
	case status == http.StatusRequestTimeout:
		return services.Wrap(services.ErrTimeout, stageName, "transcribe", detail, nil)
	case status == http.StatusTooManyRequests,
		status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		status >= http.StatusInternalServerError:
		return services.Wrap(services.ErrProviderUnavailable, stageName, "transcribe", detail, nil)
	default:
		return services.Wrap(services.ErrProviderRejected, stageName, "transcribe", detail, nil)
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
