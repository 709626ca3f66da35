package voice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"revoice/internal/config"
	"revoice/internal/services"
)

func testRetryPolicy() services.RetryPolicy {
	return services.RetryPolicy{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
		Sleeper:     func(time.Duration) {},
	}
}

// fakeLocalEngine writes a small WAV-ish file so callers see non-empty audio.
func fakeLocalEngine() *LocalEngine {
	return NewLocalEngine("espeak-ng").WithRunner(func(ctx context.Context, name string, args ...string) error {
		// args are: -w <dest> <text>
		if len(args) < 3 || args[0] != "-w" {
			return os.ErrInvalid
		}
		return os.WriteFile(args[1], []byte("RIFF local audio"), 0o644)
	})
}

func TestSynthesizeWithoutCredentialUsesLocalEngine(t *testing.T) {
	cfg := config.Default().Voice
	synth := NewSynthesizer(NewClient(cfg), fakeLocalEngine(), testRetryPolicy(), cfg, nil)

	result, err := synth.Synthesize(context.Background(), Request{
		Text:      "hello world",
		OutputDir: t.TempDir(),
		BaseName:  "clip",
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if result.Quality != QualityStandard {
		t.Fatalf("expected standard quality, got %q", result.Quality)
	}
	info, err := os.Stat(result.AudioPath)
	if err != nil {
		t.Fatalf("stat clip: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("clip must be non-empty")
	}
	if !strings.HasSuffix(result.AudioPath, ".wav") {
		t.Fatalf("expected wav output, got %s", result.AudioPath)
	}
}

func TestSynthesizePremiumPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mp3 bytes"))
	}))
	defer server.Close()

	cfg := config.Default().Voice
	cfg.APIKey = "test-key"
	cfg.BaseURL = server.URL
	synth := NewSynthesizer(NewClient(cfg), fakeLocalEngine(), testRetryPolicy(), cfg, nil)

	result, err := synth.Synthesize(context.Background(), Request{
		Text:      "hello world",
		VoiceID:   "voice-123",
		OutputDir: t.TempDir(),
		BaseName:  "clip",
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if result.Quality != QualityCloned {
		t.Fatalf("expected cloned quality, got %q", result.Quality)
	}
	if result.VoiceID != "voice-123" {
		t.Fatalf("unexpected voice id %q", result.VoiceID)
	}
	data, err := os.ReadFile(result.AudioPath)
	if err != nil {
		t.Fatalf("read clip: %v", err)
	}
	if string(data) != "mp3 bytes" {
		t.Fatalf("unexpected clip contents %q", data)
	}
}

func TestSynthesizeProviderFailureFallsBackToLocal(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := config.Default().Voice
	cfg.APIKey = "test-key"
	cfg.BaseURL = server.URL
	synth := NewSynthesizer(NewClient(cfg), fakeLocalEngine(), testRetryPolicy(), cfg, nil)

	result, err := synth.Synthesize(context.Background(), Request{
		Text:      "hello world",
		VoiceID:   "voice-123",
		OutputDir: t.TempDir(),
		BaseName:  "clip",
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if result.Quality != QualityStandard {
		t.Fatalf("expected local fallback, got %q", result.Quality)
	}
	if calls != 2 {
		t.Fatalf("expected 2 provider attempts, got %d", calls)
	}
}

func TestSynthesizeEmptyTextUsesPlaceholder(t *testing.T) {
	var spoken string
	local := NewLocalEngine("espeak-ng").WithRunner(func(ctx context.Context, name string, args ...string) error {
		spoken = args[2]
		return os.WriteFile(args[1], []byte("RIFF"), 0o644)
	})
	cfg := config.Default().Voice
	synth := NewSynthesizer(NewClient(cfg), local, testRetryPolicy(), cfg, nil)

	if _, err := synth.Synthesize(context.Background(), Request{
		OutputDir: t.TempDir(),
		BaseName:  "clip",
	}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if spoken != placeholderText {
		t.Fatalf("expected placeholder text, got %q", spoken)
	}
}

func TestCloneVoiceWithoutCredentialFailsDistinctly(t *testing.T) {
	cfg := config.Default().Voice
	synth := NewSynthesizer(NewClient(cfg), fakeLocalEngine(), testRetryPolicy(), cfg, nil)

	sample := filepath.Join(t.TempDir(), "sample.wav")
	if err := os.WriteFile(sample, []byte("voice"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := synth.CloneVoice(context.Background(), "speaker_0", sample); err == nil {
		t.Fatal("expected clone failure without credential")
	}
}
