package transcribe

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFingerprintIsStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.wav")
	if err := os.WriteFile(path, []byte("sample bytes"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	first, err := Fingerprint(path)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	second, err := Fingerprint(path)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if first != second {
		t.Fatal("fingerprint not deterministic")
	}
	if len(first) != 64 {
		t.Fatalf("expected hex sha256, got %q", first)
	}
}

func TestCannedResultUsesRegisteredTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known.wav")
	if err := os.WriteFile(path, []byte("known sample asset"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	fingerprint, err := Fingerprint(path)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	RegisterCanned(fingerprint, "Welcome to the demo recording.")

	result := CannedResult(path, "")
	if result.Text != "Welcome to the demo recording." {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if result.Source != SourceCanned {
		t.Fatalf("unexpected source %s", result.Source)
	}
}

func TestCannedResultFallsBackToFiller(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unknown.wav")
	if err := os.WriteFile(path, []byte("never registered"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	result := CannedResult(path, "French")
	if result.Text != fillerText {
		t.Fatalf("expected filler text, got %q", result.Text)
	}
	if result.Language != "fr" {
		t.Fatalf("expected normalized language, got %q", result.Language)
	}
}

func TestCannedResultUnreadableFileStillSucceeds(t *testing.T) {
	result := CannedResult(filepath.Join(t.TempDir(), "missing.wav"), "")
	if result.Text != fillerText {
		t.Fatal("expected filler text for unreadable input")
	}
	if result.Language != "en" {
		t.Fatalf("expected default language, got %q", result.Language)
	}
}
