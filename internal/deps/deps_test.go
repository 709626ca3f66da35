package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinariesMissing(t *testing.T) {
	statuses := CheckBinaries([]Requirement{
		{Name: "Nonexistent", Command: "definitely-not-a-real-binary-12345"},
		{Name: "Unconfigured", Command: ""},
	})
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Available {
		t.Fatal("expected missing binary to be unavailable")
	}
	if statuses[1].Detail != "command not configured" {
		t.Fatalf("unexpected detail %q", statuses[1].Detail)
	}
}

func TestCheckScript(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "diarize.py")
	if err := os.WriteFile(script, []byte("print('ok')"), 0o644); err != nil {
		t.Fatal(err)
	}

	status := CheckScript("Diarization model", script, "neural diarization")
	if !status.Available {
		t.Fatalf("expected script to be available: %s", status.Detail)
	}

	status = CheckScript("Diarization model", filepath.Join(dir, "missing.py"), "")
	if status.Available {
		t.Fatal("expected missing script to be unavailable")
	}

	status = CheckScript("Diarization model", "", "")
	if status.Detail != "script not configured" {
		t.Fatalf("unexpected detail %q", status.Detail)
	}
}
