package pathgate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckReadableRejectsBinary(t *testing.T) {
	g, allowed := testGate(t)
	path := filepath.Join(allowed, "data.log")
	if err := os.WriteFile(path, []byte{0x7f, 'E', 'L', 'F', 0x00, 0x01}, 0o644); err != nil {
		t.Fatal(err)
	}
	err := g.CheckReadable(path)
	requireDenied(t, err, ReasonBinary)
}

func TestCheckReadableRejectsUnknownExtension(t *testing.T) {
	g, allowed := testGate(t)
	path := filepath.Join(allowed, "core.dump")
	writeFile(t, path, "not really binary")
	err := g.CheckReadable(path)
	requireDenied(t, err, ReasonExtension)
}

func TestCheckReadableAllowsExtensionless(t *testing.T) {
	g, allowed := testGate(t)
	path := filepath.Join(allowed, "Makefile")
	writeFile(t, path, "all:\n\ttrue\n")
	if err := g.CheckReadable(path); err != nil {
		t.Fatalf("extensionless text file should be readable: %v", err)
	}
}

func TestReadFileCapsLines(t *testing.T) {
	g, allowed := testGate(t)
	path := filepath.Join(allowed, "big.log")
	writeFile(t, path, strings.Repeat("line\n", 100))

	content, err := g.ReadFile(path, Limits{MaxLines: 10}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Count(content.Text, "\n"); got != 10 {
		t.Errorf("expected 10 lines, got %d", got)
	}
	if !content.Truncated {
		t.Error("expected truncation flag")
	}
}

func TestReadFileCapsBytes(t *testing.T) {
	g, allowed := testGate(t)
	path := filepath.Join(allowed, "wide.log")
	writeFile(t, path, strings.Repeat("x", 1000)+"\n"+strings.Repeat("y", 1000)+"\n")

	content, err := g.ReadFile(path, Limits{MaxBytes: 1200}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(content.Text) > 1200 {
		t.Errorf("byte cap exceeded: %d", len(content.Text))
	}
	if !content.Truncated {
		t.Error("expected truncation flag")
	}
}

type markerRedactor struct{}

func (markerRedactor) Apply(text string) string {
	return strings.ReplaceAll(text, "hunter2", "[REDACTED]")
}

func TestReadFileAppliesRedactor(t *testing.T) {
	g, allowed := testGate(t)
	path := filepath.Join(allowed, "app.conf")
	writeFile(t, path, "db_pass = hunter2\n")

	content, err := g.ReadFile(path, Limits{}, markerRedactor{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(content.Text, "hunter2") {
		t.Error("secret leaked through redactor")
	}
}

func TestReadFileDeniedPathNeverOpened(t *testing.T) {
	g, _ := testGate(t)
	_, err := g.ReadFile("/nonexistent-root/file.txt", Limits{}, nil)
	requireDenied(t, err, ReasonOutsideAllowed)
}
