package installer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckerValidateSupportedPlatform(t *testing.T) {
	t.Parallel()

	checker := NewChecker()
	checker.goos = func() string { return "linux" }

	if err := checker.Validate(filepath.Join(t.TempDir(), "bin")); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestCheckerUnsupportedOS(t *testing.T) {
	t.Parallel()

	checker := NewChecker()
	checker.goos = func() string { return "plan9" }

	if err := checker.Validate(t.TempDir()); err == nil {
		t.Fatal("expected error for unsupported os")
	}
}

func TestCheckerInvalidDirectory(t *testing.T) {
	t.Parallel()

	filePath := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(filePath, []byte("content"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	checker := NewChecker()
	checker.goos = func() string { return "windows" }

	if err := checker.Validate(filePath); err == nil {
		t.Fatal("expected error due to invalid directory")
	}
}

func TestCheckerLeavesNoProbeFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	checker := NewChecker()
	checker.goos = func() string { return "darwin" }

	if err := checker.Validate(dir); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty dir, found %d entries", len(entries))
	}
}
