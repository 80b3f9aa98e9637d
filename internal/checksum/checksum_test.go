package checksum

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileMatchesSum(t *testing.T) {
	data := []byte("---\ntitle: a\n---\n\nbody\n")
	path := filepath.Join(t.TempDir(), "a.md")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := File(path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if want := Sum(data); got != want {
		t.Errorf("File = %s, want %s", got, want)
	}
	if Sum([]byte("other")) == got {
		t.Error("different content, same digest")
	}
}

func TestFileMissing(t *testing.T) {
	if _, err := File(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("expected error for missing file")
	}
}
