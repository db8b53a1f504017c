package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMaskSensitiveString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"short", "****"},
		{"12345678", "****"},
		{"sk-abcdef123456", "sk****56"},
	}
	for _, tt := range tests {
		if got := MaskSensitiveString(tt.in); got != tt.want {
			t.Fatalf("MaskSensitiveString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")

	if err := AtomicWriteFile(path, []byte("v1"), 0o600); err != nil {
		t.Fatalf("AtomicWriteFile() error = %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(b) != "v1" {
		t.Fatalf("content = %q", b)
	}

	// Overwrite replaces the old content completely.
	if err := AtomicWriteFile(path, []byte("second version"), 0o600); err != nil {
		t.Fatalf("AtomicWriteFile() overwrite error = %v", err)
	}
	b, _ = os.ReadFile(path)
	if string(b) != "second version" {
		t.Fatalf("content after overwrite = %q", b)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("directory has %d entries, want only the target file", len(entries))
	}
}
