package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadSmallFileWhole(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.rs")
	content := "fn main() {\n    println!(\"hi\");\n}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewReader(nil)
	if got := r.Read(path); got != content {
		t.Errorf("got %q, want full content", got)
	}
}

func TestReadLargeFileSamplesFirstLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.rs")

	// Each line is ~1 KiB so the file comfortably exceeds MaxFileBytes.
	line := strings.Repeat("a", 1024)
	var sb strings.Builder
	for i := 0; i < 250; i++ {
		fmt.Fprintf(&sb, "line%04d %s\n", i, line)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewReader(nil)
	got := r.Read(path)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != MaxContextLines {
		t.Fatalf("got %d lines, want %d", len(lines), MaxContextLines)
	}
	if !strings.HasPrefix(lines[0], "line0000") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[MaxContextLines-1], fmt.Sprintf("line%04d", MaxContextLines-1)) {
		t.Errorf("last sampled line = %q", lines[MaxContextLines-1])
	}
}

func TestReadMissingFileYieldsEmpty(t *testing.T) {
	r := NewReader(nil)
	if got := r.Read(filepath.Join(t.TempDir(), "missing.rs")); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
