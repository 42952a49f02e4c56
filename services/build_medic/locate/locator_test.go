package locate

import (
	"os"
	"path/filepath"
	"testing"
)

// writeFile creates a file (and parent dirs) under dir.
func writeFile(t *testing.T, dir, rel string) string {
	t.Helper()
	full := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte("fn main() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return full
}

func TestLocateArrowPattern(t *testing.T) {
	dir := t.TempDir()
	want := writeFile(t, dir, "src/main.rs")

	l := NewLocator(dir, nil, nil)
	got, ok := l.Locate("error[E0308]: mismatched types\n --> src/main.rs:4:20")
	if !ok {
		t.Fatal("expected a match")
	}
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLocateGenericArrowPattern(t *testing.T) {
	dir := t.TempDir()
	want := writeFile(t, dir, "lib/helper.rs")

	l := NewLocator(dir, nil, nil)
	got, ok := l.Locate(" --> lib/helper.rs:10:5")
	if !ok || got != want {
		t.Errorf("got %q ok=%v, want %q", got, ok, want)
	}
}

func TestLocateNoMatchNeverGuesses(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/main.rs")

	l := NewLocator(dir, nil, nil)
	if got, ok := l.Locate("error: aborting due to previous error"); ok {
		t.Errorf("expected no match, got %q", got)
	}
}

func TestLocateRebasesUnderRoots(t *testing.T) {
	dir := t.TempDir()
	// The diagnostic names a bare file that actually lives under crates/.
	want := writeFile(t, dir, filepath.Join("crates", "parser.rs"))

	l := NewLocator(dir, nil, nil)
	got, ok := l.Locate(" --> parser.rs:42:7")
	if !ok || got != want {
		t.Errorf("got %q ok=%v, want %q", got, ok, want)
	}
}

func TestLocateRustcInternalDropsExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, filepath.Join("crates", "parser.rs"))

	// The rustc-internal pattern captures the path without its ".rs"
	// suffix, so the candidate never matches an on-disk file.
	l := NewLocator(dir, nil, nil)
	if got, ok := l.Locate("/rustc/abc123/parser.rs:42: internal note"); ok {
		t.Errorf("expected no resolution, got %q", got)
	}
}

func TestLocateFirstPatternWins(t *testing.T) {
	dir := t.TempDir()
	srcMain := writeFile(t, dir, "src/main.rs")
	writeFile(t, dir, "other.rs")

	// Each diagnostic on its own line: the src/-anchored pattern matches
	// the first and must win over the generic pattern on the second.
	l := NewLocator(dir, nil, nil)
	got, ok := l.Locate(" --> src/main.rs:1:1\n --> other.rs:2:2")
	if !ok || got != srcMain {
		t.Errorf("got %q ok=%v, want %q", got, ok, srcMain)
	}
}

func TestResolveExistingOrder(t *testing.T) {
	dir := t.TempDir()
	underSrc := writeFile(t, dir, filepath.Join("src", "widget.rs"))
	writeFile(t, dir, filepath.Join("crates", "widget.rs"))

	l := NewLocator(dir, nil, nil)
	// Raw candidate does not exist; src/<base> is tried before crates/<base>.
	got, ok := l.ResolveExisting(filepath.Join("deep", "nested", "widget.rs"))
	if !ok || got != underSrc {
		t.Errorf("got %q ok=%v, want %q", got, ok, underSrc)
	}
}

func TestResolveExistingRaw(t *testing.T) {
	dir := t.TempDir()
	want := writeFile(t, dir, filepath.Join("src", "main.rs"))

	l := NewLocator(dir, nil, nil)
	got, ok := l.ResolveExisting(filepath.Join("src", "main.rs"))
	if !ok || got != want {
		t.Errorf("got %q ok=%v, want %q", got, ok, want)
	}

	if _, ok := l.ResolveExisting(""); ok {
		t.Error("empty candidate must not resolve")
	}
	if _, ok := l.ResolveExisting("missing.rs"); ok {
		t.Error("nonexistent candidate must not resolve")
	}
}
