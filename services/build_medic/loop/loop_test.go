package loop

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/BuildMedic/services/build_medic/backup"
	"github.com/AleutianAI/BuildMedic/services/build_medic/compiler"
	"github.com/AleutianAI/BuildMedic/services/build_medic/diagnostics"
	"github.com/AleutianAI/BuildMedic/services/build_medic/locate"
	"github.com/AleutianAI/BuildMedic/services/build_medic/remedy"
	"github.com/AleutianAI/BuildMedic/services/build_medic/source"
	"github.com/AleutianAI/BuildMedic/services/llm"
)

const testDiagnostic = `{"reason":"compiler-message","message":{"level":"error","message":"cannot find value` + "`broken`" + `","rendered":"error[E0425]: cannot find value\n --> src/main.rs:1:13\n","spans":[{"file_name":"src/main.rs"}]}}`

// attemptCollector records observed attempts for assertions.
type attemptCollector struct {
	mu       sync.Mutex
	attempts []Attempt
}

func (c *attemptCollector) ObserveAttempt(_ context.Context, _ string, a Attempt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts = append(c.attempts, a)
}

// testProject builds a fake cargo project whose "compiler" is a shell
// script: it counts invocations and emits the canned diagnostic until the
// source file contains the word "fixed".
func testProject(t *testing.T) (dir string) {
	t.Helper()
	dir = t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "src", "main.rs"),
		[]byte("fn main() { broken }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "diag.json"),
		[]byte(testDiagnostic+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func newTestLoop(t *testing.T, dir string, client llm.LLMClient, observer AttemptObserver) *Loop {
	t.Helper()

	runner := compiler.NewRunner(compiler.Config{
		Command:    "sh",
		Args:       []string{"-c", `echo run >> compiles.count; if ! grep -q fixed src/main.rs; then cat diag.json; fi`},
		WorkingDir: dir,
	}, nil)

	backups, err := backup.NewManager(filepath.Join(dir, "backups"), nil)
	if err != nil {
		t.Fatal(err)
	}
	remediator := remedy.NewRemediator(client, backups, source.NewReader(nil),
		remedy.Config{}, nil, nil)

	l, err := New(Config{CyclePeriod: time.Millisecond}, Deps{
		Runner:     runner,
		Extractor:  diagnostics.NewExtractor(nil, nil),
		Locator:    locate.NewLocator(dir, nil, nil),
		Remediator: remediator,
		Observer:   observer,
	})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func compileCount(t *testing.T, dir string) int {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "compiles.count"))
	if err != nil {
		if os.IsNotExist(err) {
			return 0
		}
		t.Fatal(err)
	}
	return strings.Count(string(data), "run")
}

func TestLoopCleanBuildFirstCycle(t *testing.T) {
	dir := testProject(t)
	// Pre-fix the source so the first compile is clean.
	if err := os.WriteFile(filepath.Join(dir, "src", "main.rs"),
		[]byte("fn main() { fixed }\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	mock := &llm.MockClient{}
	collector := &attemptCollector{}
	l := newTestLoop(t, dir, mock, collector)

	outcome, err := l.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != OutcomeSuccess {
		t.Errorf("outcome = %s, want success", outcome)
	}
	if got := compileCount(t, dir); got != 1 {
		t.Errorf("compile count = %d, want 1", got)
	}
	if len(mock.Calls()) != 0 {
		t.Error("remediation must not be invoked on a clean build")
	}
	if l.State() != StateComplete {
		t.Errorf("state = %s, want COMPLETE", l.State())
	}
}

func TestLoopFixOnFirstCycle(t *testing.T) {
	dir := testProject(t)
	mock := &llm.MockClient{Responses: []string{"```rust\nfn main() { fixed }\n```"}}
	collector := &attemptCollector{}
	l := newTestLoop(t, dir, mock, collector)

	outcome, err := l.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != OutcomeSuccess {
		t.Fatalf("outcome = %s, want success", outcome)
	}
	// Cycle 1 finds the error and patches; cycle 2 is clean.
	if got := compileCount(t, dir); got != 2 {
		t.Errorf("compile count = %d, want 2", got)
	}
	if len(mock.Calls()) != 1 {
		t.Errorf("remediation calls = %d, want 1", len(mock.Calls()))
	}

	if len(collector.attempts) != 2 {
		t.Fatalf("observed %d attempts, want 2", len(collector.attempts))
	}
	first, second := collector.attempts[0], collector.attempts[1]
	if first.Outcome != AttemptErrorsRemain || !first.Patched {
		t.Errorf("attempt 1 = %+v", first)
	}
	if !strings.HasSuffix(first.PatchedFile, filepath.Join("src", "main.rs")) {
		t.Errorf("patched file = %q", first.PatchedFile)
	}
	if second.Outcome != AttemptSuccess {
		t.Errorf("attempt 2 = %+v", second)
	}
}

func TestLoopExhaustionOnPersistentNoOp(t *testing.T) {
	dir := testProject(t)
	// The model always echoes the original code: no progress ever.
	mock := &llm.MockClient{Responses: []string{"```rust\nfn main() { broken }\n```"}}
	collector := &attemptCollector{}
	l := newTestLoop(t, dir, mock, collector)

	outcome, err := l.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != OutcomeExhausted {
		t.Fatalf("outcome = %s, want exhausted", outcome)
	}
	if got := compileCount(t, dir); got != DefaultMaxAttempts {
		t.Errorf("compile count = %d, want %d", got, DefaultMaxAttempts)
	}
	if got := len(mock.Calls()); got != DefaultMaxAttempts {
		t.Errorf("remediation calls = %d, want %d", got, DefaultMaxAttempts)
	}
	if len(collector.attempts) != DefaultMaxAttempts {
		t.Errorf("observed %d attempts, want %d", len(collector.attempts), DefaultMaxAttempts)
	}
	for _, a := range collector.attempts {
		if a.Outcome != AttemptErrorsRemain || a.Patched {
			t.Errorf("attempt = %+v, want unpatched errors_remain", a)
		}
	}
	if l.State() != StateExhausted {
		t.Errorf("state = %s, want EXHAUSTED", l.State())
	}
}

func TestLoopCompilerUnavailableIsFatal(t *testing.T) {
	dir := testProject(t)

	runner := compiler.NewRunner(compiler.Config{
		Command:    "definitely-not-a-real-compiler-binary",
		WorkingDir: dir,
	}, nil)
	backups, err := backup.NewManager(filepath.Join(dir, "backups"), nil)
	if err != nil {
		t.Fatal(err)
	}
	remediator := remedy.NewRemediator(&llm.MockClient{}, backups, source.NewReader(nil),
		remedy.Config{}, nil, nil)

	l, err := New(Config{CyclePeriod: time.Millisecond}, Deps{
		Runner:     runner,
		Extractor:  diagnostics.NewExtractor(nil, nil),
		Locator:    locate.NewLocator(dir, nil, nil),
		Remediator: remediator,
	})
	if err != nil {
		t.Fatal(err)
	}

	outcome, err := l.Run(context.Background())
	if outcome != OutcomeFatal {
		t.Errorf("outcome = %s, want fatal", outcome)
	}
	if err == nil {
		t.Error("expected an error for unavailable compiler")
	}
	if l.State() != StateFatal {
		t.Errorf("state = %s, want FATAL", l.State())
	}
}

func TestLoopSkipsUnresolvableDiagnostics(t *testing.T) {
	dir := testProject(t)
	// The diagnostic names a file that does not exist anywhere.
	missing := strings.ReplaceAll(testDiagnostic, "src/main.rs", "src/ghost.rs")
	if err := os.WriteFile(filepath.Join(dir, "diag.json"), []byte(missing+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	os.Remove(filepath.Join(dir, "src", "main.rs"))
	if err := os.WriteFile(filepath.Join(dir, "src", "other.rs"), []byte("fn f() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	mock := &llm.MockClient{Responses: []string{"```rust\nwhatever\n```"}}
	l := newTestLoop(t, dir, mock, nil)

	// grep target src/main.rs is gone, so adjust the compile script's
	// success condition: it will keep emitting the diagnostic.
	outcome, err := l.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != OutcomeExhausted {
		t.Errorf("outcome = %s, want exhausted", outcome)
	}
	if len(mock.Calls()) != 0 {
		t.Error("unresolvable diagnostics must be skipped without remediation")
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Config{}, Deps{}); err == nil {
		t.Error("New must reject missing collaborators")
	}
}
