package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatcherTriggersOnSourceWrite(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var batches [][]string
	handler := func(changed []string) {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, changed)
	}

	w, err := New(dir, handler, &Options{DebounceWindow: 50 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	target := filepath.Join(dir, "src", "main.rs")
	if err := os.WriteFile(target, []byte("fn main() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for {
		mu.Lock()
		n := len(batches)
		mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("no trigger fired for source write")
		case <-time.After(20 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	found := false
	for _, batch := range batches {
		for _, p := range batch {
			if p == target {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("batches %v do not mention %s", batches, target)
	}
}

func TestWatcherIgnoresNonSourceFiles(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	fired := 0
	handler := func([]string) {
		mu.Lock()
		defer mu.Unlock()
		fired++
	}

	w, err := New(dir, handler, &Options{DebounceWindow: 50 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if fired != 0 {
		t.Errorf("trigger fired %d times for a non-source write", fired)
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var batches [][]string
	handler := func(changed []string) {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, changed)
	}

	w, err := New(dir, handler, &Options{DebounceWindow: 200 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	target := filepath.Join(dir, "lib.rs")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(target, []byte("fn f() {}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(600 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 {
		t.Errorf("burst produced %d triggers, want 1", len(batches))
	}
	if len(batches) == 1 && len(batches[0]) != 1 {
		t.Errorf("batch = %v, want the single deduplicated path", batches[0])
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	w, err := New(t.TempDir(), nil, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w.Stop()
	w.Stop()
	if w.IsWatching() {
		t.Error("watcher still reports watching after Stop")
	}
}
