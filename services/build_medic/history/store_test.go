package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AleutianAI/BuildMedic/services/build_medic/loop"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenDB(InMemoryConfig())
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestStoreRunRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := RunRecord{
		ID:          "run-a",
		ProjectDir:  "/work/proj",
		Model:       "qwen2.5-coder:7b",
		StartedAt:   time.Now().UTC().Truncate(time.Second),
		Outcome:     "success",
		AttemptsRun: 2,
	}
	if err := store.PutRun(ctx, rec); err != nil {
		t.Fatalf("PutRun: %v", err)
	}

	got, err := store.GetRun(ctx, "run-a")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.ProjectDir != rec.ProjectDir || got.Model != rec.Model || got.Outcome != rec.Outcome {
		t.Errorf("got %+v, want %+v", got, rec)
	}
}

func TestStoreGetMissingRun(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRun(context.Background(), "nope")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}

func TestStoreRejectsEmptyRunID(t *testing.T) {
	store := newTestStore(t)
	if err := store.PutRun(context.Background(), RunRecord{}); err == nil {
		t.Error("PutRun must reject an empty ID")
	}
}

func TestStoreListRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []string{"old", "mid", "new"} {
		err := store.PutRun(ctx, RunRecord{
			ID:        id,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("PutRun(%s): %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	if runs[0].ID != "new" || runs[2].ID != "old" {
		t.Errorf("order = [%s %s %s], want newest first", runs[0].ID, runs[1].ID, runs[2].ID)
	}
}

func TestStoreObserveAttemptAndRead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.PutRun(ctx, RunRecord{ID: "run-b", StartedAt: time.Now()}); err != nil {
		t.Fatalf("PutRun: %v", err)
	}

	for i := 1; i <= 3; i++ {
		store.ObserveAttempt(ctx, "run-b", loop.Attempt{
			Index:   i,
			Outcome: loop.AttemptErrorsRemain,
			Patched: i == 2,
		})
	}

	attempts, err := store.Attempts(ctx, "run-b")
	if err != nil {
		t.Fatalf("Attempts: %v", err)
	}
	if len(attempts) != 3 {
		t.Fatalf("got %d attempts, want 3", len(attempts))
	}
	for i, a := range attempts {
		if a.Attempt.Index != i+1 {
			t.Errorf("attempt %d has index %d", i, a.Attempt.Index)
		}
		if a.RunID != "run-b" {
			t.Errorf("attempt %d run ID = %q", i, a.RunID)
		}
	}
	if !attempts[1].Attempt.Patched {
		t.Error("attempt 2 should be marked patched")
	}
}

func TestStoreAttemptsDoNotLeakIntoRunList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.PutRun(ctx, RunRecord{ID: "run-c", StartedAt: time.Now()}); err != nil {
		t.Fatalf("PutRun: %v", err)
	}
	store.ObserveAttempt(ctx, "run-c", loop.Attempt{Index: 1, Outcome: loop.AttemptSuccess})

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("got %d runs, want 1 (attempt keys must be filtered)", len(runs))
	}
}
