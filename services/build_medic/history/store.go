// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/AleutianAI/BuildMedic/services/build_medic/loop"
	"github.com/dgraph-io/badger/v4"
)

// ErrRunNotFound indicates no run exists under the given ID.
var ErrRunNotFound = errors.New("run not found")

// RunRecord summarizes one remediation run.
type RunRecord struct {
	ID          string    `json:"id"`
	ProjectDir  string    `json:"project_dir"`
	Model       string    `json:"model"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
	AttemptsRun int       `json:"attempts_run"`
}

// AttemptRecord is one persisted compile cycle of a run.
type AttemptRecord struct {
	RunID      string       `json:"run_id"`
	Attempt    loop.Attempt `json:"attempt"`
	RecordedAt time.Time    `json:"recorded_at"`
}

// Key layout:
//
//	run/<id>                 -> RunRecord
//	run/<id>/attempt/<NNN>   -> AttemptRecord (NNN zero-padded, 1-based)
const (
	runKeyPrefix = "run/"
)

func runKey(id string) []byte {
	return []byte(runKeyPrefix + id)
}

func attemptKey(runID string, index int) []byte {
	return []byte(fmt.Sprintf("%s%s/attempt/%03d", runKeyPrefix, runID, index))
}

func attemptPrefix(runID string) []byte {
	return []byte(runKeyPrefix + runID + "/attempt/")
}

// Store persists runs and their attempts.
//
// Store implements loop.AttemptObserver, so a loop wired with it records
// every compile cycle as it happens.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	db     *DB
	logger *slog.Logger
}

// NewStore creates a store over an open history database.
func NewStore(db *DB, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, errors.New("db must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}, nil
}

// PutRun inserts or replaces a run record.
func (s *Store) PutRun(ctx context.Context, rec RunRecord) error {
	if rec.ID == "" {
		return errors.New("run ID must not be empty")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", rec.ID, err)
	}
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(runKey(rec.ID), data)
	})
}

// GetRun fetches one run record.
func (s *Store) GetRun(ctx context.Context, id string) (RunRecord, error) {
	var rec RunRecord
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	return rec, err
}

// ListRuns returns all run records, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	var runs []RunRecord
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(runKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			// Attempt keys share the run/ prefix; only top-level run
			// records are two path segments long.
			if countByte(item.Key(), '/') != 1 {
				continue
			}
			var rec RunRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			runs = append(runs, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

// Attempts returns a run's attempt records in cycle order.
func (s *Store) Attempts(ctx context.Context, runID string) ([]AttemptRecord, error) {
	var attempts []AttemptRecord
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = attemptPrefix(runID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec AttemptRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			attempts = append(attempts, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

// ObserveAttempt implements loop.AttemptObserver. Persistence failures
// are logged, never surfaced, so a storage hiccup cannot stall a run.
func (s *Store) ObserveAttempt(ctx context.Context, runID string, attempt loop.Attempt) {
	rec := AttemptRecord{
		RunID:      runID,
		Attempt:    attempt,
		RecordedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		s.logger.Warn("failed to marshal attempt record",
			"run_id", runID, "attempt", attempt.Index, "error", err)
		return
	}
	err = s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(attemptKey(runID, attempt.Index), data)
	})
	if err != nil {
		s.logger.Warn("failed to persist attempt record",
			"run_id", runID, "attempt", attempt.Index, "error", err)
	}
}

func countByte(b []byte, c byte) int {
	n := 0
	for _, x := range b {
		if x == c {
			n++
		}
	}
	return n
}

var _ loop.AttemptObserver = (*Store)(nil)
