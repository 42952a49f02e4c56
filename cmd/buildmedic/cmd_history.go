// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/AleutianAI/BuildMedic/pkg/ux"
	"github.com/AleutianAI/BuildMedic/services/build_medic/history"
	"github.com/spf13/cobra"
)

// withHistoryStore opens the run-history store for a CLI command.
func withHistoryStore(fn func(ctx context.Context, store *history.Store)) {
	logger := newLogger("cli")
	defer logger.Close()

	db, err := history.OpenDB(history.DefaultConfig(historyPath()))
	if err != nil {
		ux.Error(fmt.Sprintf("open run history: %v", err))
		os.Exit(1)
	}
	defer db.Close()

	store, err := history.NewStore(db, logger.Slog())
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
	fn(context.Background(), store)
}

// runHistoryList prints past runs, newest first.
func runHistoryList(cmd *cobra.Command, args []string) {
	withHistoryStore(func(ctx context.Context, store *history.Store) {
		runs, err := store.ListRuns(ctx)
		if err != nil {
			ux.Error(err.Error())
			os.Exit(1)
		}
		if len(runs) == 0 {
			ux.Muted("No remediation runs recorded yet.")
			return
		}

		ux.Title("Remediation Runs")
		for _, r := range runs {
			outcome := r.Outcome
			if outcome == "" {
				outcome = "incomplete"
			}
			ux.Info(fmt.Sprintf("%s  %s  %-10s  %d attempt(s)  %s",
				r.ID, r.StartedAt.Format("2006-01-02 15:04:05"),
				outcome, r.AttemptsRun, r.ProjectDir))
		}
	})
}

// runHistoryShow prints one run with its attempt trail.
func runHistoryShow(cmd *cobra.Command, args []string) {
	runID := args[0]
	withHistoryStore(func(ctx context.Context, store *history.Store) {
		run, err := store.GetRun(ctx, runID)
		if err != nil {
			ux.Error(err.Error())
			os.Exit(1)
		}
		attempts, err := store.Attempts(ctx, runID)
		if err != nil {
			ux.Error(err.Error())
			os.Exit(1)
		}

		ux.Title("Run " + run.ID)
		ux.Info(fmt.Sprintf("Project: %s", run.ProjectDir))
		ux.Info(fmt.Sprintf("Model: %s", run.Model))
		ux.Info(fmt.Sprintf("Started: %s", run.StartedAt.Format("2006-01-02 15:04:05")))
		if !run.FinishedAt.IsZero() {
			ux.Info(fmt.Sprintf("Finished: %s  (%s)",
				run.FinishedAt.Format("2006-01-02 15:04:05"), run.Outcome))
		}

		for _, a := range attempts {
			if a.Attempt.Patched {
				ux.Success(fmt.Sprintf("Attempt %d: patched %s",
					a.Attempt.Index, a.Attempt.PatchedFile))
			} else {
				ux.Info(fmt.Sprintf("Attempt %d: %s, %d diagnostic(s)",
					a.Attempt.Index, a.Attempt.Outcome, len(a.Attempt.Diagnostics)))
			}
		}
	})
}
