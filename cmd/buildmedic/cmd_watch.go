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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AleutianAI/BuildMedic/pkg/ux"
	"github.com/AleutianAI/BuildMedic/services/build_medic"
	"github.com/AleutianAI/BuildMedic/services/build_medic/watch"
	"github.com/spf13/cobra"
)

// runWatch keeps a watcher on the project and remediates after each
// debounced batch of source changes.
func runWatch(cmd *cobra.Command, args []string) {
	logger := newLogger("watcher")
	defer logger.Close()

	db, store, err := openHistory(logger)
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	svc, err := newService(logger, store, nil)
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler := func(changed []string) {
		ux.Info(fmt.Sprintf("%d source file(s) changed, remediating", len(changed)))
		report, err := svc.RunFix(ctx, "")
		if errors.Is(err, build_medic.ErrFixInProgress) {
			// The change batch that arrived mid-run will be rebuilt by
			// the next trigger; nothing is lost.
			logger.Info("remediation already running, skipping trigger")
			return
		}
		if err != nil {
			ux.Error(err.Error())
			return
		}
		printReport(report)
	}

	opts := watch.DefaultOptions()
	if watchDebounceSec > 0 {
		opts.DebounceWindow = time.Duration(watchDebounceSec) * time.Second
	}
	watcher, err := watch.New(config.Project.Dir, handler, &opts, logger.Slog())
	if err != nil {
		ux.Error(fmt.Sprintf("failed to create the watcher: %v", err))
		os.Exit(1)
	}
	defer watcher.Stop()

	if err := watcher.Start(ctx); err != nil {
		ux.Error(fmt.Sprintf("failed to start watching: %v", err))
		os.Exit(1)
	}

	ux.Title("Build Medic Watch")
	ux.Info(fmt.Sprintf("Watching %s for source changes. Ctrl+C to stop.",
		config.Project.Dir))

	<-ctx.Done()
	ux.Muted("Stopping watcher.")
}
