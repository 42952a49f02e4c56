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
	"os/signal"
	"syscall"

	"github.com/AleutianAI/BuildMedic/pkg/ux"
	"github.com/AleutianAI/BuildMedic/services/build_medic"
	"github.com/AleutianAI/BuildMedic/services/build_medic/loop"
	"github.com/spf13/cobra"
)

// runFix executes one remediation loop and exits with the outcome's
// code: 0 clean, 2 budget exhausted, 1 fatal.
func runFix(cmd *cobra.Command, args []string) {
	logger := newLogger("cli")
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

	ux.Title("Build Medic")
	ux.Info(fmt.Sprintf("Project: %s", config.Project.Dir))
	ux.Info(fmt.Sprintf("Model: %s (%s)", config.Model.Name, config.Model.Backend))

	spin := ux.NewSpinner("Compiling and remediating...")
	spin.Start()
	report, err := svc.RunFix(ctx, "")
	spin.Stop()
	if err != nil && report == nil {
		ux.Error(err.Error())
		os.Exit(1)
	}

	printReport(report)
	if err != nil {
		ux.Error(err.Error())
	}
	os.Exit(report.Outcome.ExitCode())
}

// printReport renders the per-attempt trail and final outcome.
func printReport(report *build_medic.RunReport) {
	for _, a := range report.Attempts {
		switch {
		case a.Outcome == loop.AttemptSuccess:
			ux.Success(fmt.Sprintf("Attempt %d: build is clean", a.Index))
		case a.Patched:
			ux.Warning(fmt.Sprintf("Attempt %d: %d error(s), patched %s",
				a.Index, len(a.Diagnostics), a.PatchedFile))
		default:
			ux.Warning(fmt.Sprintf("Attempt %d: %d error(s), no patch applied",
				a.Index, len(a.Diagnostics)))
		}
	}

	switch report.Outcome {
	case loop.OutcomeSuccess:
		ux.Success(fmt.Sprintf("Remediation succeeded (run %s)", report.RunID))
	case loop.OutcomeExhausted:
		ux.WarningBox("Attempt budget exhausted",
			"Errors remain. Inspect "+orDefault(config.Project.ErrorLog, "ai_fixer_errors.log")+
				", try a different model, or fix manually.")
	default:
		ux.Error(fmt.Sprintf("Remediation failed (run %s)", report.RunID))
	}
}
