// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package loop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/BuildMedic/services/build_medic/compiler"
	"github.com/AleutianAI/BuildMedic/services/build_medic/diagnostics"
	"github.com/AleutianAI/BuildMedic/services/build_medic/errorlog"
	"github.com/AleutianAI/BuildMedic/services/build_medic/locate"
	"github.com/AleutianAI/BuildMedic/services/build_medic/remedy"
	"github.com/AleutianAI/BuildMedic/services/build_medic/telemetry"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// DefaultMaxAttempts is the compile-cycle budget per run.
const DefaultMaxAttempts = 5

// DefaultCyclePeriod is the minimum spacing between compile cycles, so
// neither the compiler nor the completion service gets hammered.
const DefaultCyclePeriod = 1500 * time.Millisecond

// AttemptOutcome classifies one compile cycle.
type AttemptOutcome string

const (
	AttemptSuccess      AttemptOutcome = "success"
	AttemptErrorsRemain AttemptOutcome = "errors_remain"
)

// Attempt is the record of one compile cycle.
type Attempt struct {
	// Index is 1-based within the run.
	Index int `json:"index"`

	// Diagnostics are the extracted records, already capped.
	Diagnostics []diagnostics.Record `json:"diagnostics"`

	// Outcome classifies the cycle.
	Outcome AttemptOutcome `json:"outcome"`

	// Patched is true if a correction was written this cycle.
	Patched bool `json:"patched"`

	// PatchedFile is the corrected file, if any.
	PatchedFile string `json:"patched_file,omitempty"`
}

// AttemptObserver receives per-attempt records, e.g. for persistence.
// Observation is best-effort; failures must not stall the loop.
type AttemptObserver interface {
	ObserveAttempt(ctx context.Context, runID string, attempt Attempt)
}

// Config configures a loop.
type Config struct {
	// MaxAttempts is the compile-cycle budget. Default: DefaultMaxAttempts.
	MaxAttempts int

	// CyclePeriod paces consecutive compile cycles. Default:
	// DefaultCyclePeriod.
	CyclePeriod time.Duration
}

// Deps are the loop's collaborators. Runner, Extractor, Locator, and
// Remediator are required; ErrLog, Metrics, and Observer are optional.
type Deps struct {
	Runner     *compiler.Runner
	Extractor  *diagnostics.Extractor
	Locator    *locate.Locator
	Remediator *remedy.Remediator
	ErrLog     *errorlog.Log
	Metrics    *telemetry.Metrics
	Observer   AttemptObserver
	Logger     *slog.Logger
}

// Loop is the remediation orchestrator.
//
// The loop exclusively owns the retry counter, the error log handle, and
// the backup session (held inside the remediator) for its lifetime. It
// is strictly sequential: one compile, one diagnostic batch, at most one
// applied patch per cycle.
//
// Thread Safety: A Loop instance drives one run at a time; Run must not
// be invoked concurrently on the same instance.
type Loop struct {
	cfg     Config
	deps    Deps
	sm      *StateMachine
	limiter *rate.Limiter
	logger  *slog.Logger

	runID    string
	state    State
	attempts []Attempt
}

// New creates a loop.
func New(cfg Config, deps Deps) (*Loop, error) {
	if deps.Runner == nil || deps.Extractor == nil || deps.Locator == nil || deps.Remediator == nil {
		return nil, errors.New("runner, extractor, locator, and remediator are required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.CyclePeriod <= 0 {
		cfg.CyclePeriod = DefaultCyclePeriod
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		cfg:     cfg,
		deps:    deps,
		sm:      NewStateMachine(),
		limiter: rate.NewLimiter(rate.Every(cfg.CyclePeriod), 1),
		logger:  logger,
		runID:   uuid.NewString(),
		state:   StateIdle,
	}, nil
}

// RunID returns the unique identifier of this run.
func (l *Loop) RunID() string {
	return l.runID
}

// State returns the current loop state.
func (l *Loop) State() State {
	return l.state
}

// Attempts returns the attempts recorded so far.
func (l *Loop) Attempts() []Attempt {
	out := make([]Attempt, len(l.attempts))
	copy(out, l.attempts)
	return out
}

// Close releases the error log. Call exactly once, after Run returns.
func (l *Loop) Close() error {
	if l.deps.ErrLog != nil {
		return l.deps.ErrLog.Close()
	}
	return nil
}

// Run drives compile cycles until success, exhaustion, or fatal failure.
//
// Description:
//
//	Each cycle compiles, extracts at most three diagnostics, and walks
//	them in order: resolve a file, attempt a fix, and on the first
//	applied patch abandon the rest of the cycle so a fresh compile can
//	re-derive line numbers. An inability to start the compiler is fatal
//	rather than being mistaken for a clean build.
func (l *Loop) Run(ctx context.Context) (Outcome, error) {
	l.logger.Info("starting automatic remediation",
		"run_id", l.runID, "max_attempts", l.cfg.MaxAttempts)

	for attempt := 1; attempt <= l.cfg.MaxAttempts; attempt++ {
		if err := l.limiter.Wait(ctx); err != nil {
			l.advance(StateFatal)
			return OutcomeFatal, fmt.Errorf("run cancelled: %w", err)
		}
		l.logger.Info("compile cycle", "attempt", attempt, "of", l.cfg.MaxAttempts)

		if err := l.advance(StateCompiling); err != nil {
			return OutcomeFatal, err
		}
		l.deps.Metrics.IncCompileCycle()
		res, err := l.deps.Runner.Compile(ctx)
		if err != nil {
			if errors.Is(err, compiler.ErrCompilerUnavailable) {
				l.advance(StateFatal)
				return OutcomeFatal, err
			}
			// A timed-out build still produced whatever output was
			// captured before the deadline; extraction decides.
			l.logger.Warn("compile did not complete cleanly", "error", err)
		}
		if res == nil {
			l.advance(StateFatal)
			return OutcomeFatal, fmt.Errorf("compile produced no result: %w", err)
		}
		l.deps.Metrics.ObserveCompile(res.Duration)

		if err := l.advance(StateExtracting); err != nil {
			return OutcomeFatal, err
		}
		records := l.deps.Extractor.Extract(res.Output)
		l.deps.Metrics.AddDiagnostics(len(records))

		if len(records) == 0 {
			l.advance(StateComplete)
			l.record(ctx, Attempt{Index: attempt, Outcome: AttemptSuccess})
			l.logger.Info("build is clean", "run_id", l.runID, "attempts", attempt)
			return OutcomeSuccess, nil
		}

		l.logger.Warn("errors found", "count", len(records))
		l.logErrors(attempt, records)

		if err := l.advance(StateRemediating); err != nil {
			return OutcomeFatal, err
		}
		patched, patchedFile := l.remediateCycle(ctx, records)

		l.record(ctx, Attempt{
			Index:       attempt,
			Diagnostics: records,
			Outcome:     AttemptErrorsRemain,
			Patched:     patched,
			PatchedFile: patchedFile,
		})

		if err := l.advance(StatePacing); err != nil {
			return OutcomeFatal, err
		}
	}

	l.advance(StateExhausted)
	l.logger.Warn("attempt budget exhausted",
		"run_id", l.runID,
		"hint", "inspect the error log, try a different model, or fix manually")
	return OutcomeExhausted, nil
}

// remediateCycle walks the cycle's diagnostics in extraction order and
// stops at the first applied patch.
func (l *Loop) remediateCycle(ctx context.Context, records []diagnostics.Record) (bool, string) {
	for _, rec := range records {
		preview := rec.Text
		if len(preview) > 120 {
			preview = preview[:120]
		}
		l.logger.Info("analyzing error", "text", preview)

		candidate := rec.File
		if candidate == "" {
			if found, ok := l.deps.Locator.Locate(rec.Text); ok {
				candidate = found
			}
		}
		if candidate == "" {
			l.logger.Warn("no file could be associated with diagnostic")
			continue
		}

		path, ok := l.deps.Locator.ResolveExisting(candidate)
		if !ok {
			l.logger.Warn("file not found", "candidate", candidate)
			continue
		}

		l.logger.Info("file identified", "path", path)
		result := l.deps.Remediator.Remediate(ctx, path, rec.Text)
		if result.Changed {
			// One correction can shift line numbers and invalidate the
			// remaining diagnostics; recompile before fixing more.
			return true, path
		}
	}
	return false, ""
}

// logErrors writes the per-attempt diagnostic summary to the error log.
func (l *Loop) logErrors(attempt int, records []diagnostics.Record) {
	if l.deps.ErrLog == nil {
		return
	}
	summary, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		l.logger.Warn("failed to marshal diagnostic summary", "error", err)
		return
	}
	if err := l.deps.ErrLog.Printf("ATTEMPT %d ERRORS:\n%s\n\n", attempt, summary); err != nil {
		l.logger.Warn("failed to write attempt summary", "error", err)
	}
}

// record stores the attempt and forwards it to the observer.
func (l *Loop) record(ctx context.Context, attempt Attempt) {
	l.attempts = append(l.attempts, attempt)
	if l.deps.Observer != nil {
		l.deps.Observer.ObserveAttempt(ctx, l.runID, attempt)
	}
}

// advance transitions the loop state, logging invalid transitions.
func (l *Loop) advance(to State) error {
	next, err := l.sm.Transition(l.state, to)
	if err != nil {
		l.logger.Error("state machine violation",
			"from", string(l.state), "to", string(to), "error", err)
		return err
	}
	l.state = next
	return nil
}
