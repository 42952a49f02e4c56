// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package loop drives compile, extract, locate, fix cycles under a
// bounded retry budget.
package loop

// State is a phase of the remediation loop.
type State string

const (
	// StateIdle is the initial state before the first compile.
	StateIdle State = "IDLE"

	// StateCompiling means a build invocation is in flight.
	StateCompiling State = "COMPILING"

	// StateExtracting means build output is being parsed.
	StateExtracting State = "EXTRACTING"

	// StateRemediating means diagnostics are being fixed one by one.
	StateRemediating State = "REMEDIATING"

	// StatePacing is the inter-cycle delay before recompiling.
	StatePacing State = "PACING"

	// StateComplete is terminal: the build came back clean.
	StateComplete State = "COMPLETE"

	// StateExhausted is terminal: the attempt budget ran out.
	StateExhausted State = "EXHAUSTED"

	// StateFatal is terminal: setup failed unrecoverably, e.g. the
	// compiler could not be started.
	StateFatal State = "FATAL"
)

// AllStates returns every loop state.
func AllStates() []State {
	return []State{
		StateIdle, StateCompiling, StateExtracting, StateRemediating,
		StatePacing, StateComplete, StateExhausted, StateFatal,
	}
}

// IsTerminal reports whether the state ends the loop.
func (s State) IsTerminal() bool {
	switch s {
	case StateComplete, StateExhausted, StateFatal:
		return true
	}
	return false
}

// Outcome is the loop's overall result.
type Outcome int

const (
	// OutcomeSuccess means a cycle observed a clean build.
	OutcomeSuccess Outcome = iota

	// OutcomeExhausted means the attempt budget ran out with errors
	// remaining.
	OutcomeExhausted

	// OutcomeFatal means the loop could not run at all.
	OutcomeFatal
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ExitCode maps the outcome to a distinct process exit code.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeSuccess:
		return 0
	case OutcomeExhausted:
		return 2
	default:
		return 1
	}
}
