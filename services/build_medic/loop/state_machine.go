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
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidTransition indicates a disallowed state transition.
var ErrInvalidTransition = errors.New("invalid state transition")

// StateMachine manages valid transitions for the remediation loop.
//
// The state machine enforces the following transition graph:
//
//	IDLE → COMPILING             : First compile of the run
//	COMPILING → EXTRACTING       : Build output captured
//	EXTRACTING → COMPLETE        : No diagnostics, build is clean
//	EXTRACTING → REMEDIATING     : Diagnostics present
//	REMEDIATING → PACING         : Cycle's fix attempts finished
//	PACING → COMPILING           : Budget remains, recompile
//	PACING → EXHAUSTED           : Budget spent with errors remaining
//	* → FATAL                    : Any state on unrecoverable failure
//
// Thread Safety:
//
//	StateMachine is safe for concurrent use.
type StateMachine struct {
	mu sync.RWMutex

	// transitions maps (from, to) pairs that are valid.
	transitions map[State]map[State]bool
}

// NewStateMachine creates a state machine with all valid transitions.
func NewStateMachine() *StateMachine {
	sm := &StateMachine{
		transitions: make(map[State]map[State]bool),
	}

	for _, state := range AllStates() {
		sm.transitions[state] = make(map[State]bool)
	}

	sm.addTransition(StateIdle, StateCompiling)

	sm.addTransition(StateCompiling, StateExtracting)

	sm.addTransition(StateExtracting, StateComplete)
	sm.addTransition(StateExtracting, StateRemediating)

	sm.addTransition(StateRemediating, StatePacing)

	sm.addTransition(StatePacing, StateCompiling)
	sm.addTransition(StatePacing, StateExhausted)

	// Any non-terminal state can fail hard.
	for _, state := range AllStates() {
		if !state.IsTerminal() {
			sm.addTransition(state, StateFatal)
		}
	}

	return sm
}

// addTransition registers a valid transition.
func (sm *StateMachine) addTransition(from, to State) {
	sm.transitions[from][to] = true
}

// CanTransition checks if a transition from one state to another is valid.
//
// Thread Safety: This method is safe for concurrent use.
func (sm *StateMachine) CanTransition(from, to State) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if toMap, ok := sm.transitions[from]; ok {
		return toMap[to]
	}
	return false
}

// Transition validates and returns the target state.
//
// Outputs:
//
//	error - ErrInvalidTransition if the transition is not allowed.
//
// Thread Safety: This method is safe for concurrent use.
func (sm *StateMachine) Transition(from, to State) (State, error) {
	if !sm.CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return to, nil
}

// ValidTransitionsFrom returns all valid target states from a given state.
func (sm *StateMachine) ValidTransitionsFrom(from State) []State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	var targets []State
	for _, state := range AllStates() {
		if sm.transitions[from][state] {
			targets = append(targets, state)
		}
	}
	return targets
}
