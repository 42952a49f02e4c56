package loop

import (
	"errors"
	"testing"
)

func TestStateMachineHappyPath(t *testing.T) {
	sm := NewStateMachine()

	path := []State{
		StateIdle, StateCompiling, StateExtracting, StateRemediating,
		StatePacing, StateCompiling, StateExtracting, StateComplete,
	}
	for i := 0; i < len(path)-1; i++ {
		if !sm.CanTransition(path[i], path[i+1]) {
			t.Errorf("transition %s -> %s should be valid", path[i], path[i+1])
		}
	}
}

func TestStateMachineExhaustionPath(t *testing.T) {
	sm := NewStateMachine()
	if !sm.CanTransition(StatePacing, StateExhausted) {
		t.Error("PACING -> EXHAUSTED should be valid")
	}
}

func TestStateMachineFatalFromAnywhere(t *testing.T) {
	sm := NewStateMachine()
	for _, state := range AllStates() {
		if state.IsTerminal() {
			if sm.CanTransition(state, StateFatal) {
				t.Errorf("terminal state %s must not transition to FATAL", state)
			}
			continue
		}
		if !sm.CanTransition(state, StateFatal) {
			t.Errorf("%s -> FATAL should be valid", state)
		}
	}
}

func TestStateMachineRejectsInvalid(t *testing.T) {
	sm := NewStateMachine()

	invalid := [][2]State{
		{StateIdle, StateExtracting},
		{StateCompiling, StateRemediating},
		{StateComplete, StateCompiling},
		{StateExhausted, StateCompiling},
		{StateRemediating, StateComplete},
	}
	for _, pair := range invalid {
		if sm.CanTransition(pair[0], pair[1]) {
			t.Errorf("transition %s -> %s should be invalid", pair[0], pair[1])
		}
		if _, err := sm.Transition(pair[0], pair[1]); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Transition(%s, %s) err = %v, want ErrInvalidTransition", pair[0], pair[1], err)
		}
	}
}

func TestOutcomeExitCodes(t *testing.T) {
	cases := map[Outcome]int{
		OutcomeSuccess:   0,
		OutcomeExhausted: 2,
		OutcomeFatal:     1,
	}
	for outcome, want := range cases {
		if got := outcome.ExitCode(); got != want {
			t.Errorf("%s exit code = %d, want %d", outcome, got, want)
		}
	}
}
