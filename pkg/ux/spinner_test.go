// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"testing"
	"time"
)

func TestNewSpinnerDefaults(t *testing.T) {
	spin := NewSpinner("Compiling and remediating...")
	if spin.message != "Compiling and remediating..." {
		t.Errorf("message = %q", spin.message)
	}
	if spin.spinType != SpinnerDots {
		t.Errorf("spin type = %v, want SpinnerDots", spin.spinType)
	}
	if spin.stop == nil || spin.done == nil {
		t.Error("control channels should be initialized")
	}
}

func TestSpinnerWithType(t *testing.T) {
	spin := NewSpinner("waiting").WithType(SpinnerPulse)
	if spin.spinType != SpinnerPulse {
		t.Errorf("spin type = %v, want SpinnerPulse", spin.spinType)
	}
}

func TestSpinnerMachineModePrintsOnce(t *testing.T) {
	withLevel(t, PersonalityMachine)

	spin := NewSpinner("Compiling attempt 1")
	output := captureStdout(t, func() {
		spin.Start()
		spin.Stop()
	})
	if output != "PROGRESS: Compiling attempt 1\n" {
		t.Errorf("output = %q, want single PROGRESS line", output)
	}
}

func TestSpinnerStartStopIdempotent(t *testing.T) {
	withLevel(t, PersonalityMachine)

	spin := NewSpinner("waiting")
	spin.Stop() // not running yet
	spin.Start()
	spin.Start() // second start is a no-op
	spin.Stop()
	spin.Stop() // already stopped
}

func TestSpinnerFullModeStartStop(t *testing.T) {
	withLevel(t, PersonalityFull)

	spin := NewSpinner("waiting")
	output := captureStdout(t, func() {
		spin.Start()
		time.Sleep(150 * time.Millisecond)
		spin.Stop()
	})
	if output == "" {
		t.Error("expected animation frames in full mode")
	}
}

func TestSpinnerUpdateMessage(t *testing.T) {
	withLevel(t, PersonalityMachine)

	spin := NewSpinner("compiling")
	spin.Start()
	spin.UpdateMessage("remediating")
	if spin.message != "remediating" {
		t.Errorf("message = %q, want remediating", spin.message)
	}
	spin.Stop()
}

func TestSpinnerFramesDefined(t *testing.T) {
	for _, st := range []SpinnerType{SpinnerDots, SpinnerPulse} {
		if len(spinnerFrames[st]) == 0 {
			t.Errorf("spinner type %d has no frames", st)
		}
	}
}
