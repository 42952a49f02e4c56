// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"io"
	"os"
	"testing"
)

// captureStdout runs f with os.Stdout redirected to a pipe and returns
// what was written.
func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func captureStderr(t *testing.T, f func()) string {
	t.Helper()
	old := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stderr = w

	f()

	w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func withLevel(t *testing.T, level PersonalityLevel) {
	t.Helper()
	orig := GetPersonality()
	t.Cleanup(func() { SetPersonality(orig) })
	SetPersonalityLevel(level)
}

func TestIconRenderStyled(t *testing.T) {
	// Status icons carry color styling; the rendered form must still
	// contain something.
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconPending} {
		if icon.Render() == "" {
			t.Errorf("icon %q rendered empty", string(icon))
		}
	}
}

func TestIconRenderPlain(t *testing.T) {
	// Icons without dedicated styling render as themselves.
	for _, icon := range []Icon{IconArrow, IconBullet, IconAnchor, IconShip, IconWave} {
		if got := icon.Render(); got != string(icon) {
			t.Errorf("icon %q rendered as %q", string(icon), got)
		}
	}
}

func TestMachineModeFormats(t *testing.T) {
	withLevel(t, PersonalityMachine)

	cases := []struct {
		name   string
		stderr bool
		emit   func()
		want   string
	}{
		{"success", false, func() { Success("build is clean") }, "OK: build is clean\n"},
		{"warning", true, func() { Warning("patch skipped") }, "WARN: patch skipped\n"},
		{"error", true, func() { Error("compiler missing") }, "ERROR: compiler missing\n"},
		{"info", false, func() { Info("attempt 2 of 5") }, "attempt 2 of 5\n"},
		{"box", false, func() { Box("Run", "3 attempts") }, "Run: 3 attempts\n"},
		{"warning box", true, func() { WarningBox("Budget", "errors remain") }, "WARN Budget: errors remain\n"},
		{"summary", false, func() { Summary(4, 1, 5) }, "SUMMARY: approved=4 skipped=1 total=5\n"},
	}
	for _, tc := range cases {
		var got string
		if tc.stderr {
			got = captureStderr(t, tc.emit)
		} else {
			got = captureStdout(t, tc.emit)
		}
		if got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestMachineModeSuppressesDecoration(t *testing.T) {
	withLevel(t, PersonalityMachine)

	if got := captureStdout(t, func() { Title("Build Medic") }); got != "" {
		t.Errorf("Title in machine mode: %q", got)
	}
	if got := captureStdout(t, func() { Muted("backup session created") }); got != "" {
		t.Errorf("Muted in machine mode: %q", got)
	}
}

func TestFullModeProducesOutput(t *testing.T) {
	withLevel(t, PersonalityFull)

	emitters := map[string]func(){
		"title":       func() { Title("Build Medic") },
		"success":     func() { Success("build is clean") },
		"warning":     func() { Warning("patch skipped") },
		"error":       func() { Error("compiler missing") },
		"info":        func() { Info("attempt 2 of 5") },
		"muted":       func() { Muted("backup session created") },
		"box":         func() { Box("Run", "3 attempts") },
		"warning box": func() { WarningBox("Budget", "errors remain") },
		"summary":     func() { Summary(4, 1, 5) },
	}
	for name, emit := range emitters {
		if got := captureStdout(t, emit); got == "" {
			t.Errorf("%s: expected styled output in full mode", name)
		}
	}
}

func TestFileStatusMachineMode(t *testing.T) {
	withLevel(t, PersonalityMachine)

	got := captureStdout(t, func() {
		FileStatus("src/main.rs", IconSuccess, "patched")
	})
	if got != "✓\tsrc/main.rs\tpatched\n" {
		t.Errorf("got %q, want tab-separated status line", got)
	}
}

func TestFileStatusFullMode(t *testing.T) {
	withLevel(t, PersonalityFull)

	with := captureStdout(t, func() { FileStatus("src/main.rs", IconWarning, "no fix applied") })
	without := captureStdout(t, func() { FileStatus("src/main.rs", IconSuccess, "") })
	if with == "" || without == "" {
		t.Error("expected styled output with and without a reason")
	}
}

func TestProgressBar(t *testing.T) {
	withLevel(t, PersonalityMachine)
	if got := ProgressBar(2, 5, 20); got != "2/5" {
		t.Errorf("machine mode: got %q, want 2/5", got)
	}

	withLevel(t, PersonalityFull)
	for _, current := range []int{0, 2, 5} {
		if ProgressBar(current, 5, 20) == "" {
			t.Errorf("full mode: empty bar at %d/5", current)
		}
	}
}

func TestRepeatChar(t *testing.T) {
	cases := []struct {
		c    rune
		n    int
		want string
	}{
		{'X', 5, "XXXXX"},
		{'X', 0, ""},
		{'X', -3, ""},
		{'█', 3, "███"},
	}
	for _, tc := range cases {
		if got := repeatChar(tc.c, tc.n); got != tc.want {
			t.Errorf("repeatChar(%q, %d) = %q, want %q", tc.c, tc.n, got, tc.want)
		}
	}
}
