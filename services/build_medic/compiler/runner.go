// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package compiler invokes the project build and captures its diagnostics.
package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"
)

var (
	// ErrCompilerUnavailable indicates the build subprocess could not be
	// started at all. This is distinct from a build that ran and failed.
	ErrCompilerUnavailable = errors.New("compiler could not be started")

	// ErrCompileTimeout indicates the build exceeded its time budget.
	ErrCompileTimeout = errors.New("compile timed out")
)

// Config configures the build invocation.
type Config struct {
	// Command is the build executable. Default: "cargo".
	Command string

	// Args are the build arguments.
	// Default: ["build", "--message-format=json"].
	Args []string

	// WorkingDir is the project root. Empty means the process CWD.
	WorkingDir string

	// Timeout bounds a single build invocation. Default: 10 minutes.
	Timeout time.Duration

	// MaxOutputBytes caps captured stdout+stderr. Default: 4 MiB.
	MaxOutputBytes int
}

// DefaultConfig returns the standard cargo JSON-diagnostics invocation.
func DefaultConfig() Config {
	return Config{
		Command:        "cargo",
		Args:           []string{"build", "--message-format=json"},
		Timeout:        10 * time.Minute,
		MaxOutputBytes: 4 * 1024 * 1024,
	}
}

// CompileResult holds the captured outcome of one build invocation.
type CompileResult struct {
	// Output is combined stdout+stderr, possibly truncated.
	Output string

	// ExitCode is the process exit code, -1 if it did not run to completion.
	ExitCode int

	// Duration is the wall-clock build time.
	Duration time.Duration

	// Truncated is true if output exceeded MaxOutputBytes.
	Truncated bool

	// TimedOut is true if the build hit the configured timeout.
	TimedOut bool
}

// Runner executes builds and captures their output.
//
// Thread Safety: Safe for concurrent use. Each invocation creates its own process.
type Runner struct {
	cfg    Config
	logger *slog.Logger
}

// NewRunner creates a build runner. Zero-value Config fields fall back to
// DefaultConfig values.
func NewRunner(cfg Config, logger *slog.Logger) *Runner {
	def := DefaultConfig()
	if cfg.Command == "" {
		cfg.Command = def.Command
	}
	if len(cfg.Args) == 0 {
		cfg.Args = def.Args
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = def.MaxOutputBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Compile runs one build and captures combined output.
//
// Description:
//
//	A nonzero exit code is not an error here: a failing build is the
//	normal input to diagnostic extraction. Only failure to start the
//	process (ErrCompilerUnavailable) or a timeout (ErrCompileTimeout)
//	is surfaced as an error, always alongside whatever output was
//	captured.
//
// Thread Safety: Safe for concurrent use.
func (r *Runner) Compile(ctx context.Context) (*CompileResult, error) {
	if ctx == nil {
		return nil, errors.New("nil context")
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.cfg.Command, r.cfg.Args...)
	if r.cfg.WorkingDir != "" {
		cmd.Dir = r.cfg.WorkingDir
	}

	// Capture output with size limit
	var stdout, stderr bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdout, limit: r.cfg.MaxOutputBytes}
	stderrLimited := &limitedWriter{w: &stderr, limit: r.cfg.MaxOutputBytes}
	cmd.Stdout = stdoutLimited
	cmd.Stderr = stderrLimited

	r.logger.Debug("Executing build",
		slog.String("command", r.cfg.Command),
		slog.Any("args", r.cfg.Args),
		slog.Duration("timeout", r.cfg.Timeout),
	)

	start := time.Now()
	err := cmd.Run()

	result := &CompileResult{
		Output:    stdout.String() + stderr.String(),
		Duration:  time.Since(start),
		Truncated: stdoutLimited.truncated || stderrLimited.truncated,
	}

	if ctx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		r.logger.Warn("Build timed out", slog.Duration("timeout", r.cfg.Timeout))
		return result, ErrCompileTimeout
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
			return result, fmt.Errorf("%w: %v", ErrCompilerUnavailable, err)
		}
	} else {
		result.ExitCode = 0
	}

	r.logger.Info("Build completed",
		slog.Int("exit_code", result.ExitCode),
		slog.Duration("duration", result.Duration),
		slog.Int("output_bytes", len(result.Output)),
	)

	return result, nil
}

// limitedWriter wraps a writer with a size limit.
type limitedWriter struct {
	w         io.Writer
	limit     int
	written   int
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (n int, err error) {
	origLen := len(p)
	if lw.written >= lw.limit {
		lw.truncated = true
		return origLen, nil // Silently discard
	}

	remaining := lw.limit - lw.written
	if len(p) > remaining {
		p = p[:remaining]
		lw.truncated = true
	}

	n, err = lw.w.Write(p)
	lw.written += n
	// Report the original length so exec never sees a short write; a
	// truncated capture is not a failed compile.
	return origLen, err
}
