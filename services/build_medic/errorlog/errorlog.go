// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package errorlog maintains the append-only plain-text error log.
//
// The log is owned exclusively by the remediation loop for its lifetime:
// opened once at construction and released deterministically via Close,
// not implicitly at process exit.
package errorlog

import (
	"fmt"
	"os"
	"sync"
)

// DefaultPath is the default error log file name in the working directory.
const DefaultPath = "ai_fixer_errors.log"

// Log is an append-only text log. It implements io.Writer so it can serve
// as the raw-output sink for diagnostic extraction.
//
// Thread Safety: Safe for concurrent use.
type Log struct {
	mu sync.Mutex
	f  *os.File
}

// Open opens (or creates) the log in append mode.
func Open(path string) (*Log, error) {
	if path == "" {
		path = DefaultPath
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open error log %s: %w", path, err)
	}
	return &Log{f: f}, nil
}

// Write appends raw bytes.
func (l *Log) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return 0, os.ErrClosed
	}
	return l.f.Write(p)
}

// Printf appends a formatted entry.
func (l *Log) Printf(format string, args ...any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return os.ErrClosed
	}
	_, err := fmt.Fprintf(l.f, format, args...)
	return err
}

// Close syncs and closes the log. Safe to call more than once.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
