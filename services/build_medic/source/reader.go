// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package source produces bounded excerpts of source files for prompts.
package source

import (
	"bufio"
	"log/slog"
	"os"
	"strings"
)

const (
	// MaxFileBytes is the size above which only a sample is read.
	MaxFileBytes = 200 * 1024

	// MaxContextLines is the sample size for oversized files.
	MaxContextLines = 100
)

// Reader reads bounded file excerpts.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a reader.
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

// Read returns the file content, bounded.
//
// Description:
//
//	Files larger than MaxFileBytes yield only their first
//	MaxContextLines lines; context beyond the sample window is lost for
//	such files, by contract. Any I/O failure yields an empty string,
//	which callers treat as "no usable context" and abandon the attempt.
func (r *Reader) Read(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		r.logger.Warn("cannot stat source file", "path", path, "error", err)
		return ""
	}

	f, err := os.Open(path)
	if err != nil {
		r.logger.Warn("cannot open source file", "path", path, "error", err)
		return ""
	}
	defer f.Close()

	if info.Size() > MaxFileBytes {
		r.logger.Info("large file, reading sample", "path", path, "size", info.Size())
		var sb strings.Builder
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for i := 0; i < MaxContextLines && scanner.Scan(); i++ {
			sb.WriteString(scanner.Text())
			sb.WriteByte('\n')
		}
		if err := scanner.Err(); err != nil {
			r.logger.Warn("error sampling source file", "path", path, "error", err)
			return ""
		}
		return sb.String()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		r.logger.Warn("cannot read source file", "path", path, "error", err)
		return ""
	}
	return string(data)
}
