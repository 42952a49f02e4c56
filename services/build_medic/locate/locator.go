// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package locate resolves a diagnostic text to an existing source file.
package locate

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
)

// patterns are tried in declared order; the first match wins. The order is
// a tie-break policy, not an incidental detail: earlier patterns anchor on
// more specific markers.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`--> (src/.+\.rs)`),
	regexp.MustCompile(`at (src/.+\.rs:\d+)`),
	regexp.MustCompile(`in (crates/.+\.rs)`),
	regexp.MustCompile(`--> (.+\.rs):\d+:\d+`),
	regexp.MustCompile(`/rustc/[^/]+/(.+)\.rs:\d+`),
	regexp.MustCompile(`(?m)^ *\|\n *\d+ \| (.*\.rs)`),
	regexp.MustCompile(`error\[E\d+\] in (.+\.rs)`),
}

// DefaultRoots are the conventional source-root directories a captured
// candidate is rebased under when it does not exist verbatim.
var DefaultRoots = []string{"src", "crates"}

// Locator resolves diagnostic text to existing file paths.
//
// Thread Safety: Safe for concurrent use after creation.
type Locator struct {
	baseDir string
	roots   []string
	logger  *slog.Logger
}

// NewLocator creates a locator.
//
// Inputs:
//
//	baseDir - Directory candidate paths are resolved against.
//	          Empty means the process CWD.
//	roots - Source-root directories for rebasing. Nil uses DefaultRoots.
func NewLocator(baseDir string, roots []string, logger *slog.Logger) *Locator {
	if len(roots) == 0 {
		roots = DefaultRoots
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{baseDir: baseDir, roots: roots, logger: logger}
}

// Locate extracts a path-like fragment from diagnostic text and resolves
// it to an existing file.
//
// Description:
//
//	Applies the ordered pattern list; for the first captured candidate,
//	tries it verbatim and then rebased under each source root, returning
//	the first variant that exists on disk. No match, or no existing
//	variant, returns ("", false) - the locator never guesses.
func (l *Locator) Locate(text string) (string, bool) {
	for _, pattern := range patterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		candidate := match[1]
		variants := make([]string, 0, 1+len(l.roots))
		variants = append(variants, candidate)
		for _, root := range l.roots {
			variants = append(variants, filepath.Join(root, candidate))
		}
		for _, variant := range variants {
			if full, ok := l.resolve(variant); ok {
				l.logger.Debug("resolved diagnostic to file",
					"candidate", candidate, "path", full)
				return full, true
			}
		}
		// First matching pattern wins even when nothing exists; later
		// patterns are not consulted to reconcile the miss.
		return "", false
	}
	return "", false
}

// ResolveExisting applies the extended fallback search used once a
// candidate path is already in hand (from structured output or Locate).
//
// Description:
//
//	Tries, in order: the raw candidate, its base name under each root,
//	then the full candidate under each root. Returns the first existing
//	variant.
func (l *Locator) ResolveExisting(candidate string) (string, bool) {
	if candidate == "" {
		return "", false
	}
	base := filepath.Base(candidate)
	variants := []string{candidate}
	for _, root := range l.roots {
		variants = append(variants, filepath.Join(root, base))
	}
	for _, root := range l.roots {
		variants = append(variants, filepath.Join(root, candidate))
	}
	for _, variant := range variants {
		if full, ok := l.resolve(variant); ok {
			return full, true
		}
	}
	return "", false
}

// resolve joins a relative variant with the base directory and reports
// whether the result exists. The returned path is usable by callers
// regardless of their working directory.
func (l *Locator) resolve(path string) (string, bool) {
	full := path
	if l.baseDir != "" && !filepath.IsAbs(path) {
		full = filepath.Join(l.baseDir, path)
	}
	if _, err := os.Stat(full); err != nil {
		return "", false
	}
	return full, true
}
