// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package remedy

import (
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// looksLikeUnifiedDiff reports whether a reply carries a unified diff
// instead of a fenced replacement body.
func looksLikeUnifiedDiff(reply string) bool {
	return strings.Contains(reply, "--- ") &&
		strings.Contains(reply, "+++ ") &&
		strings.Contains(reply, "@@")
}

// applyUnifiedDiff applies the first file diff in reply to original.
//
// Description:
//
//	Parses the reply with go-diff and applies its hunks sequentially.
//	Context and deletion lines must match the original exactly; any
//	mismatch aborts and reports failure so the caller can fall back to
//	treating the reply as unusable rather than writing a corrupt file.
//
// Outputs:
//
//	string - The patched content (valid only when ok is true).
//	bool - True if the diff parsed and every hunk applied cleanly.
func applyUnifiedDiff(original, reply string) (string, bool) {
	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(reply)).ReadAllFiles()
	if err != nil || len(fileDiffs) == 0 {
		return "", false
	}
	fd := fileDiffs[0]

	origLines := strings.Split(original, "\n")
	var out []string
	cursor := 0 // index into origLines

	for _, hunk := range fd.Hunks {
		start := int(hunk.OrigStartLine) - 1
		if start < 0 || start > len(origLines) || start < cursor {
			return "", false
		}
		out = append(out, origLines[cursor:start]...)
		cursor = start

		for _, bodyLine := range strings.Split(strings.TrimSuffix(string(hunk.Body), "\n"), "\n") {
			if bodyLine == "" {
				continue
			}
			marker, text := bodyLine[0], bodyLine[1:]
			switch marker {
			case ' ':
				if cursor >= len(origLines) || origLines[cursor] != text {
					return "", false
				}
				out = append(out, text)
				cursor++
			case '-':
				if cursor >= len(origLines) || origLines[cursor] != text {
					return "", false
				}
				cursor++
			case '+':
				out = append(out, text)
			case '\\':
				// "\ No newline at end of file"
			default:
				return "", false
			}
		}
	}

	out = append(out, origLines[cursor:]...)
	return strings.Join(out, "\n"), true
}
