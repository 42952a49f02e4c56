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

import "strings"

// FenceResult is the typed outcome of scanning for a fenced code block.
type FenceResult struct {
	Found bool
	Body  string
}

// fenceState is the scanner state while walking response lines.
type fenceState int

const (
	fenceScanning fenceState = iota
	fenceInBlock
)

// ExtractFenced scans a model response for a fenced code block.
//
// Description:
//
//	Walks the response line by line with an explicit two-state scanner.
//	A fence delimiter is a line whose trimmed text starts with three
//	backticks; an opening delimiter may carry a language tag. Blocks
//	tagged with the requested language are preferred over untagged or
//	differently tagged ones; within each class the first completed
//	block wins. A dangling opening fence with no closing delimiter
//	never completes a block, so a response holding only one fence
//	marker yields NotFound rather than a slice panic or a garbled body.
//
// Inputs:
//
//	response - Raw model output.
//	lang - Preferred language tag, e.g. "rust". Empty disables preference.
func ExtractFenced(response, lang string) FenceResult {
	var (
		state       = fenceScanning
		currentTag  string
		currentBody []string

		firstAny    *FenceResult
		firstTagged *FenceResult
	)

	complete := func(tag string, body []string) {
		result := &FenceResult{Found: true, Body: strings.Join(body, "\n")}
		if firstAny == nil {
			firstAny = result
		}
		if firstTagged == nil && lang != "" && tag == lang {
			firstTagged = result
		}
	}

	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)
		switch state {
		case fenceScanning:
			if strings.HasPrefix(trimmed, "```") {
				currentTag = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
				currentBody = currentBody[:0]
				state = fenceInBlock
			}
		case fenceInBlock:
			if strings.HasPrefix(trimmed, "```") {
				complete(currentTag, currentBody)
				state = fenceScanning
				continue
			}
			currentBody = append(currentBody, line)
		}
		if firstTagged != nil {
			break
		}
	}

	if firstTagged != nil {
		return *firstTagged
	}
	if firstAny != nil {
		return *firstAny
	}
	return FenceResult{}
}

// ExtractCandidate applies the full defensive extraction policy.
//
// Description:
//
//	Prefers a block tagged with the source language, then any fenced
//	block, then the whole response body. A stray leading language-tag
//	line that slipped into the body is stripped. The result is
//	whitespace-trimmed.
func ExtractCandidate(response, lang string) string {
	candidate := strings.TrimSpace(response)
	if result := ExtractFenced(response, lang); result.Found {
		candidate = strings.TrimSpace(result.Body)
	}
	if lang != "" && strings.HasPrefix(candidate, lang+"\n") {
		candidate = candidate[len(lang)+1:]
	}
	return candidate
}
