// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diagnostics parses raw build output into bounded error records.
//
// Cargo's --message-format=json emits one JSON envelope per line. Error
// envelopes have reason "compiler-message" and a nested message with
// level "error". Lines that are not valid JSON fall back to substring
// detection on the "error:" / "error[" markers that rustc uses in its
// human-readable rendering.
package diagnostics

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// MaxRecords is the hard cap on diagnostics collected per compile cycle.
// Scanning stops entirely once the cap is reached; later errors wait for
// the next cycle.
const MaxRecords = 3

// =============================================================================
// PARSE RESULT
// =============================================================================

// LineKind classifies a single line of build output.
type LineKind int

const (
	// LineIgnored covers warnings, non-error envelopes, and plain noise.
	LineIgnored LineKind = iota

	// LineStructured is a decodable compiler-message envelope at error level.
	LineStructured

	// LineUnstructured is a non-JSON line carrying an error marker.
	LineUnstructured
)

// String returns the kind name for logging.
func (k LineKind) String() string {
	switch k {
	case LineStructured:
		return "structured"
	case LineUnstructured:
		return "unstructured"
	default:
		return "ignored"
	}
}

// ParsedLine is the total (non-throwing) parse result for one line.
// Record is non-nil only when Kind is LineStructured or LineUnstructured.
type ParsedLine struct {
	Kind   LineKind
	Record *Record
}

// Record is a single reported compiler error.
type Record struct {
	// Text is the diagnostic text: the rendered message for structured
	// lines, the raw line for unstructured ones.
	Text string `json:"text"`

	// File is the source path from the first span, empty when unknown.
	File string `json:"file,omitempty"`
}

// =============================================================================
// CARGO ENVELOPES
// =============================================================================

type cargoEnvelope struct {
	Reason  string        `json:"reason"`
	Message *cargoMessage `json:"message"`
}

type cargoMessage struct {
	Level    string      `json:"level"`
	Rendered string      `json:"rendered"`
	Message  string      `json:"message"`
	Spans    []cargoSpan `json:"spans"`
}

type cargoSpan struct {
	FileName string `json:"file_name"`
}

// =============================================================================
// EXTRACTOR
// =============================================================================

// Extractor turns raw build output into at most MaxRecords error records.
//
// Thread Safety: Safe for concurrent use; the log sink must be safe for
// concurrent writes if shared.
type Extractor struct {
	logSink io.Writer
	logger  *slog.Logger
}

// NewExtractor creates an extractor.
//
// Inputs:
//
//	logSink - Optional writer receiving the raw output verbatim before
//	          parsing (the persistent error log). Nil disables it.
//	logger - Logger for structured logging.
func NewExtractor(logSink io.Writer, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logSink: logSink, logger: logger}
}

// ParseLine classifies one line of build output.
//
// Description:
//
//	A decodable compiler-message envelope at error level yields a
//	structured record with text from the rendered field (falling back
//	to the short message) and the first span's file name if any. A line
//	that is not valid JSON but contains "error:" or "error[" yields an
//	unstructured record with no file. Everything else is ignored,
//	including valid envelopes that are not error-level.
func ParseLine(line string) ParsedLine {
	var env cargoEnvelope
	if err := json.Unmarshal([]byte(line), &env); err == nil {
		if env.Reason != "compiler-message" || env.Message == nil {
			return ParsedLine{Kind: LineIgnored}
		}
		if env.Message.Level != "error" {
			return ParsedLine{Kind: LineIgnored}
		}
		text := env.Message.Rendered
		if text == "" {
			text = env.Message.Message
		}
		rec := &Record{Text: text}
		if len(env.Message.Spans) > 0 {
			rec.File = env.Message.Spans[0].FileName
		}
		return ParsedLine{Kind: LineStructured, Record: rec}
	}

	if strings.Contains(line, "error:") || strings.Contains(line, "error[") {
		return ParsedLine{Kind: LineUnstructured, Record: &Record{Text: line}}
	}
	return ParsedLine{Kind: LineIgnored}
}

// Extract collects error records from raw build output.
//
// Description:
//
//	Writes the raw output verbatim to the log sink when non-empty, then
//	scans line by line, stopping once MaxRecords have been collected.
//	Empty output yields an empty slice, which the loop treats as a
//	clean build.
func (e *Extractor) Extract(raw string) []Record {
	if strings.TrimSpace(raw) != "" && e.logSink != nil {
		if _, err := fmt.Fprintf(e.logSink, "COMPILATION OUTPUT:\n%s\n\n", raw); err != nil {
			e.logger.Warn("failed to write raw output to error log", "error", err)
		}
	}

	var records []Record
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		parsed := ParseLine(scanner.Text())
		if parsed.Record != nil {
			records = append(records, *parsed.Record)
		}
		if len(records) >= MaxRecords {
			break
		}
	}

	e.logger.Debug("extracted diagnostics", "count", len(records))
	return records
}
