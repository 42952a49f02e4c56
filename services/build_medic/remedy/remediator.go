// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package remedy formats correction requests, sends them to the
// completion service, and applies usable replacement bodies to disk.
package remedy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AleutianAI/BuildMedic/services/build_medic/backup"
	"github.com/AleutianAI/BuildMedic/services/build_medic/source"
	"github.com/AleutianAI/BuildMedic/services/build_medic/telemetry"
	"github.com/AleutianAI/BuildMedic/services/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("buildmedic.remedy")

// DefaultNumCtx is the bounded context-window size sent with every
// correction request.
const DefaultNumCtx = 4096

// Config configures the remediator.
type Config struct {
	// Language is the source language for prompt wording and fence
	// tags. Default: "rust".
	Language string

	// NumCtx bounds the model context window. Default: DefaultNumCtx.
	NumCtx int
}

// Result is the outcome of one remediation attempt.
type Result struct {
	// Changed is true when a textually different, non-empty correction
	// was written to disk. It is the loop's sole correctness signal.
	Changed bool

	// FilePath is the target file of the attempt.
	FilePath string
}

// Remediator drives single-file correction attempts.
//
// Thread Safety: Safe for concurrent use if the backup manager and the
// LLM client are.
type Remediator struct {
	client  llm.LLMClient
	backups *backup.Manager
	reader  *source.Reader
	cfg     Config
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// NewRemediator creates a remediator. metrics may be nil.
func NewRemediator(client llm.LLMClient, backups *backup.Manager,
	reader *source.Reader, cfg Config, metrics *telemetry.Metrics,
	logger *slog.Logger) *Remediator {

	if cfg.Language == "" {
		cfg.Language = "rust"
	}
	if cfg.NumCtx <= 0 {
		cfg.NumCtx = DefaultNumCtx
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Remediator{
		client:  client,
		backups: backups,
		reader:  reader,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// Remediate attempts to fix one diagnostic in one file.
//
// Description:
//
//	Snapshots the file (advisory), reads a bounded excerpt, sends a
//	single-turn correction request, extracts a replacement body
//	defensively, and writes it to disk only when it is non-empty and
//	textually different from the excerpt. Service and network failures
//	are absorbed: they are logged and reported as Changed=false so the
//	loop continues to the next diagnostic.
//
//	The change comparison runs against the excerpt, not the full file:
//	for oversized files the baseline is a bounded sample while the
//	write, if it happens, replaces content at file scope.
func (r *Remediator) Remediate(ctx context.Context, filePath, diagnostic string) Result {
	ctx, span := tracer.Start(ctx, "Remediator.Remediate")
	defer span.End()
	span.SetAttributes(attribute.String("remedy.file", filePath))

	result := Result{FilePath: filePath}
	r.logger.Info("attempting fix", "file", filepath.Base(filePath))

	r.backups.Snapshot(filePath)

	excerpt := r.reader.Read(filePath)
	if excerpt == "" {
		r.logger.Warn("no usable context, abandoning attempt", "file", filePath)
		return result
	}

	prompt := r.buildPrompt(filePath, excerpt, diagnostic)
	numCtx := r.cfg.NumCtx

	r.metrics.IncRemediationAttempted()
	start := time.Now()
	reply, err := r.client.Chat(ctx,
		[]llm.Message{{Role: "user", Content: prompt}},
		llm.GenerationParams{NumCtx: &numCtx})
	r.metrics.ObserveCompletion(time.Since(start))
	if err != nil {
		r.logger.Error("completion service call failed", "file", filePath, "error", err)
		return result
	}

	corrected := r.extractCorrection(excerpt, reply)
	if corrected == "" || corrected == strings.TrimSpace(excerpt) {
		r.logger.Info("no change in code", "file", filepath.Base(filePath))
		r.metrics.IncRemediationNoop()
		return result
	}

	// Preserve the excerpt's trailing-newline convention.
	if strings.HasSuffix(excerpt, "\n") && !strings.HasSuffix(corrected, "\n") {
		corrected += "\n"
	}

	if err := os.WriteFile(filePath, []byte(corrected), 0o644); err != nil {
		r.logger.Error("failed to write correction", "file", filePath, "error", err)
		return result
	}

	r.logger.Info("code updated", "file", filepath.Base(filePath), "bytes", len(corrected))
	r.metrics.IncRemediationApplied()
	result.Changed = true
	return result
}

// extractCorrection turns a raw reply into a candidate replacement body.
// Fenced extraction runs first; a reply shaped like a unified diff with
// no usable fence is applied as a patch against the excerpt.
func (r *Remediator) extractCorrection(excerpt, reply string) string {
	fenced := ExtractFenced(reply, r.cfg.Language)
	if fenced.Found {
		return ExtractCandidate(reply, r.cfg.Language)
	}
	if looksLikeUnifiedDiff(reply) {
		if patched, ok := applyUnifiedDiff(excerpt, reply); ok {
			return patched
		}
		r.logger.Warn("reply looked like a diff but did not apply cleanly")
		return ""
	}
	return ExtractCandidate(reply, r.cfg.Language)
}

func (r *Remediator) buildPrompt(filePath, excerpt, diagnostic string) string {
	lang := r.cfg.Language
	return fmt.Sprintf(`Fix this %s error:

## File

%s

## Error

%s

## Code

`+"```%s\n%s\n```"+`

## Instructions

1. Return ONLY the corrected code inside a `+"```%s"+` block
2. Keep the original structure and formatting
3. Do not add explanations or comments
4. If no fix is needed, return the original code

Corrected code:
`, lang, filepath.Base(filePath), diagnostic, lang, excerpt, lang)
}
