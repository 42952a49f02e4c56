// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package build_medic provides the automated build remediation service.
//
// The service wraps the compile-extract-fix loop behind a programmatic
// API: one remediation run at a time, each with its own backup session,
// error log, and persisted history.
package build_medic

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/AleutianAI/BuildMedic/services/build_medic/backup"
	"github.com/AleutianAI/BuildMedic/services/build_medic/compiler"
	"github.com/AleutianAI/BuildMedic/services/build_medic/diagnostics"
	"github.com/AleutianAI/BuildMedic/services/build_medic/errorlog"
	"github.com/AleutianAI/BuildMedic/services/build_medic/history"
	"github.com/AleutianAI/BuildMedic/services/build_medic/locate"
	"github.com/AleutianAI/BuildMedic/services/build_medic/loop"
	"github.com/AleutianAI/BuildMedic/services/build_medic/remedy"
	"github.com/AleutianAI/BuildMedic/services/build_medic/source"
	"github.com/AleutianAI/BuildMedic/services/build_medic/telemetry"
	"github.com/AleutianAI/BuildMedic/services/llm"
)

// ErrFixInProgress indicates a remediation run is already in flight.
var ErrFixInProgress = errors.New("a remediation run is already in progress")

// ServiceConfig configures the remediation service.
type ServiceConfig struct {
	// ProjectDir is the cargo project to remediate. Required.
	ProjectDir string

	// BackupRoot is the snapshot directory, relative paths resolve
	// against ProjectDir. Default: backup.DefaultRoot.
	BackupRoot string

	// ErrorLogPath is the raw-output log, relative paths resolve
	// against ProjectDir. Default: errorlog.DefaultPath.
	ErrorLogPath string

	// MaxAttempts is the compile-cycle budget per run.
	// Default: loop.DefaultMaxAttempts.
	MaxAttempts int

	// CyclePeriod paces compile cycles. Default: loop.DefaultCyclePeriod.
	CyclePeriod time.Duration

	// Language is the source language for prompt wording. Default: rust.
	Language string

	// CompileTimeout bounds one build invocation.
	CompileTimeout time.Duration

	// CompileCommand and CompileArgs override the build invocation.
	// Defaults: cargo build --message-format=json.
	CompileCommand string
	CompileArgs    []string
}

// DefaultServiceConfig returns defaults for a cargo project in dir.
func DefaultServiceConfig(dir string) ServiceConfig {
	return ServiceConfig{
		ProjectDir:   dir,
		BackupRoot:   backup.DefaultRoot,
		ErrorLogPath: errorlog.DefaultPath,
		MaxAttempts:  loop.DefaultMaxAttempts,
		CyclePeriod:  loop.DefaultCyclePeriod,
	}
}

// RunReport summarizes one completed remediation run.
type RunReport struct {
	RunID    string
	Outcome  loop.Outcome
	Attempts []loop.Attempt
}

// Service runs remediation loops against a cargo project.
//
// Thread Safety: Safe for concurrent use; at most one run is admitted
// at a time, concurrent callers get ErrFixInProgress.
type Service struct {
	cfg     ServiceConfig
	client  llm.LLMClient
	store   *history.Store
	metrics *telemetry.Metrics
	logger  *slog.Logger

	mu   sync.Mutex
	busy bool
}

// NewService creates the remediation service. store and metrics may be
// nil; runs are then not persisted or measured.
func NewService(cfg ServiceConfig, client llm.LLMClient, store *history.Store,
	metrics *telemetry.Metrics, logger *slog.Logger) (*Service, error) {

	if cfg.ProjectDir == "" {
		return nil, errors.New("project directory is required")
	}
	if client == nil {
		return nil, errors.New("completion client is required")
	}
	if cfg.BackupRoot == "" {
		cfg.BackupRoot = backup.DefaultRoot
	}
	if cfg.ErrorLogPath == "" {
		cfg.ErrorLogPath = errorlog.DefaultPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:     cfg,
		client:  client,
		store:   store,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Busy reports whether a run is in flight.
func (s *Service) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Model returns the model name when the client exposes one.
func (s *Service) Model() string {
	type named interface{ Model() string }
	if n, ok := s.client.(named); ok {
		return n.Model()
	}
	return ""
}

// RunFix executes one remediation run against projectDir, or against
// the configured project when projectDir is empty.
//
// Description:
//
//	Admits at most one run at a time. Each run gets a fresh backup
//	session and a freshly opened error log, both released when the run
//	ends. The run is recorded in history when a store is configured.
func (s *Service) RunFix(ctx context.Context, projectDir string) (*RunReport, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrFixInProgress
	}
	s.busy = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	dir := projectDir
	if dir == "" {
		dir = s.cfg.ProjectDir
	}

	l, err := s.buildLoop(dir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := l.Close(); cerr != nil {
			s.logger.Warn("failed to close error log", "error", cerr)
		}
	}()

	started := time.Now().UTC()
	s.recordRunStart(ctx, l.RunID(), dir, started)

	outcome, runErr := l.Run(ctx)

	report := &RunReport{
		RunID:    l.RunID(),
		Outcome:  outcome,
		Attempts: l.Attempts(),
	}
	s.recordRunEnd(ctx, report, dir, started)

	if runErr != nil && outcome == loop.OutcomeFatal {
		return report, runErr
	}
	return report, nil
}

// buildLoop wires a fresh loop for one run.
func (s *Service) buildLoop(dir string) (*loop.Loop, error) {
	runner := compiler.NewRunner(compiler.Config{
		Command:    s.cfg.CompileCommand,
		Args:       s.cfg.CompileArgs,
		WorkingDir: dir,
		Timeout:    s.cfg.CompileTimeout,
	}, s.logger)

	backups, err := backup.NewManager(s.resolve(dir, s.cfg.BackupRoot), s.logger)
	if err != nil {
		return nil, err
	}

	errLog, err := errorlog.Open(s.resolve(dir, s.cfg.ErrorLogPath))
	if err != nil {
		return nil, err
	}

	remediator := remedy.NewRemediator(s.client, backups, source.NewReader(s.logger),
		remedy.Config{Language: s.cfg.Language}, s.metrics, s.logger)

	var observer loop.AttemptObserver
	if s.store != nil {
		observer = s.store
	}

	return loop.New(
		loop.Config{MaxAttempts: s.cfg.MaxAttempts, CyclePeriod: s.cfg.CyclePeriod},
		loop.Deps{
			Runner:     runner,
			Extractor:  diagnostics.NewExtractor(errLog, s.logger),
			Locator:    locate.NewLocator(dir, nil, s.logger),
			Remediator: remediator,
			ErrLog:     errLog,
			Metrics:    s.metrics,
			Observer:   observer,
			Logger:     s.logger,
		},
	)
}

func (s *Service) resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func (s *Service) recordRunStart(ctx context.Context, runID, dir string, started time.Time) {
	if s.store == nil {
		return
	}
	err := s.store.PutRun(ctx, history.RunRecord{
		ID:         runID,
		ProjectDir: dir,
		Model:      s.Model(),
		StartedAt:  started,
	})
	if err != nil {
		s.logger.Warn("failed to record run start", "run_id", runID, "error", err)
	}
}

func (s *Service) recordRunEnd(ctx context.Context, report *RunReport, dir string, started time.Time) {
	if s.store == nil {
		return
	}
	err := s.store.PutRun(ctx, history.RunRecord{
		ID:          report.RunID,
		ProjectDir:  dir,
		Model:       s.Model(),
		StartedAt:   started,
		FinishedAt:  time.Now().UTC(),
		Outcome:     report.Outcome.String(),
		AttemptsRun: len(report.Attempts),
	})
	if err != nil {
		s.logger.Warn("failed to record run end", "run_id", report.RunID, "error", err)
	}
}

// History returns the run history store, or nil when not configured.
func (s *Service) History() *history.Store {
	return s.store
}
