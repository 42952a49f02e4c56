// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AleutianAI/BuildMedic/pkg/logging"
	"github.com/AleutianAI/BuildMedic/services/build_medic"
	"github.com/AleutianAI/BuildMedic/services/build_medic/history"
	"github.com/AleutianAI/BuildMedic/services/build_medic/telemetry"
	"github.com/AleutianAI/BuildMedic/services/llm"
)

// newLogger builds the process logger from the logging config section.
func newLogger(service string) *logging.Logger {
	return logging.New(logging.Config{
		Level:   logging.ParseLevel(config.Logging.Level),
		LogDir:  config.Logging.Dir,
		Service: service,
		JSON:    config.Logging.JSON,
	})
}

// newClient builds the completion client from the model config section.
func newClient() (llm.LLMClient, error) {
	switch config.Model.Backend {
	case "openai":
		return llm.NewOpenAIClient(config.Model.Name)
	default:
		return llm.NewOllamaClient(config.Model.OllamaURL, config.Model.Name)
	}
}

// historyPath resolves the run-history database directory.
func historyPath() string {
	if config.History.Path != "" {
		return config.History.Path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".buildmedic", "history")
	}
	return filepath.Join(home, ".buildmedic", "history")
}

// openHistory opens the run-history store when enabled. Both returns
// are nil when history is disabled.
func openHistory(logger *logging.Logger) (*history.DB, *history.Store, error) {
	if !config.History.Enabled {
		return nil, nil, nil
	}
	db, err := history.OpenDB(history.DefaultConfig(historyPath()))
	if err != nil {
		return nil, nil, fmt.Errorf("open run history: %w", err)
	}
	store, err := history.NewStore(db, logger.Slog())
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, store, nil
}

// newService wires the remediation service from the loaded config.
func newService(logger *logging.Logger, store *history.Store,
	metrics *telemetry.Metrics) (*build_medic.Service, error) {

	client, err := newClient()
	if err != nil {
		return nil, err
	}

	cfg := build_medic.DefaultServiceConfig(config.Project.Dir)
	cfg.BackupRoot = orDefault(config.Project.BackupRoot, cfg.BackupRoot)
	cfg.ErrorLogPath = orDefault(config.Project.ErrorLog, cfg.ErrorLogPath)
	if config.Loop.MaxAttempts > 0 {
		cfg.MaxAttempts = config.Loop.MaxAttempts
	}
	if config.Loop.CyclePeriodMS > 0 {
		cfg.CyclePeriod = config.Loop.CyclePeriod()
	}
	if config.Loop.CompileTimeoutSec > 0 {
		cfg.CompileTimeout = config.Loop.CompileTimeout()
	}

	return build_medic.NewService(cfg, client, store, metrics, logger.Slog())
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
