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
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the buildmedic.yaml configuration.
type Config struct {
	Project ProjectConfig `yaml:"project"`
	Model   ModelConfig   `yaml:"model"`
	Loop    LoopConfig    `yaml:"loop"`
	Server  ServerConfig  `yaml:"server"`
	History HistoryConfig `yaml:"history"`
	Logging LoggingConfig `yaml:"logging"`
}

// ProjectConfig locates the cargo project under remediation.
type ProjectConfig struct {
	// Dir is the project root. Default: current directory.
	Dir string `yaml:"dir"`

	// BackupRoot stores pre-patch snapshots. Default: ai_fixer_backups.
	BackupRoot string `yaml:"backup_root"`

	// ErrorLog is the raw compiler-output log. Default: ai_fixer_errors.log.
	ErrorLog string `yaml:"error_log"`
}

// ModelConfig selects the completion backend.
type ModelConfig struct {
	// Backend is "ollama" or "openai".
	Backend string `yaml:"backend" validate:"omitempty,oneof=ollama openai"`

	// Name is the model identifier, e.g. qwen2.5-coder:7b.
	Name string `yaml:"name"`

	// OllamaURL is the Ollama base URL. Default: http://localhost:11434.
	OllamaURL string `yaml:"ollama_url" validate:"omitempty,url"`
}

// LoopConfig tunes the remediation loop.
type LoopConfig struct {
	// MaxAttempts is the compile-cycle budget. Default: 5.
	MaxAttempts int `yaml:"max_attempts" validate:"omitempty,min=1,max=100"`

	// CyclePeriodMS paces compile cycles in milliseconds. Default: 1500.
	CyclePeriodMS int `yaml:"cycle_period_ms" validate:"omitempty,min=0"`

	// CompileTimeoutSec bounds one build invocation. Default: 600.
	CompileTimeoutSec int `yaml:"compile_timeout_sec" validate:"omitempty,min=1"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Port to listen on. Default: 8080.
	Port int `yaml:"port" validate:"omitempty,min=1,max=65535"`

	// Debug enables gin debug mode and request logging.
	Debug bool `yaml:"debug"`
}

// HistoryConfig configures run persistence.
type HistoryConfig struct {
	// Enabled turns on the embedded run-history database.
	Enabled bool `yaml:"enabled"`

	// Path is the database directory. Default: ~/.buildmedic/history.
	Path string `yaml:"path"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is debug, info, warn, or error. Default: info.
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`

	// Dir enables file logging when set.
	Dir string `yaml:"dir"`

	// JSON switches stderr output to JSON.
	JSON bool `yaml:"json"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Project: ProjectConfig{Dir: "."},
		Model: ModelConfig{
			Backend:   "ollama",
			Name:      "qwen2.5-coder:7b",
			OllamaURL: "http://localhost:11434",
		},
		Loop: LoopConfig{
			MaxAttempts:       5,
			CyclePeriodMS:     1500,
			CompileTimeoutSec: 600,
		},
		Server: ServerConfig{Port: 8080},
	}
}

// configValidate is the validator instance for the CLI configuration.
var configValidate = validator.New()

// LoadConfig reads and validates the configuration file. A missing file
// is not an error; defaults apply and flags can override.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := configValidate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// CyclePeriod returns the configured pacing as a duration.
func (c LoopConfig) CyclePeriod() time.Duration {
	return time.Duration(c.CyclePeriodMS) * time.Millisecond
}

// CompileTimeout returns the configured build timeout as a duration.
func (c LoopConfig) CompileTimeout() time.Duration {
	return time.Duration(c.CompileTimeoutSec) * time.Second
}
