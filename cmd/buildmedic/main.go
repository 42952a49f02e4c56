// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command buildmedic drives automated build remediation for cargo
// projects: compile, extract diagnostics, ask a local model for a fix,
// apply it, repeat under a bounded retry budget.
//
// Usage:
//
//	buildmedic fix                  # run one remediation loop
//	buildmedic watch                # re-run on source changes
//	buildmedic serve                # expose the HTTP API
//	buildmedic backups list         # inspect snapshot sessions
//	buildmedic history              # past runs (when enabled)
package main

import (
	"log"
	"os"

	"github.com/AleutianAI/BuildMedic/pkg/ux"
	"github.com/spf13/cobra"
)

var config Config

func main() {
	// Execute the root command. Cobra handles parsing the arguments.
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if personalityLevel != "" {
			ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
		} else {
			ux.InitPersonality()
		}

		cfg, err := LoadConfig(configPath)
		if err != nil {
			ux.Error(err.Error())
			os.Exit(1)
		}
		config = cfg
		applyFlagOverrides()
	}
}

// applyFlagOverrides lets command-line flags win over the config file.
func applyFlagOverrides() {
	if projectDir != "" {
		config.Project.Dir = projectDir
	}
	if modelName != "" {
		config.Model.Name = modelName
	}
	if ollamaURL != "" {
		config.Model.OllamaURL = ollamaURL
	}
	if useOpenAI {
		config.Model.Backend = "openai"
	}
	if maxAttempts > 0 {
		config.Loop.MaxAttempts = maxAttempts
	}
	if serverPort > 0 {
		config.Server.Port = serverPort
	}
}
