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

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// --- Global Command Variables ---
var (
	configPath       string
	projectDir       string
	modelName        string
	ollamaURL        string
	useOpenAI        bool
	maxAttempts      int
	serverPort       int
	watchDebounceSec int
	personalityLevel string // UX personality level (full/standard/minimal/machine)

	rootCmd = &cobra.Command{
		Use:   "buildmedic",
		Short: "Automated build-error remediation for cargo projects",
		Long: `BuildMedic compiles your project, reads the compiler's diagnostics,
asks a local model for a correction, applies it, and repeats until the
build is clean or the retry budget runs out. Every touched file is
snapshotted first.`,
	}

	// --- Remediation ---
	fixCmd = &cobra.Command{
		Use:   "fix",
		Short: "Run one remediation loop against the project",
		Run:   runFix, // Defined in cmd_fix.go
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Watch the project and remediate whenever sources change",
		Run:   runWatch, // Defined in cmd_watch.go
	}

	// --- HTTP API ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Expose remediation and run history over HTTP",
		Run:   runServe, // Defined in cmd_serve.go
	}

	// --- Backups ---
	backupsCmd = &cobra.Command{
		Use:   "backups",
		Short: "Manage pre-patch snapshot sessions",
	}
	backupsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List snapshot sessions, newest first",
		Run:   runBackupsList, // Defined in cmd_backups.go
	}
	backupsRestoreCmd = &cobra.Command{
		Use:   "restore [session_id]",
		Short: "Restore a snapshot session into the project",
		Args:  cobra.ExactArgs(1),
		Run:   runBackupsRestore, // Defined in cmd_backups.go
	}

	// --- History ---
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List past remediation runs",
		Run:   runHistoryList, // Defined in cmd_history.go
	}
	historyShowCmd = &cobra.Command{
		Use:   "show [run_id]",
		Short: "Show one run with its attempt trail",
		Args:  cobra.ExactArgs(1),
		Run:   runHistoryShow, // Defined in cmd_history.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the buildmedic version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("buildmedic", Version)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "buildmedic.yaml",
		"Path to the configuration file")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "p", "",
		"Cargo project directory (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&modelName, "model", "m", "",
		"Completion model name (overrides config)")
	rootCmd.PersistentFlags().StringVar(&ollamaURL, "ollama-url", "",
		"Ollama base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&useOpenAI, "openai", false,
		"Use the OpenAI backend instead of Ollama")
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"UX personality level (full/standard/minimal/machine)")

	fixCmd.Flags().IntVarP(&maxAttempts, "attempts", "a", 0,
		"Compile-cycle budget (overrides config)")
	watchCmd.Flags().IntVar(&watchDebounceSec, "debounce", 2,
		"Seconds to wait after the last change before remediating")
	serveCmd.Flags().IntVar(&serverPort, "port", 0,
		"Port to listen on (overrides config)")

	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)

	backupsCmd.AddCommand(backupsListCmd)
	backupsCmd.AddCommand(backupsRestoreCmd)
	rootCmd.AddCommand(backupsCmd)

	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)

	rootCmd.AddCommand(versionCmd)
}
