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

	"github.com/AleutianAI/BuildMedic/pkg/ux"
	"github.com/AleutianAI/BuildMedic/services/build_medic/backup"
	"github.com/spf13/cobra"
)

// backupRoot resolves the snapshot directory for CLI backup commands.
func backupRoot() string {
	root := orDefault(config.Project.BackupRoot, backup.DefaultRoot)
	if filepath.IsAbs(root) {
		return root
	}
	return filepath.Join(config.Project.Dir, root)
}

// runBackupsList prints snapshot sessions, newest first.
func runBackupsList(cmd *cobra.Command, args []string) {
	sessions, err := backup.Sessions(backupRoot())
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
	if len(sessions) == 0 {
		ux.Muted("No backup sessions found.")
		return
	}

	ux.Title("Backup Sessions")
	for _, s := range sessions {
		ux.Info(fmt.Sprintf("%s  %s  %d file(s)",
			s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), s.FileCount))
	}
}

// runBackupsRestore copies a session's files back into the project.
func runBackupsRestore(cmd *cobra.Command, args []string) {
	sessionID := args[0]

	restored, err := backup.Restore(backupRoot(), sessionID, config.Project.Dir)
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
	ux.Success(fmt.Sprintf("Restored %d file(s) from %s into %s",
		restored, sessionID, config.Project.Dir))
}
