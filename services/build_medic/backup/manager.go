// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package backup snapshots files before mutation into per-run sessions.
//
// Backups are advisory: a failed or skipped snapshot never blocks a
// remediation attempt. Copies are flat, keyed by base name, so two
// modified files sharing a base name within one session are
// last-write-wins.
package backup

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxSnapshotBytes is the size ceiling for a snapshot. Files at or above
// this size are skipped.
const MaxSnapshotBytes = 200 * 1024

// DefaultRoot is the default backup root directory name.
const DefaultRoot = "ai_fixer_backups"

// Manager owns one backup session for the lifetime of a run.
type Manager struct {
	root       string
	sessionID  string
	sessionDir string
	logger     *slog.Logger
}

// NewManager creates the backup root and a fresh session directory.
//
// Description:
//
//	Sessions are named backup_<unix-timestamp>_<short-uuid> so parallel
//	runs started within the same second do not collide. Directory
//	creation is idempotent.
//
// Inputs:
//
//	root - Backup root directory. Empty uses DefaultRoot.
func NewManager(root string, logger *slog.Logger) (*Manager, error) {
	if root == "" {
		root = DefaultRoot
	}
	if logger == nil {
		logger = slog.Default()
	}
	sessionID := fmt.Sprintf("backup_%d_%s", time.Now().Unix(), uuid.NewString()[:8])
	sessionDir := filepath.Join(root, sessionID)
	if err := os.MkdirAll(sessionDir, 0o750); err != nil {
		return nil, fmt.Errorf("create backup session %s: %w", sessionDir, err)
	}
	return &Manager{
		root:       root,
		sessionID:  sessionID,
		sessionDir: sessionDir,
		logger:     logger,
	}, nil
}

// SessionID returns the session directory name.
func (m *Manager) SessionID() string {
	return m.sessionID
}

// SessionDir returns the full session directory path.
func (m *Manager) SessionDir() string {
	return m.sessionDir
}

// Snapshot copies the file into the session directory by base name.
//
// Description:
//
//	Best-effort and never returns an error: files at or above
//	MaxSnapshotBytes, stat failures, and copy failures are logged and
//	skipped. The write target if the copy succeeds preserves the source
//	file mode.
func (m *Manager) Snapshot(path string) {
	info, err := os.Stat(path)
	if err != nil {
		m.logger.Warn("backup skipped: cannot stat file", "path", path, "error", err)
		return
	}
	if info.Size() >= MaxSnapshotBytes {
		m.logger.Warn("backup skipped: file too large",
			"path", path, "size", info.Size(), "limit", MaxSnapshotBytes)
		return
	}
	dst := filepath.Join(m.sessionDir, filepath.Base(path))
	if err := copyFile(path, dst, info.Mode()); err != nil {
		m.logger.Warn("backup failed", "path", path, "error", err)
		return
	}
	m.logger.Debug("backed up file", "path", path, "backup", dst)
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Session describes one past backup session.
type Session struct {
	ID        string
	Path      string
	CreatedAt time.Time
	FileCount int
}

// Sessions lists sessions under a backup root, newest first.
func Sessions(root string) ([]Session, error) {
	if root == "" {
		root = DefaultRoot
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup root %s: %w", root, err)
	}

	var sessions []Session
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "backup_") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		files, _ := os.ReadDir(dir)
		sessions = append(sessions, Session{
			ID:        entry.Name(),
			Path:      dir,
			CreatedAt: info.ModTime(),
			FileCount: len(files),
		})
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// Restore copies every file from a session into destDir.
//
// Outputs:
//
//	int - Number of files restored.
//	error - Non-nil if the session does not exist or a copy fails.
func Restore(root, sessionID, destDir string) (int, error) {
	if root == "" {
		root = DefaultRoot
	}
	sessionDir := filepath.Join(root, sessionID)
	entries, err := os.ReadDir(sessionDir)
	if err != nil {
		return 0, fmt.Errorf("read session %s: %w", sessionID, err)
	}
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return 0, fmt.Errorf("create destination %s: %w", destDir, err)
	}

	restored := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		src := filepath.Join(sessionDir, entry.Name())
		dst := filepath.Join(destDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return restored, err
		}
		if err := copyFile(src, dst, info.Mode()); err != nil {
			return restored, fmt.Errorf("restore %s: %w", entry.Name(), err)
		}
		restored++
	}
	return restored, nil
}
