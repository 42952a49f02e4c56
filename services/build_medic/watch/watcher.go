// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch triggers remediation runs when project sources change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// TriggerHandler is called with the batch of changed source files after
// the debounce window closes.
type TriggerHandler func(changed []string)

// Options configures a Watcher.
type Options struct {
	// DebounceWindow is how long to wait for further changes before
	// triggering. An editor save storm collapses into one trigger.
	// Default: 2s.
	DebounceWindow time.Duration

	// Extensions are the file suffixes that count as source changes.
	// Default: [".rs"].
	Extensions []string

	// IgnoreDirs are directory names skipped entirely.
	// Default: [".git", "target", "ai_fixer_backups"].
	IgnoreDirs []string

	// BufferSize is the change channel capacity. Default: 256.
	BufferSize int
}

// DefaultOptions returns defaults tuned for a cargo project: rust
// sources only, build output and backups ignored.
func DefaultOptions() Options {
	return Options{
		DebounceWindow: 2 * time.Second,
		Extensions:     []string{".rs"},
		IgnoreDirs:     []string{".git", "target", "ai_fixer_backups"},
		BufferSize:     256,
	}
}

// Watcher watches a project tree and fires a debounced trigger when
// source files change.
//
// Thread Safety: Safe for concurrent use. The handler is called from a
// single goroutine.
type Watcher struct {
	root    string
	fsw     *fsnotify.Watcher
	handler TriggerHandler
	opts    Options
	logger  *slog.Logger

	changes  chan string
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
}

// New creates a watcher over the project root. Call Start to begin.
func New(root string, handler TriggerHandler, opts *Options, logger *slog.Logger) (*Watcher, error) {
	o := DefaultOptions()
	if opts != nil {
		if opts.DebounceWindow > 0 {
			o.DebounceWindow = opts.DebounceWindow
		}
		if len(opts.Extensions) > 0 {
			o.Extensions = opts.Extensions
		}
		if len(opts.IgnoreDirs) > 0 {
			o.IgnoreDirs = opts.IgnoreDirs
		}
		if opts.BufferSize > 0 {
			o.BufferSize = opts.BufferSize
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:    root,
		fsw:     fsw,
		handler: handler,
		opts:    o,
		logger:  logger,
		changes: make(chan string, o.BufferSize),
		done:    make(chan struct{}),
	}, nil
}

// Start watches the root recursively and spawns the event and debounce
// goroutines. Both exit on Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// Stop halts the watcher. Safe to call multiple times.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fsw.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching reports whether the watcher is active.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignoredDir(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) ignoredDir(path string) bool {
	base := filepath.Base(path)
	for _, dir := range w.opts.IgnoreDirs {
		if base == dir {
			return true
		}
	}
	return false
}

func (w *Watcher) isSource(path string) bool {
	for _, ext := range w.opts.Extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// New directories join the watch set so nested crates are
			// covered as they appear.
			if event.Has(fsnotify.Create) && !w.ignoredDir(event.Name) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.fsw.Add(event.Name)
				}
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !w.isSource(event.Name) {
				continue
			}
			select {
			case w.changes <- event.Name:
			default:
				// Buffer full; the debouncer will still fire on what it has.
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	var batch []string
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) > 0 {
			deduped := dedupe(batch)
			if w.handler != nil {
				w.handler(deduped)
			}
			batch = batch[:0]
		}
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-w.done:
			flush()
			return
		case path := <-w.changes:
			batch = append(batch, path)
			if timer == nil {
				timer = time.NewTimer(w.opts.DebounceWindow)
				timerC = timer.C
			} else {
				timer.Reset(w.opts.DebounceWindow)
			}
		case <-timerC:
			flush()
		}
	}
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
