// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch re-triggers a benchmark when the engine binary is rebuilt.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before a
// rebuild is reported. Linkers write a binary in several steps.
const DefaultDebounce = 500 * time.Millisecond

// BinaryWatcher reports rewrites of one file.
//
// The parent directory is watched rather than the file itself so that
// replace-by-rename builds are seen.
type BinaryWatcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
}

// New starts watching path. A non-positive debounce uses DefaultDebounce.
func New(path string, debounce time.Duration, logger *slog.Logger) (*BinaryWatcher, error) {
	if path == "" {
		return nil, errors.New("watch path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &BinaryWatcher{
		path:     abs,
		debounce: debounce,
		watcher:  watcher,
		logger:   logger,
	}, nil
}

// Path returns the watched file.
func (w *BinaryWatcher) Path() string {
	return w.path
}

// Run calls onChange once per burst of writes to the file until ctx is
// done or the watcher is closed. onChange runs on the calling goroutine;
// changes made while it runs are reported after it returns.
//
// Outputs:
//
//	error - ctx.Err() when cancelled, nil when the watcher was closed
func (w *BinaryWatcher) Run(ctx context.Context, onChange func(context.Context)) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	w.logger.Debug("Watching engine binary", slog.String("path", w.path))
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Engine watcher error", slog.String("error", err.Error()))

		case <-fire:
			fire = nil
			w.logger.Info("Engine binary changed", slog.String("path", w.path))
			onChange(ctx)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *BinaryWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

// Close stops watching.
func (w *BinaryWatcher) Close() error {
	return w.watcher.Close()
}
