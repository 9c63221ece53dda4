// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history keeps finished runs in BadgerDB.
//
// Key layout:
//
//	run/<id>                 JSON-encoded runner.Outcome
//	time/<unix-nanos>/<id>   empty; orders runs by start time
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/EngineBench/pkg/validation"
	"github.com/AleutianAI/EngineBench/services/bench/runner"
)

// Sentinel errors for history operations.
var (
	// ErrRunNotFound indicates no run matches the requested ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrAmbiguousRunID indicates an ID prefix matching more than one run.
	ErrAmbiguousRunID = errors.New("ambiguous run id")

	// ErrCorrupt indicates a stored run that cannot be decoded.
	ErrCorrupt = errors.New("corrupt history entry")
)

const (
	runPrefix  = "run/"
	timePrefix = "time/"
)

// Config configures the history database.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps the database in memory. Used by tests.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Logger receives BadgerDB's own log output. Nil silences it.
	Logger *slog.Logger
}

// DefaultPath returns ~/.enginebench/history, or a relative
// .enginebench/history when the home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".enginebench", "history")
	}
	return filepath.Join(home, ".enginebench", "history")
}

// badgerLogger adapts slog to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Summary is the list view of a run.
type Summary struct {
	ID        string        `json:"id"`
	Mode      runner.Mode   `json:"mode"`
	Engine    string        `json:"engine"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Positions int           `json:"positions"`
	Failures  int           `json:"failures"`
	Regressed int           `json:"regressed,omitempty"`
}

func summarize(out runner.Outcome) Summary {
	return Summary{
		ID:        out.RunID,
		Mode:      out.Mode,
		Engine:    out.Engine,
		StartedAt: out.StartedAt,
		Duration:  out.FinishedAt.Sub(out.StartedAt),
		Positions: len(out.Results) + len(out.Failures),
		Failures:  len(out.Failures),
		Regressed: out.Report.Nodes.Regressed,
	}
}

// Store is the run history.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens or creates the history database.
//
// Errors:
//
//	Returns an error if Path is empty for a persistent database, the
//	directory cannot be created, or BadgerDB fails to open (commonly
//	because another process holds the directory lock).
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("history path is required")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create history directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func runKey(id string) []byte {
	return []byte(runPrefix + id)
}

func timeKey(startedAt time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", timePrefix, startedAt.UnixNano(), id))
}

// Put stores a run, replacing any run with the same ID.
func (s *Store) Put(ctx context.Context, out runner.Outcome) error {
	if err := validation.ValidateRunID(out.RunID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", out.RunID, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(runKey(out.RunID), data); err != nil {
			return err
		}
		return txn.Set(timeKey(out.StartedAt, out.RunID), nil)
	})
	if err != nil {
		return fmt.Errorf("store run %s: %w", out.RunID, err)
	}
	s.logger.Debug("Run stored", slog.String("run_id", out.RunID))
	return nil
}

// Get loads a run by ID or unique ID prefix.
//
// Errors:
//
//	ErrRunNotFound - No run matches id
//	validation.ErrInvalidInput - id contains characters no run ID has
//	ErrAmbiguousRunID - id is a prefix of several run IDs
//	ErrCorrupt - The stored run cannot be decoded
func (s *Store) Get(ctx context.Context, id string) (runner.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return runner.Outcome{}, err
	}
	if id == "" {
		return runner.Outcome{}, fmt.Errorf("%w: empty id", ErrRunNotFound)
	}
	if err := validation.ValidateRunID(id); err != nil {
		return runner.Outcome{}, err
	}

	var out runner.Outcome
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			item, err = findByPrefix(txn, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &out); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrCorrupt, item.Key(), err)
			}
			return nil
		})
	})
	if err != nil {
		return runner.Outcome{}, err
	}
	return out, nil
}

func findByPrefix(txn *badger.Txn, id string) (*badger.Item, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := runKey(id)
	var match *badger.Item
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if match != nil {
			return nil, fmt.Errorf("%w: %s", ErrAmbiguousRunID, id)
		}
		match = it.Item()
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return txn.Get(match.KeyCopy(nil))
}

// List returns up to limit runs, newest first. A non-positive limit
// returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration seeks to the last key <= the seek key.
		seek := append([]byte(timePrefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix([]byte(timePrefix)); it.Next() {
			key := string(it.Item().Key())
			ids = append(ids, key[strings.LastIndexByte(key, '/')+1:])
			if limit > 0 && len(ids) == limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrCorrupt) {
				s.logger.Warn("Skipping corrupt run", slog.String("run_id", id))
				continue
			}
			return nil, err
		}
		summaries = append(summaries, summarize(out))
	}
	return summaries, nil
}

// Name implements runner.Sink.
func (s *Store) Name() string {
	return "history"
}

// Publish implements runner.Sink.
func (s *Store) Publish(ctx context.Context, out runner.Outcome) error {
	return s.Put(ctx, out)
}
