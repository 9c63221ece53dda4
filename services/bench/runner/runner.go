// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package runner drives an engine over a list of positions and collects
// results, diffs against a baseline and per-position failures.
//
// A run is either a suite run (search each position, no baseline) or a
// diff run (re-search each baseline record and compare). Errors are
// classified per position: engine failures that leave no usable process
// abort the run, a timeout costs only its own position and the engine is
// restarted for the next one, and metric or diff errors are recorded as
// failures.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/EngineBench/services/bench/aggregate"
	"github.com/AleutianAI/EngineBench/services/bench/diff"
	"github.com/AleutianAI/EngineBench/services/bench/engine"
	"github.com/AleutianAI/EngineBench/services/bench/metric"
	"github.com/AleutianAI/EngineBench/services/bench/position"
	"github.com/AleutianAI/EngineBench/services/bench/search"
	"github.com/AleutianAI/EngineBench/services/bench/uci"
)

// Mode names the kind of run.
type Mode string

const (
	// ModeSuite searches a position suite with no baseline.
	ModeSuite Mode = "suite"

	// ModeDiff re-searches baseline records and compares.
	ModeDiff Mode = "diff"
)

// Searcher is a started engine.
type Searcher interface {
	Search(ctx context.Context, pos position.Position, depth int) (search.Result, error)
	Identity() uci.Identity
	Close() error
}

// Launcher starts a ready Searcher.
type Launcher func(ctx context.Context) (Searcher, error)

// EngineLauncher returns a Launcher that spawns engine.Driver processes
// from config.
func EngineLauncher(config engine.Config, logger *slog.Logger) Launcher {
	return func(ctx context.Context) (Searcher, error) {
		d := engine.NewDriver(config, logger)
		if err := d.Start(ctx); err != nil {
			return nil, err
		}
		return d, nil
	}
}

// Task is one search to run.
type Task struct {
	Position position.Position
	Depth    int

	// Baseline is the record to diff against. Nil in suite mode.
	Baseline *search.Result
}

// SuiteTasks builds suite-mode tasks searching every position at depth.
func SuiteTasks(positions []position.Position, depth int) []Task {
	tasks := make([]Task, len(positions))
	for i, pos := range positions {
		tasks[i] = Task{Position: pos, Depth: depth}
	}
	return tasks
}

// DiffTasks builds diff-mode tasks from baseline records. A positive depth
// overrides every record's own depth; zero keeps the recorded depth.
func DiffTasks(baseline []search.Result, depth int) []Task {
	tasks := make([]Task, len(baseline))
	for i := range baseline {
		rec := baseline[i]
		d := rec.Depth
		if depth > 0 {
			d = depth
		}
		tasks[i] = Task{Position: rec.Position, Depth: d, Baseline: &rec}
	}
	return tasks
}

// PositionError attaches the failing position to a fatal run error.
type PositionError struct {
	// Index is the zero-based task index.
	Index int

	// Position is the task's position.
	Position position.Position

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *PositionError) Error() string {
	return fmt.Sprintf("position %d (%s): %v", e.Index+1, e.Position, e.Err)
}

// Unwrap returns the underlying error.
func (e *PositionError) Unwrap() error {
	return e.Err
}

// Outcome is everything a run produced.
type Outcome struct {
	RunID      string    `json:"run_id"`
	Mode       Mode      `json:"mode"`
	Engine     string    `json:"engine"`
	EnginePath string    `json:"engine_path"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Results holds every fresh result in task order.
	Results []search.Result `json:"results"`

	// Diffs holds the comparisons of diff mode.
	Diffs []diff.Diff `json:"diffs,omitempty"`

	// Failures lists positions that produced no result or no diff.
	Failures []search.Failure `json:"failures,omitempty"`

	Totals aggregate.ResultTotals `json:"totals"`
	Report aggregate.Report       `json:"report"`
}

// Progress receives per-position progress.
type Progress interface {
	Start(total int)
	Advance(done int, pos position.Position)
	Finish()
}

type noProgress struct{}

func (noProgress) Start(int)                      {}
func (noProgress) Advance(int, position.Position) {}
func (noProgress) Finish()                        {}

// Options configures a Runner.
type Options struct {
	// Launch starts the engine. Required.
	Launch Launcher

	// EnginePath is recorded in the outcome and used as the engine name
	// when the engine does not identify itself.
	EnginePath string

	// Diff configures diff computation.
	Diff diff.Options

	// Progress is notified per position. Optional.
	Progress Progress

	// Logger for run events. Optional; defaults to slog.Default().
	Logger *slog.Logger

	// Now returns the current time. Optional.
	Now func() time.Time
}

// Runner executes runs.
type Runner struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Runner.
func New(opts Options) *Runner {
	if opts.Progress == nil {
		opts.Progress = noProgress{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{opts: opts, logger: logger}
}

// Run searches every task in order.
//
// Description:
//
//	Starts the engine, searches each task and, for tasks with a baseline,
//	computes the diff. Per-position errors are classified:
//
//	  - engine.ErrEngineTimeout: recorded as a failure, the engine is
//	    closed and restarted before the next task.
//	  - metric.ErrInvalidMetricInput, engine.ErrMissingFieldDefaulted,
//	    position.ErrInvalidPosition: recorded as a failure.
//	  - diff errors: the fresh result is kept, the diff is recorded as a
//	    failure.
//	  - anything else: fatal, returned as *PositionError.
//
//	The engine is closed on every exit path.
//
// Inputs:
//
//	ctx - Context for cancellation
//	mode - The kind of run, recorded in the outcome
//	tasks - The searches to run
//
// Outputs:
//
//	Outcome - The run outcome. Partial when error is non-nil.
//	error - Non-nil if the run was aborted
//
// Errors:
//
//	engine.ErrProcessSpawn, engine.ErrPipeAttach - The engine could not start
//	*PositionError - A fatal error while searching a task
//	context.Canceled, context.DeadlineExceeded - The run was cancelled
func (r *Runner) Run(ctx context.Context, mode Mode, tasks []Task) (Outcome, error) {
	if r.opts.Launch == nil {
		return Outcome{}, errors.New("runner: no launcher")
	}

	out := Outcome{
		RunID:      uuid.NewString(),
		Mode:       mode,
		Engine:     r.opts.EnginePath,
		EnginePath: r.opts.EnginePath,
		StartedAt:  r.opts.Now().UTC(),
	}
	logger := r.logger.With(slog.String("run_id", out.RunID), slog.String("mode", string(mode)))
	logger.Info("Run started", slog.Int("positions", len(tasks)))

	searcher, err := r.opts.Launch(ctx)
	if err != nil {
		return r.finish(out), fmt.Errorf("start engine: %w", err)
	}
	if name := searcher.Identity().Name; name != "" {
		out.Engine = name
	}
	defer func() {
		if searcher != nil {
			searcher.Close()
		}
	}()

	r.opts.Progress.Start(len(tasks))
	defer r.opts.Progress.Finish()

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			return r.finish(out), err
		}

		if searcher == nil {
			logger.Info("Restarting engine", slog.Int("index", i))
			searcher, err = r.opts.Launch(ctx)
			if err != nil {
				return r.finish(out), &PositionError{Index: i, Position: task.Position, Err: err}
			}
		}

		res, err := searcher.Search(ctx, task.Position, task.Depth)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return r.finish(out), ctxErr
			}
			switch {
			case errors.Is(err, engine.ErrEngineTimeout):
				logger.Warn("Search timed out",
					slog.String("position", task.Position.String()),
					slog.Int("depth", task.Depth),
				)
				searcher.Close()
				searcher = nil
				out.Failures = append(out.Failures, search.NewFailure(task.Position, task.Depth, err))
			case recoverable(err):
				logger.Warn("Search failed",
					slog.String("position", task.Position.String()),
					slog.Int("depth", task.Depth),
					slog.String("error", err.Error()),
				)
				out.Failures = append(out.Failures, search.NewFailure(task.Position, task.Depth, err))
			default:
				return r.finish(out), &PositionError{Index: i, Position: task.Position, Err: err}
			}
			r.opts.Progress.Advance(i+1, task.Position)
			continue
		}

		out.Results = append(out.Results, res)
		if task.Baseline != nil {
			d, err := diff.ComputeWith(*task.Baseline, res, r.opts.Diff)
			if err != nil {
				logger.Warn("Diff failed",
					slog.String("position", task.Position.String()),
					slog.String("error", err.Error()),
				)
				out.Failures = append(out.Failures, search.NewFailure(task.Position, task.Depth, err))
			} else {
				out.Diffs = append(out.Diffs, d)
			}
		}
		r.opts.Progress.Advance(i+1, task.Position)
	}

	out = r.finish(out)
	logger.Info("Run finished",
		slog.Int("results", len(out.Results)),
		slog.Int("failures", len(out.Failures)),
		slog.Duration("elapsed", out.FinishedAt.Sub(out.StartedAt)),
	)
	return out, nil
}

func (r *Runner) finish(out Outcome) Outcome {
	out.FinishedAt = r.opts.Now().UTC()
	out.Totals = aggregate.Results(out.Results)
	out.Report = aggregate.Diffs(out.Diffs)
	return out
}

// recoverable reports whether a search error costs only its own position.
func recoverable(err error) bool {
	return errors.Is(err, metric.ErrInvalidMetricInput) ||
		errors.Is(err, engine.ErrMissingFieldDefaulted) ||
		errors.Is(err, position.ErrInvalidPosition)
}
