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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/AleutianAI/EngineBench/cmd/enginebench/config"
	"github.com/AleutianAI/EngineBench/pkg/logging"
	"github.com/AleutianAI/EngineBench/pkg/ux"
	"github.com/AleutianAI/EngineBench/services/bench/export"
	"github.com/AleutianAI/EngineBench/services/bench/history"
	"github.com/AleutianAI/EngineBench/services/bench/report"
	"github.com/AleutianAI/EngineBench/services/bench/runner"
	"github.com/AleutianAI/EngineBench/services/bench/snapshot"
	"github.com/AleutianAI/EngineBench/services/bench/suite"
	"github.com/AleutianAI/EngineBench/services/bench/telemetry"
	"github.com/AleutianAI/EngineBench/services/bench/watch"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	runEngine   string        // Engine binary
	runDepth    int           // Search depth
	runSnapshot string        // Baseline snapshot location
	runFens     string        // Suite file for suite mode
	runOutput   string        // Where --save writes (default: the snapshot)
	runSave     bool          // Write the fresh results as a snapshot
	runForce    bool          // Overwrite an existing snapshot without asking
	runAgainst  string        // Diff against a stored run instead of the snapshot
	runWatch    bool          // Re-run whenever the engine binary changes
	runTimeout  time.Duration // Idle read timeout during a search
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// runCmd benchmarks the engine.
//
// # Description
//
// Suite mode searches every position of the suite file (or the built-in
// suite) and prints the results. Diff mode, selected when the snapshot
// exists or --against-run is given, searches every baseline position again
// and prints the comparison. Positions that fail are listed after the
// table; the run still succeeds.
//
// # Examples
//
//	enginebench run -e ./engine                  # suite or diff, print only
//	enginebench run -e ./engine -S               # also write the snapshot
//	enginebench run -e ./engine -d 12 --nodes    # re-search snapshot at depth 12
//	enginebench run -e ./engine --watch          # re-run after every rebuild
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search the benchmark positions and print or compare the results",
	Long: `Searches each position to a fixed depth with the engine and prints
nodes, time, speed, branching factor, score and best move.

If the snapshot exists (default ./bench_snapshot.json, or gs://bucket/object)
the snapshot positions are searched again and compared with the stored
results. Otherwise the suite (--fens, or the built-in suite) is searched.

Examples:
  enginebench run -e ./engine                  # print results or diff
  enginebench run -e ./engine --save           # write the snapshot
  enginebench run -e ./engine --nodes --nps    # only some columns
  enginebench run -e ./engine --against-run 3f2a
  enginebench run -e ./engine --watch`,
	Args: cobra.NoArgs,
	RunE: runRunCommand,
}

func registerRunFlags() {
	bindRunFlags(runCmd.Flags())
}

func bindRunFlags(f *pflag.FlagSet) {
	f.StringVarP(&runEngine, "engine", "e", "", "Engine binary (or engine.path, "+config.EnvEngine+")")
	f.IntVarP(&runDepth, "depth", "d", config.DefaultDepth,
		"Search depth. In diff mode only applied when set; otherwise each snapshot record keeps its depth")
	f.StringVarP(&runSnapshot, "snapshot", "s", config.DefaultSnapshot, "Snapshot to compare against (path or gs://bucket/object)")
	f.StringVarP(&runFens, "fens", "f", "", "Suite file of positions, one per line (default: built-in suite)")
	f.StringVarP(&runOutput, "output", "o", "", "Where --save writes the snapshot (default: the snapshot path)")
	f.BoolVarP(&runSave, "save", "S", false, "Write this run's results as a snapshot")
	f.BoolVar(&runForce, "force", false, "Overwrite an existing snapshot without asking")
	f.StringVar(&runAgainst, "against-run", "", "Compare against a run from the history (ID or unique prefix)")
	f.BoolVar(&runWatch, "watch", false, "Re-run whenever the engine binary changes")
	f.DurationVar(&runTimeout, "timeout", 0, "Abort a search after this long without engine output (0 disables)")
	addFieldFlags(f)
}

// runRequest holds the per-run choices that are not part of the config file.
type runRequest struct {
	fields   report.Fields
	depthSet bool
	output   string
	against  string
	save     bool
	force    bool
}

// applyRunFlags layers the flags set on flags over cfg.
func applyRunFlags(cfg config.Config, flags *pflag.FlagSet) (config.Config, runRequest) {
	if flags.Changed("engine") {
		cfg.Engine.Path = runEngine
	}
	if flags.Changed("depth") {
		cfg.Bench.Depth = runDepth
	}
	if flags.Changed("snapshot") {
		cfg.Snapshot.Path = runSnapshot
	}
	if flags.Changed("fens") {
		cfg.Bench.Suite = runFens
	}
	if flags.Changed("timeout") {
		cfg.Engine.ReadTimeout = runTimeout
	}
	if names := selectedFieldNames(flags); names != nil {
		cfg.Bench.Fields = names
	}

	req := runRequest{
		fields:   fieldsFromNames(cfg.Bench.Fields),
		depthSet: flags.Changed("depth"),
		output:   cfg.Snapshot.Path,
		against:  runAgainst,
		save:     runSave,
		force:    runForce,
	}
	if runOutput != "" {
		req.output = runOutput
	}
	return cfg, req
}

func runRunCommand(cmd *cobra.Command, _ []string) error {
	cfg, req := applyRunFlags(appConfig, cmd.Flags())
	if cfg.Engine.Path == "" {
		return fmt.Errorf("%w: engine path is required (--engine, engine.path or %s)",
			config.ErrConfigInvalid, config.EnvEngine)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := startTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(providers)

	session, err := newBenchSession(cfg, req, appLogger)
	if err != nil {
		return err
	}
	defer session.Close()

	_, err = session.Once(ctx)
	if errors.Is(err, context.Canceled) {
		ux.Warning("Run interrupted")
		return err
	}
	if !runWatch {
		return err
	}
	if err != nil {
		ux.Error(err.Error())
	}
	return session.Watch(ctx)
}

// =============================================================================
// SESSION
// =============================================================================

// benchSession holds what stays open across the runs of one command
// invocation: the history database, the Influx client and the launcher.
type benchSession struct {
	cfg      config.Config
	req      runRequest
	logger   *logging.Logger
	launch   runner.Launcher
	progress runner.Progress
	stdout   io.Writer
	confirm  func(title, description string) (bool, error)

	// history and influx are nil when disabled.
	history *history.Store
	influx  *export.Exporter
}

// newBenchSession opens the history database and the Influx client.
//
// # Description
//
// A history database that cannot be opened (for example because "serve"
// holds its lock) is logged and skipped, unless --against-run needs it.
//
// # Errors
//
//   - history open errors when req.against is set
//   - export.New errors for an invalid influx section
func newBenchSession(cfg config.Config, req runRequest, logger *logging.Logger) (*benchSession, error) {
	s := &benchSession{
		cfg:     cfg,
		req:     req,
		logger:  logger,
		launch:  runner.EngineLauncher(cfg.Engine.DriverConfig(), logger.Slog()),
		stdout:  os.Stdout,
		confirm: ux.Confirm,
	}
	if ux.ShouldShowProgress() {
		s.progress = ux.NewSearchProgress(os.Stderr)
	}

	if !cfg.History.Disabled {
		store, err := history.Open(history.Config{Path: cfg.History.Path, Logger: logger.Slog()})
		switch {
		case err == nil:
			s.history = store
		case req.against != "":
			return nil, err
		default:
			logger.Warn("Run history unavailable", slog.String("path", cfg.History.Path), slog.String("error", err.Error()))
		}
	}

	if cfg.Influx.Enabled() {
		exp, err := export.New(cfg.Influx)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.influx = exp
	}
	return s, nil
}

// Close releases the history database and the Influx client.
func (s *benchSession) Close() {
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.logger.Warn("Failed to close run history", slog.String("error", err.Error()))
		}
	}
	if s.influx != nil {
		s.influx.Close()
	}
}

// plan decides the mode and builds the task list.
//
// # Description
//
// --against-run loads a stored run as the baseline. Otherwise an existing
// snapshot selects diff mode and a missing one selects suite mode. In diff
// mode each baseline record keeps its depth unless --depth was given.
//
// # Errors
//
//   - history.ErrRunNotFound, history.ErrAmbiguousRunID
//   - snapshot.ErrFileIO, snapshot.ErrMalformed
//   - suite.ErrFileIO, suite.ErrMalformed
func (s *benchSession) plan(ctx context.Context) (runner.Mode, []runner.Task, error) {
	diffDepth := 0
	if s.req.depthSet {
		diffDepth = s.cfg.Bench.Depth
	}

	if s.req.against != "" {
		if s.history == nil {
			return "", nil, errors.New("--against-run needs the run history, which is disabled")
		}
		base, err := s.history.Get(ctx, s.req.against)
		if err != nil {
			return "", nil, fmt.Errorf("load run %s: %w", s.req.against, err)
		}
		return runner.ModeDiff, runner.DiffTasks(base.Results, diffDepth), nil
	}

	store, err := snapshot.Open(ctx, s.cfg.Snapshot.Path, snapshot.Options{CredentialsFile: s.cfg.Snapshot.GCSCredentials})
	if err != nil {
		return "", nil, err
	}
	defer store.Close()

	baseline, err := store.Load(ctx)
	switch {
	case err == nil:
		s.logger.Debug("Comparing against snapshot", slog.String("snapshot", store.Location()), slog.Int("positions", len(baseline)))
		return runner.ModeDiff, runner.DiffTasks(baseline, diffDepth), nil
	case !errors.Is(err, snapshot.ErrNotFound):
		return "", nil, err
	}

	positions := suite.Default()
	if s.cfg.Bench.Suite != "" {
		positions, err = suite.Load(s.cfg.Bench.Suite)
		if err != nil {
			return "", nil, err
		}
	}
	return runner.ModeSuite, runner.SuiteTasks(positions, s.cfg.Bench.Depth), nil
}

// Once plans, runs, prints and publishes one benchmark.
//
// # Outputs
//
//   - runner.Outcome: The outcome, partial when error is non-nil
//   - error: Planning, fatal run, rendering or publishing errors
func (s *benchSession) Once(ctx context.Context) (runner.Outcome, error) {
	mode, tasks, err := s.plan(ctx)
	if err != nil {
		return runner.Outcome{}, err
	}

	r := runner.New(runner.Options{
		Launch:     s.launch,
		EnginePath: s.cfg.Engine.Path,
		Diff:       s.cfg.Bench.DiffOptions(),
		Progress:   s.progress,
		Logger:     s.logger.Slog(),
	})
	out, err := r.Run(ctx, mode, tasks)
	if err != nil {
		if len(out.Failures) > 0 {
			_ = report.NewRenderer(s.stdout, nil).Failures(out.Failures)
		}
		return out, err
	}

	if err := renderOutcome(s.stdout, out, s.req.fields); err != nil {
		return out, err
	}

	sinks, release, err := s.sinks(ctx)
	if err != nil {
		return out, err
	}
	defer release()
	if err := runner.Publish(ctx, out, sinks...); err != nil {
		return out, err
	}
	for _, sink := range sinks {
		if snap, ok := sink.(runner.SnapshotSink); ok {
			ux.Success(fmt.Sprintf("Saved %d results to %s", len(out.Results), snap.Store.Location()))
		}
	}
	return out, nil
}

// sinks returns the publishing targets for a finished run and a func that
// releases the ones opened here.
func (s *benchSession) sinks(ctx context.Context) ([]runner.Sink, func(), error) {
	var sinks []runner.Sink
	release := func() {}

	if s.history != nil {
		sinks = append(sinks, s.history)
	}
	if s.influx != nil {
		sinks = append(sinks, s.influx)
	}
	if !s.req.save {
		return sinks, release, nil
	}

	store, err := snapshot.Open(ctx, s.req.output, snapshot.Options{CredentialsFile: s.cfg.Snapshot.GCSCredentials})
	if err != nil {
		return nil, release, err
	}
	ok, err := s.confirmOverwrite(ctx, store)
	if err != nil || !ok {
		store.Close()
		return sinks, release, err
	}
	return append(sinks, runner.SnapshotSink{Store: store}), func() { store.Close() }, nil
}

// confirmOverwrite asks before replacing an existing snapshot. Without a
// terminal the snapshot is replaced. A yes is remembered for later runs of
// the session.
func (s *benchSession) confirmOverwrite(ctx context.Context, store snapshot.Store) (bool, error) {
	if s.req.force {
		return true, nil
	}
	exists, err := store.Exists(ctx)
	if err != nil || !exists {
		return err == nil, err
	}

	ok, err := s.confirm(
		fmt.Sprintf("Overwrite %s?", store.Location()),
		"The existing snapshot will be replaced by the results of this run.")
	switch {
	case errors.Is(err, ux.ErrNotInteractive):
		return true, nil
	case err != nil:
		return false, err
	}
	if !ok {
		ux.Warning("Snapshot not saved")
		return false, nil
	}
	s.req.force = true
	return true, nil
}

// Watch re-runs the benchmark whenever the engine binary changes, until
// ctx is cancelled.
func (s *benchSession) Watch(ctx context.Context) error {
	w, err := watch.New(s.cfg.Engine.Path, watch.DefaultDebounce, s.logger.Slog())
	if err != nil {
		return err
	}
	defer w.Close()

	ux.Muted(fmt.Sprintf("Watching %s for changes (ctrl+c to stop)", w.Path()))
	err = w.Run(ctx, func(ctx context.Context) {
		if _, err := s.Once(ctx); err != nil && ctx.Err() == nil {
			ux.Error(err.Error())
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// renderOutcome prints the run header, the table and the failures.
func renderOutcome(w io.Writer, out runner.Outcome, fields report.Fields) error {
	ux.KeyValue("Engine", out.Engine)
	ux.KeyValue("Mode", string(out.Mode))
	ux.KeyValue("Run", out.RunID)

	r := report.NewRenderer(w, report.Columns(fields))
	var err error
	if out.Mode == runner.ModeDiff {
		err = r.Diffs(out.Diffs, out.Report)
	} else {
		err = r.Results(out.Results, out.Totals)
	}
	if err != nil {
		return err
	}
	return r.Failures(out.Failures)
}

func startTelemetry(ctx context.Context, cfg telemetry.Config) (*telemetry.Providers, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = serviceName
	}
	cfg.ServiceVersion = version
	return telemetry.Init(ctx, cfg)
}

func shutdownTelemetry(p *telemetry.Providers) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		slog.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
	}
}
