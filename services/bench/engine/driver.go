// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/AleutianAI/EngineBench/services/bench/metric"
	"github.com/AleutianAI/EngineBench/services/bench/position"
	"github.com/AleutianAI/EngineBench/services/bench/search"
	"github.com/AleutianAI/EngineBench/services/bench/uci"
	"golang.org/x/time/rate"
)

// maxLineBytes bounds one engine output line. Long pv lines stay well below.
const maxLineBytes = 1 << 20

// =============================================================================
// DRIVER STATE
// =============================================================================

// State is the lifecycle state of a Driver.
type State int

const (
	// StateUnstarted is the initial state before Start is called.
	StateUnstarted State = iota

	// StateHandshaking means the process is running and "uci" was sent.
	StateHandshaking

	// StateReady means the handshake completed and no search is running.
	StateReady

	// StateSearching means a search is in progress.
	StateSearching

	// StateClosed means the process and its pipes have been released.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	names := []string{"unstarted", "handshaking", "ready", "searching", "closed"}
	if int(s) >= 0 && int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// =============================================================================
// DRIVER
// =============================================================================

// Driver owns one engine process and runs the UCI protocol against it.
//
// Description:
//
//	Start spawns the engine and performs the handshake; Search runs one
//	depth-limited search and returns its Result; Close terminates the
//	engine. The process and its pipes are released on every exit path:
//	a failed Start, a read timeout, a closed output stream, a cancelled
//	context and an explicit Close all end in StateClosed.
//
// Thread Safety:
//
//	State and Identity are safe for concurrent use. Start and Search must
//	not be called concurrently; the driver runs one search at a time.
//	Close may be called from any goroutine and is idempotent.
type Driver struct {
	config Config
	logger *slog.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	writer *uci.Writer

	lines   chan string
	readErr error
	done    chan struct{}

	identity uci.Identity

	state   State
	stateMu sync.RWMutex

	closeOnce sync.Once
	skipLog   rate.Sometimes
}

// NewDriver creates a driver for config (not started).
//
// Inputs:
//
//	config - Engine process configuration
//	logger - Logger for lifecycle events. Nil uses slog.Default().
//
// Outputs:
//
//	*Driver - The configured (but not started) driver
func NewDriver(config Config, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		config:  config,
		logger:  logger.With(slog.String("engine", config.Path)),
		lines:   make(chan string),
		done:    make(chan struct{}),
		state:   StateUnstarted,
		skipLog: rate.Sometimes{First: 5, Interval: 10 * time.Second},
	}
}

// Start spawns the engine and completes the UCI handshake.
//
// Description:
//
//	Sends "uci" and waits for "uciok", recording any "id" lines on the
//	way. When options are configured they are sent next, followed by
//	"isready"/"readyok". The whole exchange is bounded by
//	Config.HandshakeTimeout. On any failure the engine is closed.
//
// Inputs:
//
//	ctx - Context for cancellation
//
// Outputs:
//
//	error - Non-nil if the engine could not be started
//
// Errors:
//
//	ErrProcessSpawn - Binary not found or could not be executed
//	ErrPipeAttach - stdin or stdout pipe could not be created
//	ErrEngineUnavailable - Output closed before "uciok"
//	ErrEngineTimeout - No "uciok" within the handshake timeout
//	ErrEngineClosed - The driver was already closed
//	ErrNotReady - Start was already called
func (d *Driver) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("ctx must not be nil")
	}

	d.stateMu.Lock()
	switch d.state {
	case StateUnstarted:
	case StateClosed:
		d.stateMu.Unlock()
		return ErrEngineClosed
	default:
		state := d.state
		d.stateMu.Unlock()
		return fmt.Errorf("%w: start called in state %s", ErrNotReady, state)
	}
	d.state = StateHandshaking
	d.stateMu.Unlock()

	if err := d.spawn(); err != nil {
		recordEngineSpawn(ctx, d.config.Path, false)
		d.abort()
		return err
	}
	recordEngineSpawn(ctx, d.config.Path, true)

	if err := d.handshake(ctx); err != nil {
		d.abort()
		return err
	}

	d.setState(StateReady)
	id := d.Identity()
	d.logger.Info("Engine ready",
		slog.String("name", id.Name),
		slog.String("author", id.Author),
		slog.Int("options", len(d.config.Options)),
	)
	return nil
}

// spawn starts the process and the output pump.
func (d *Driver) spawn() error {
	path, err := exec.LookPath(d.config.Path)
	if err != nil {
		d.logger.Warn("Engine binary not found", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %s: %v", ErrProcessSpawn, d.config.Path, err)
	}

	cmd := exec.Command(path, d.config.Args...)
	cmd.Dir = d.config.Dir
	if d.config.Env != nil {
		cmd.Env = d.config.Env
	}
	cmd.Stderr = d.config.Stderr
	configureProcess(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: stdin: %v", ErrPipeAttach, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return fmt.Errorf("%w: stdout: %v", ErrPipeAttach, err)
	}

	d.logger.Info("Starting engine",
		slog.String("command", path),
		slog.Any("args", d.config.Args),
	)
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		return fmt.Errorf("%w: %s: %v", ErrProcessSpawn, path, err)
	}

	d.cmd = cmd
	d.stdin = stdin
	d.writer = uci.NewWriter(stdin)

	go d.pump(stdout)
	return nil
}

// pump forwards output lines until EOF. After Close it keeps draining so the
// engine never blocks on a full pipe.
func (d *Driver) pump(r io.Reader) {
	defer close(d.lines)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		select {
		case d.lines <- scanner.Text():
		case <-d.done:
		}
	}
	d.readErr = scanner.Err()
}

// handshake runs uci/uciok, then the optional setoption/isready exchange.
func (d *Driver) handshake(ctx context.Context) error {
	expire, stop := deadline(d.config.HandshakeTimeout)
	defer stop()

	if err := d.send(uci.Handshake{}); err != nil {
		return err
	}

	for acked := false; !acked; {
		line, err := d.next(ctx, expire, "uciok")
		if err != nil {
			return err
		}
		msg, err := uci.Parse(line)
		if err != nil {
			d.skip(ctx, line, err)
			continue
		}
		switch m := msg.(type) {
		case uci.Identity:
			d.recordIdentity(m)
		case uci.HandshakeAck:
			acked = true
		}
	}

	if len(d.config.Options) == 0 {
		return nil
	}
	for _, opt := range d.config.Options {
		if err := d.send(uci.SetOption{Name: opt.Name, Value: opt.Value}); err != nil {
			return err
		}
	}
	if err := d.send(uci.IsReady{}); err != nil {
		return err
	}
	for {
		line, err := d.next(ctx, expire, "readyok")
		if err != nil {
			return err
		}
		if msg, err := uci.Parse(line); err == nil {
			if _, ok := msg.(uci.ReadyAck); ok {
				return nil
			}
		}
	}
}

func (d *Driver) recordIdentity(id uci.Identity) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	if id.Name != "" {
		d.identity.Name = id.Name
	}
	if id.Author != "" {
		d.identity.Author = id.Author
	}
}

// Search runs one depth-limited search of pos.
//
// Description:
//
//	Sends ucinewgame, position and go depth, then reads progress lines
//	until "bestmove". Each progress field keeps the last value reported
//	for it. Fields never reported are handled by Config.MissingFields.
//	Malformed lines are skipped. When Config.ReadTimeout elapses between
//	two lines, or ctx is cancelled, the engine is killed and the driver
//	is closed.
//
// Inputs:
//
//	ctx - Context for cancellation
//	pos - The position to search
//	depth - Search depth limit, must be positive
//
// Outputs:
//
//	search.Result - The search outcome
//	error - Non-nil if no result was produced
//
// Errors:
//
//	metric.ErrInvalidMetricInput - Non-positive depth or zero reported time
//	position.ErrInvalidPosition - pos is the zero value
//	ErrMissingFieldDefaulted - Missing fields under MissingFail (as *MissingFieldError)
//	ErrEngineUnavailable - Output closed or input broken mid-search
//	ErrEngineTimeout - Read timeout elapsed
//	ErrEngineClosed - The driver is closed
//	ErrNotReady - The driver is not in StateReady
func (d *Driver) Search(ctx context.Context, pos position.Position, depth int) (search.Result, error) {
	if ctx == nil {
		return search.Result{}, fmt.Errorf("ctx must not be nil")
	}
	if depth <= 0 {
		return search.Result{}, fmt.Errorf("%w: depth must be positive, got %d", metric.ErrInvalidMetricInput, depth)
	}
	if pos.IsZero() {
		return search.Result{}, fmt.Errorf("%w: empty position", position.ErrInvalidPosition)
	}

	d.stateMu.Lock()
	switch d.state {
	case StateReady:
	case StateClosed:
		d.stateMu.Unlock()
		return search.Result{}, ErrEngineClosed
	default:
		state := d.state
		d.stateMu.Unlock()
		return search.Result{}, fmt.Errorf("%w: search called in state %s", ErrNotReady, state)
	}
	d.state = StateSearching
	d.stateMu.Unlock()

	ctx, span := startSearchSpan(ctx, d.config.Path, pos.String(), depth)
	defer span.End()
	start := time.Now()

	res, err := d.runSearch(ctx, pos, depth)

	recordSearchMetrics(ctx, d.config.Path, time.Since(start), uint64(res.Nodes), err == nil)
	setSearchSpanResult(span, uint64(res.Nodes), err == nil)
	if err != nil {
		span.RecordError(err)
	}
	return res, err
}

func (d *Driver) runSearch(ctx context.Context, pos position.Position, depth int) (search.Result, error) {
	d.logger.Debug("Searching",
		slog.String("position", pos.String()),
		slog.Int("depth", depth),
	)

	for _, cmd := range []uci.Command{
		uci.NewGame{},
		uci.SetPosition{Position: pos},
		uci.Go{Depth: depth},
	} {
		if err := d.send(cmd); err != nil {
			d.abort()
			return search.Result{}, fmt.Errorf("%s depth %d: %w", pos, depth, err)
		}
	}

	var progress uci.ProgressInfo
	for {
		expire, stop := deadline(d.config.ReadTimeout)
		line, err := d.next(ctx, expire, "bestmove")
		stop()
		if err != nil {
			d.abort()
			return search.Result{}, fmt.Errorf("%s depth %d: %w", pos, depth, err)
		}

		msg, err := uci.Parse(line)
		if err != nil {
			d.skip(ctx, line, err)
			continue
		}
		switch m := msg.(type) {
		case uci.ProgressInfo:
			progress = progress.Merge(m)
		case uci.FinalMove:
			d.setState(StateReady)
			return d.finish(pos, depth, progress, m)
		}
	}
}

// finish builds the Result for a completed search.
func (d *Driver) finish(pos position.Position, depth int, progress uci.ProgressInfo, final uci.FinalMove) (search.Result, error) {
	missing := progress.Missing()
	if len(missing) > 0 {
		if d.config.missingPolicy() == MissingFail {
			return search.Result{}, &MissingFieldError{Position: pos, Depth: depth, Fields: missing}
		}
		d.logger.Warn("Engine result fields defaulted to zero",
			slog.String("position", pos.String()),
			slog.Int("depth", depth),
			slog.Any("fields", missing),
		)
	}

	res, err := search.New(pos, depth,
		progress.Nodes.Or(0),
		progress.Time.Or(0),
		progress.Score.Or(0),
		final.Move,
	)
	if err != nil {
		return search.Result{}, err
	}

	if final.Move != "" && !pos.IsLegal(final.Move) {
		d.logger.Warn("Engine best move is not legal",
			slog.String("position", pos.String()),
			slog.String("move", final.Move),
		)
	}
	return res.WithDefaulted(missing), nil
}

// =============================================================================
// SHUTDOWN
// =============================================================================

// Close asks the engine to quit and releases the process and its pipes.
//
// Description:
//
//	Sends "quit", closes stdin and waits up to Config.ShutdownGrace for the
//	process to exit before killing its process group. Subsequent calls are
//	no-ops.
//
// Outputs:
//
//	error - Always nil; the driver is closed either way
func (d *Driver) Close() error {
	d.shutdown(true)
	return nil
}

// abort kills the engine without a grace period.
func (d *Driver) abort() {
	d.shutdown(false)
}

func (d *Driver) shutdown(graceful bool) {
	d.closeOnce.Do(func() {
		d.stateMu.Lock()
		prev := d.state
		d.state = StateClosed
		d.stateMu.Unlock()

		close(d.done)

		if d.cmd == nil {
			return
		}

		d.logger.Info("Shutting down engine",
			slog.String("state", prev.String()),
			slog.Bool("graceful", graceful),
		)

		if graceful {
			_ = d.writer.Send(uci.Quit{})
		}
		_ = d.stdin.Close()

		exited := make(chan error, 1)
		go func() { exited <- d.cmd.Wait() }()

		if graceful {
			select {
			case err := <-exited:
				d.logExit(err)
				return
			case <-time.After(d.config.shutdownGrace()):
				d.logger.Warn("Engine ignored quit, killing")
			}
		}

		if err := killProcess(d.cmd); err != nil {
			d.logger.Warn("Failed to kill engine", slog.String("error", err.Error()))
		}
		d.logExit(<-exited)
	})
}

func (d *Driver) logExit(err error) {
	if err != nil {
		d.logger.Debug("Engine exited", slog.String("status", err.Error()))
		return
	}
	d.logger.Debug("Engine exited")
}

// =============================================================================
// HELPERS
// =============================================================================

// send writes one command.
func (d *Driver) send(cmd uci.Command) error {
	if err := d.writer.Send(cmd); err != nil {
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return nil
}

// next returns the next output line. waiting names the awaited message for
// error context.
func (d *Driver) next(ctx context.Context, expire <-chan time.Time, waiting string) (string, error) {
	select {
	case line, ok := <-d.lines:
		if !ok {
			if d.readErr != nil {
				return "", fmt.Errorf("%w: output closed waiting for %s: %v", ErrEngineUnavailable, waiting, d.readErr)
			}
			return "", fmt.Errorf("%w: output closed waiting for %s", ErrEngineUnavailable, waiting)
		}
		return line, nil
	case <-expire:
		return "", fmt.Errorf("%w: waiting for %s", ErrEngineTimeout, waiting)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// skip records a malformed line. Logging is throttled.
func (d *Driver) skip(ctx context.Context, line string, err error) {
	recordSkippedLine(ctx, d.config.Path)
	d.skipLog.Do(func() {
		d.logger.Debug("Skipping malformed engine line",
			slog.String("line", line),
			slog.String("error", err.Error()),
		)
	})
}

// deadline returns a timer channel for timeout, or nil when timeout is not
// positive. The returned func stops the timer.
func deadline(timeout time.Duration) (<-chan time.Time, func()) {
	if timeout <= 0 {
		return nil, func() {}
	}
	t := time.NewTimer(timeout)
	return t.C, func() { t.Stop() }
}

func (d *Driver) setState(state State) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	if d.state != StateClosed {
		d.state = state
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns the current driver state.
func (d *Driver) State() State {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.state
}

// Identity returns the name and author the engine reported during the handshake.
func (d *Driver) Identity() uci.Identity {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.identity
}

// Path returns the configured engine binary.
func (d *Driver) Path() string {
	return d.config.Path
}
