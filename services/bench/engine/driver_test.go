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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/EngineBench/services/bench/metric"
	"github.com/AleutianAI/EngineBench/services/bench/position"
	"github.com/AleutianAI/EngineBench/services/bench/uci"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	helperScriptEnv = "ENGINEBENCH_HELPER_ENGINE"
	helperLogEnv    = "ENGINEBENCH_HELPER_LOG"
)

// TestHelperEngine is not a real test. The driver tests re-execute the test
// binary with helperScriptEnv set, turning this process into a scripted UCI
// engine.
func TestHelperEngine(t *testing.T) {
	script := os.Getenv(helperScriptEnv)
	if script == "" {
		return
	}
	os.Exit(runHelperEngine(script, os.Getenv(helperLogEnv)))
}

func runHelperEngine(script, logPath string) int {
	var commandLog *os.File
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err == nil {
			commandLog = f
			defer f.Close()
		}
	}

	out := bufio.NewWriter(os.Stdout)
	say := func(lines ...string) {
		for _, l := range lines {
			_, _ = out.WriteString(l + "\n")
		}
		_ = out.Flush()
	}

	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		line := in.Text()
		if commandLog != nil {
			_, _ = fmt.Fprintln(commandLog, line)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "uci":
			switch script {
			case "hang_handshake":
				continue
			case "no_uciok":
				say("id name Broken")
				return 1
			}
			say(
				"HelperEngine 1.0 by EngineBench",
				"id name HelperEngine 1.0",
				"id author EngineBench",
				"option name Hash type spin default 16 min 1 max 1024",
				"uciok",
			)
		case "isready":
			say("readyok")
		case "go":
			switch script {
			case "silent_search":
				continue
			case "crash_search":
				return 2
			case "garbage":
				say(
					"info nodes abc",
					"info string nodes whatever",
					"info depth 3 seldepth 5 score cp 12 nodes 300 nps 10000 time 30 pv d2d4 d7d5",
					"bestmove d2d4",
				)
			case "mate":
				say("info depth 3 nodes 90 time 9 score mate 2", "bestmove e2e4")
			case "no_time":
				say("info depth 1 nodes 40 score cp 3", "bestmove e2e4")
			default:
				say("info string searching", "nodes 100 time 50", "nodes 250", "bestmove e2e4 ponder e7e5")
			}
		case "quit":
			if script == "ignore_quit" {
				continue
			}
			return 0
		}
	}
	return 0
}

// helperConfig returns a Config that runs the scripted engine and the path
// of the file the engine logs its received commands to.
func helperConfig(t *testing.T, script string) (Config, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "commands.log")

	cfg := DefaultConfig(os.Args[0])
	cfg.Args = []string{"-test.run=^TestHelperEngine$"}
	cfg.Env = append(os.Environ(), helperScriptEnv+"="+script, helperLogEnv+"="+logPath)
	cfg.HandshakeTimeout = 5 * time.Second
	cfg.ShutdownGrace = 2 * time.Second
	return cfg, logPath
}

func receivedCommands(t *testing.T, logPath string) []string {
	t.Helper()
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func startHelper(t *testing.T, cfg Config) *Driver {
	t.Helper()
	d := NewDriver(cfg, nil)
	require.NoError(t, d.Start(context.Background()))
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDriver_Search(t *testing.T) {
	t.Run("last write wins per field", func(t *testing.T) {
		cfg, _ := helperConfig(t, "default")
		d := startHelper(t, cfg)

		res, err := d.Search(context.Background(), position.Start(), 5)
		require.NoError(t, err)

		assert.Equal(t, metric.Nodes(250), res.Nodes)
		assert.Equal(t, metric.Millis(50), res.Time)
		assert.Equal(t, metric.Speed(5), res.Speed)
		assert.Equal(t, metric.Score(0), res.Score)
		assert.Equal(t, []string{uci.FieldScore}, res.Defaulted)
		assert.Equal(t, "e2e4", res.BestMove)
		assert.Equal(t, 5, res.Depth)
		assert.True(t, res.Position.IsStart())
		assert.Equal(t, StateReady, d.State())
	})

	t.Run("handshake precedes the search", func(t *testing.T) {
		cfg, logPath := helperConfig(t, "default")
		d := NewDriver(cfg, nil)
		require.NoError(t, d.Start(context.Background()))

		_, err := d.Search(context.Background(), position.Start(), 5)
		require.NoError(t, err)
		require.NoError(t, d.Close())

		assert.Equal(t, []string{
			"uci",
			"ucinewgame",
			"position startpos",
			"go depth 5",
			"quit",
		}, receivedCommands(t, logPath))
	})

	t.Run("repeated searches", func(t *testing.T) {
		cfg, _ := helperConfig(t, "garbage")
		d := startHelper(t, cfg)

		kiwipete := position.MustParse("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
		for _, pos := range []position.Position{position.Start(), kiwipete, position.Start()} {
			res, err := d.Search(context.Background(), pos, 3)
			require.NoError(t, err)
			assert.Equal(t, metric.Nodes(300), res.Nodes)
			assert.Equal(t, metric.Millis(30), res.Time)
			assert.Equal(t, metric.Score(12), res.Score)
			assert.Empty(t, res.Defaulted)
			assert.Equal(t, pos, res.Position)
		}
	})

	t.Run("mate score", func(t *testing.T) {
		cfg, _ := helperConfig(t, "mate")
		d := startHelper(t, cfg)

		res, err := d.Search(context.Background(), position.Start(), 3)
		require.NoError(t, err)
		assert.Equal(t, metric.MateScore-2, res.Score)
	})

	t.Run("missing time is an invalid metric input", func(t *testing.T) {
		cfg, _ := helperConfig(t, "no_time")
		d := startHelper(t, cfg)

		_, err := d.Search(context.Background(), position.Start(), 1)
		assert.ErrorIs(t, err, metric.ErrInvalidMetricInput)
		assert.Equal(t, StateReady, d.State())
	})

	t.Run("fail policy reports missing fields", func(t *testing.T) {
		cfg, _ := helperConfig(t, "default")
		cfg.MissingFields = MissingFail
		d := startHelper(t, cfg)

		_, err := d.Search(context.Background(), position.Start(), 5)
		require.ErrorIs(t, err, ErrMissingFieldDefaulted)

		var missing *MissingFieldError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, []string{uci.FieldScore}, missing.Fields)
		assert.Equal(t, 5, missing.Depth)
		assert.Equal(t, StateReady, d.State())
	})

	t.Run("rejects non-positive depth without touching the engine", func(t *testing.T) {
		cfg, _ := helperConfig(t, "default")
		d := startHelper(t, cfg)

		_, err := d.Search(context.Background(), position.Start(), 0)
		assert.ErrorIs(t, err, metric.ErrInvalidMetricInput)
		assert.Equal(t, StateReady, d.State())
	})
}

func TestDriver_Options(t *testing.T) {
	cfg, logPath := helperConfig(t, "default")
	cfg.Options = []Option{{Name: "Hash", Value: "32"}, {Name: "Clear Hash"}}
	d := NewDriver(cfg, nil)
	require.NoError(t, d.Start(context.Background()))
	require.NoError(t, d.Close())

	assert.Equal(t, []string{
		"uci",
		"setoption name Hash value 32",
		"setoption name Clear Hash",
		"isready",
		"quit",
	}, receivedCommands(t, logPath))
}

func TestDriver_Identity(t *testing.T) {
	cfg, _ := helperConfig(t, "default")
	d := startHelper(t, cfg)

	assert.Equal(t, uci.Identity{Name: "HelperEngine 1.0", Author: "EngineBench"}, d.Identity())
}

func TestDriver_Failures(t *testing.T) {
	t.Run("missing binary", func(t *testing.T) {
		d := NewDriver(DefaultConfig(filepath.Join(t.TempDir(), "no-such-engine")), nil)
		err := d.Start(context.Background())
		assert.ErrorIs(t, err, ErrProcessSpawn)
		assert.True(t, IsFatal(err))
		assert.Equal(t, StateClosed, d.State())
	})

	t.Run("output closes before uciok", func(t *testing.T) {
		cfg, _ := helperConfig(t, "no_uciok")
		d := NewDriver(cfg, nil)
		err := d.Start(context.Background())
		assert.ErrorIs(t, err, ErrEngineUnavailable)
		assert.Equal(t, StateClosed, d.State())
	})

	t.Run("handshake timeout", func(t *testing.T) {
		cfg, _ := helperConfig(t, "hang_handshake")
		cfg.HandshakeTimeout = 200 * time.Millisecond
		d := NewDriver(cfg, nil)
		err := d.Start(context.Background())
		assert.ErrorIs(t, err, ErrEngineTimeout)
		assert.False(t, IsFatal(err))
		assert.Equal(t, StateClosed, d.State())
	})

	t.Run("search read timeout kills the engine", func(t *testing.T) {
		cfg, _ := helperConfig(t, "silent_search")
		cfg.ReadTimeout = 200 * time.Millisecond
		d := startHelper(t, cfg)

		_, err := d.Search(context.Background(), position.Start(), 4)
		assert.ErrorIs(t, err, ErrEngineTimeout)
		assert.Equal(t, StateClosed, d.State())

		_, err = d.Search(context.Background(), position.Start(), 4)
		assert.ErrorIs(t, err, ErrEngineClosed)
	})

	t.Run("engine exits mid-search", func(t *testing.T) {
		cfg, _ := helperConfig(t, "crash_search")
		d := startHelper(t, cfg)

		_, err := d.Search(context.Background(), position.Start(), 4)
		assert.ErrorIs(t, err, ErrEngineUnavailable)
		assert.Equal(t, StateClosed, d.State())
	})

	t.Run("cancellation", func(t *testing.T) {
		cfg, _ := helperConfig(t, "silent_search")
		d := startHelper(t, cfg)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		_, err := d.Search(ctx, position.Start(), 4)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, StateClosed, d.State())
	})
}

func TestDriver_Lifecycle(t *testing.T) {
	t.Run("search before start", func(t *testing.T) {
		cfg, _ := helperConfig(t, "default")
		d := NewDriver(cfg, nil)
		_, err := d.Search(context.Background(), position.Start(), 3)
		assert.ErrorIs(t, err, ErrNotReady)
		assert.Equal(t, StateUnstarted, d.State())
	})

	t.Run("start twice", func(t *testing.T) {
		cfg, _ := helperConfig(t, "default")
		d := startHelper(t, cfg)
		assert.ErrorIs(t, d.Start(context.Background()), ErrNotReady)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		cfg, _ := helperConfig(t, "default")
		d := NewDriver(cfg, nil)
		require.NoError(t, d.Start(context.Background()))
		require.NoError(t, d.Close())
		require.NoError(t, d.Close())
		assert.Equal(t, StateClosed, d.State())
		assert.ErrorIs(t, d.Start(context.Background()), ErrEngineClosed)
	})

	t.Run("close before start", func(t *testing.T) {
		d := NewDriver(DefaultConfig("unused"), nil)
		require.NoError(t, d.Close())
		assert.Equal(t, StateClosed, d.State())
	})

	t.Run("engine ignoring quit is killed", func(t *testing.T) {
		cfg, _ := helperConfig(t, "ignore_quit")
		cfg.ShutdownGrace = 200 * time.Millisecond
		d := NewDriver(cfg, nil)
		require.NoError(t, d.Start(context.Background()))

		start := time.Now()
		require.NoError(t, d.Close())
		assert.Less(t, time.Since(start), 5*time.Second)
		assert.Equal(t, StateClosed, d.State())
	})
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unstarted", StateUnstarted.String())
	assert.Equal(t, "searching", StateSearching.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", State(42).String())
}
