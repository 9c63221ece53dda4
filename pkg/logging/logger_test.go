// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"", LevelInfo, true},
		{"warning", LevelWarn, true},
		{" error ", LevelError, true},
		{"trace", LevelInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.String(), strings.ToLower(got.String()))
		})
	}
}

func TestNew_Stderr(t *testing.T) {
	t.Run("level filtering", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(Config{Level: LevelWarn, Output: &buf})
		require.NoError(t, err)

		logger.Info("hidden")
		logger.Warn("shown", "position", "startpos")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
		assert.Contains(t, buf.String(), "position=startpos")
	})

	t.Run("json with service", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(Config{JSON: true, Service: "enginebench", Output: &buf})
		require.NoError(t, err)
		logger.With("run_id", "r1").Info("Run started")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "Run started", entry["msg"])
		assert.Equal(t, "enginebench", entry["service"])
		assert.Equal(t, "r1", entry["run_id"])
	})

	t.Run("quiet", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(Config{Quiet: true, Output: &buf})
		require.NoError(t, err)
		logger.Error("nothing")
		assert.Empty(t, buf.String())
	})
}

func TestNew_LogDir(t *testing.T) {
	t.Run("writes json file", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "logs")
		var buf bytes.Buffer
		logger, err := New(Config{LogDir: dir, Service: "bench", Output: &buf})
		require.NoError(t, err)

		logger.Slog().Info("to both", slog.Int("depth", 7))
		require.NoError(t, logger.Close())
		require.NoError(t, logger.Close(), "second close is a no-op")

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.True(t, strings.HasPrefix(entries[0].Name(), "bench_"))

		data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
		require.NoError(t, err)
		assert.Contains(t, string(data), `"depth":7`)
		assert.Contains(t, buf.String(), "to both")
	})

	t.Run("unwritable directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, nil, 0o600))
		_, err := New(Config{LogDir: filepath.Join(file, "logs")})
		assert.Error(t, err)
	})
}

func TestMultiHandler(t *testing.T) {
	var debug, warn bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}
	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))

	logger := slog.New(h).WithGroup("engine").With("path", "/bin/fake")
	logger.Debug("spawned")
	logger.Warn("slow")

	assert.Contains(t, debug.String(), "spawned")
	assert.Contains(t, debug.String(), "engine.path=/bin/fake")
	assert.NotContains(t, warn.String(), "spawned")
	assert.Contains(t, warn.String(), "slow")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".enginebench"), expandPath("~/.enginebench"))
	assert.Equal(t, "/var/log", expandPath("/var/log"))
	assert.Equal(t, "~user/x", expandPath("~user/x"))
}
