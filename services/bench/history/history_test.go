// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/AleutianAI/EngineBench/pkg/validation"
	"github.com/AleutianAI/EngineBench/services/bench/position"
	"github.com/AleutianAI/EngineBench/services/bench/runner"
	"github.com/AleutianAI/EngineBench/services/bench/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func outcome(t *testing.T, id string, started time.Time) runner.Outcome {
	t.Helper()
	res, err := search.New(position.Start(), 6, 12000, 40, 18, "e2e4")
	require.NoError(t, err)
	return runner.Outcome{
		RunID:      id,
		Mode:       runner.ModeSuite,
		Engine:     "Fake 1.0",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Results:    []search.Result{res},
		Failures: []search.Failure{
			search.NewFailure(position.MustParse("8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 11"), 6, assert.AnError),
		},
	}
}

func TestStore_PutGet(t *testing.T) {
	ctx := context.Background()
	store := openMemory(t)
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	in := outcome(t, "7f3c2a10-aaaa-4bbb-8ccc-000000000001", started)
	require.NoError(t, store.Put(ctx, in))

	t.Run("exact id", func(t *testing.T) {
		out, err := store.Get(ctx, in.RunID)
		require.NoError(t, err)
		assert.Equal(t, in.Results, out.Results)
		assert.Equal(t, "Fake 1.0", out.Engine)
		assert.True(t, out.StartedAt.Equal(started))
		require.Len(t, out.Failures, 1)
		assert.Equal(t, assert.AnError.Error(), out.Failures[0].Message)
	})

	t.Run("unique prefix", func(t *testing.T) {
		out, err := store.Get(ctx, "7f3c")
		require.NoError(t, err)
		assert.Equal(t, in.RunID, out.RunID)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := store.Get(ctx, "ffff")
		assert.ErrorIs(t, err, ErrRunNotFound)
		_, err = store.Get(ctx, "")
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := store.Get(ctx, "run/7f3c")
		assert.ErrorIs(t, err, validation.ErrInvalidInput)
	})

	t.Run("ambiguous prefix", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, outcome(t, "7f3c9999-0000-4000-8000-000000000002", started.Add(time.Hour))))
		_, err := store.Get(ctx, "7f3c")
		assert.ErrorIs(t, err, ErrAmbiguousRunID)
	})

	t.Run("empty id rejected", func(t *testing.T) {
		assert.Error(t, store.Put(ctx, runner.Outcome{}))
	})
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	store := openMemory(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-b", "run-a", "run-c"} {
		require.NoError(t, store.Put(ctx, outcome(t, id, base.Add(time.Duration(i)*time.Minute))))
	}

	t.Run("newest first", func(t *testing.T) {
		list, err := store.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "run-c", list[0].ID)
		assert.Equal(t, "run-a", list[1].ID)
		assert.Equal(t, "run-b", list[2].ID)
		assert.Equal(t, 2, list[0].Positions)
		assert.Equal(t, 1, list[0].Failures)
		assert.Equal(t, 3*time.Second, list[0].Duration)
	})

	t.Run("limit", func(t *testing.T) {
		list, err := store.List(ctx, 2)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "run-c", list[0].ID)
	})
}

func TestStore_Publish(t *testing.T) {
	ctx := context.Background()
	store := openMemory(t)
	in := outcome(t, "published", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	require.NoError(t, runner.Publish(ctx, in, store))
	out, err := store.Get(ctx, "published")
	require.NoError(t, err)
	assert.Equal(t, in.RunID, out.RunID)
}

func TestOpen(t *testing.T) {
	t.Run("path required", func(t *testing.T) {
		_, err := Open(Config{})
		assert.Error(t, err)
	})

	t.Run("persists across reopen", func(t *testing.T) {
		ctx := context.Background()
		dir := filepath.Join(t.TempDir(), "history")

		store, err := Open(Config{Path: dir, SyncWrites: true})
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, outcome(t, "durable", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))))
		require.NoError(t, store.Close())

		store, err = Open(Config{Path: dir})
		require.NoError(t, err)
		defer store.Close()
		_, err = store.Get(ctx, "durable")
		assert.NoError(t, err)
	})
}
