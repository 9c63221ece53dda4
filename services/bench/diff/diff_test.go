// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diff

import (
	"testing"

	"github.com/AleutianAI/EngineBench/services/bench/metric"
	"github.com/AleutianAI/EngineBench/services/bench/position"
	"github.com/AleutianAI/EngineBench/services/bench/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(t *testing.T, pos position.Position, nodes metric.Nodes, ms metric.Millis, score metric.Score, move string) search.Result {
	t.Helper()
	r, err := search.New(pos, 8, nodes, ms, score, move)
	require.NoError(t, err)
	return r
}

func TestCompute_Identity(t *testing.T) {
	for _, r := range []search.Result{
		result(t, position.Start(), 1000, 10, 25, "e2e4"),
		result(t, position.Start(), 1, 1, -300, ""),
		result(t, position.MustParse("8/8/8/8/8/8/8/K6k w - - 0 1"), 77, 3, 0, "a1b1"),
	} {
		d, err := Compute(r, r)
		require.NoError(t, err)

		assert.Zero(t, d.Nodes.Relative)
		assert.Zero(t, d.Time.Relative)
		assert.Zero(t, d.Speed.Relative)
		assert.Zero(t, d.Score.Relative)
		assert.Zero(t, d.Branching.Relative)
		assert.False(t, d.BestMove.Changed())
		assert.Equal(t, metric.Unchanged, d.Nodes.Verdict())
		assert.Equal(t, metric.Unchanged, d.Score.Verdict())
	}
}

func TestCompute_Relative(t *testing.T) {
	baseline := result(t, position.Start(), 1000, 100, 40, "e2e4")
	fresh := result(t, position.Start(), 800, 50, 20, "d2d4")

	d, err := Compute(baseline, fresh)
	require.NoError(t, err)

	assert.InDelta(t, -0.2, d.Nodes.Relative, 1e-12)
	assert.InDelta(t, -0.5, d.Time.Relative, 1e-12)
	assert.InDelta(t, 0.6, d.Speed.Relative, 1e-12)
	assert.InDelta(t, -0.5, d.Score.Relative, 1e-12)

	assert.True(t, d.Nodes.Improved())
	assert.True(t, d.Time.Improved())
	assert.True(t, d.Speed.Improved())
	assert.True(t, d.Score.Regressed())
	assert.True(t, d.Branching.Improved())

	assert.Equal(t, metric.Nodes(1000), d.Nodes.First)
	assert.Equal(t, metric.Nodes(800), d.Nodes.Second)
	assert.Equal(t, MoveChange{First: "e2e4", Second: "d2d4"}, d.BestMove)
	assert.True(t, d.BestMove.Changed())
}

func TestCompute_PositionMismatch(t *testing.T) {
	a := result(t, position.Start(), 100, 10, 0, "")
	b := result(t, position.MustParse("8/8/8/8/8/8/8/K6k w - - 0 1"), 100, 10, 0, "")

	_, err := Compute(a, b)
	assert.ErrorIs(t, err, ErrPositionMismatch)
}

func TestCompute_ZeroBaseline(t *testing.T) {
	baseline := result(t, position.Start(), 100, 10, 0, "")
	fresh := result(t, position.Start(), 100, 10, 35, "")

	t.Run("error policy", func(t *testing.T) {
		_, err := Compute(baseline, fresh)
		assert.ErrorIs(t, err, metric.ErrUndefinedRelativeChange)
		assert.ErrorContains(t, err, "score")
	})

	t.Run("no-change policy", func(t *testing.T) {
		d, err := ComputeWith(baseline, fresh, Options{ZeroBaseline: ZeroBaselineNoChange})
		require.NoError(t, err)
		assert.Zero(t, d.Score.Relative)
		assert.True(t, d.Score.Improved())
	})

	t.Run("zero to zero is no change", func(t *testing.T) {
		d, err := Compute(baseline, baseline)
		require.NoError(t, err)
		assert.Zero(t, d.Score.Relative)
	})
}
