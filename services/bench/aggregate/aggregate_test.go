// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package aggregate

import (
	"testing"

	"github.com/AleutianAI/EngineBench/services/bench/diff"
	"github.com/AleutianAI/EngineBench/services/bench/metric"
	"github.com/AleutianAI/EngineBench/services/bench/position"
	"github.com/AleutianAI/EngineBench/services/bench/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustResult(t *testing.T, nodes metric.Nodes, ms metric.Millis, score metric.Score, move string) search.Result {
	t.Helper()
	r, err := search.New(position.Start(), 6, nodes, ms, score, move)
	require.NoError(t, err)
	return r
}

func mustDiff(t *testing.T, baseline, fresh search.Result) diff.Diff {
	t.Helper()
	d, err := diff.Compute(baseline, fresh)
	require.NoError(t, err)
	return d
}

func TestDiffs_Empty(t *testing.T) {
	assert.Equal(t, Report{}, Diffs(nil))
	assert.Equal(t, Report{}, Diffs([]diff.Diff{}))
}

func TestDiffs_ImprovementCounting(t *testing.T) {
	baseline := mustResult(t, 1000, 10, 20, "e2e4")
	better := mustResult(t, 800, 10, 20, "e2e4")
	worse := mustResult(t, 1200, 10, 20, "d2d4")

	r := Diffs([]diff.Diff{mustDiff(t, baseline, better), mustDiff(t, baseline, worse)})

	assert.Equal(t, 2, r.Count)
	assert.Equal(t, 1, r.Nodes.Improved)
	assert.Equal(t, 1, r.Nodes.Regressed)

	assert.Equal(t, 1, r.Speed.Improved)
	assert.Equal(t, 1, r.Speed.Regressed)
	assert.Equal(t, 0, r.Time.Improved)
	assert.Equal(t, 0, r.Score.Improved)
	assert.Equal(t, 1, r.BestMoveChanged)

	assert.Equal(t, metric.Nodes(2000), r.Nodes.Baseline)
	assert.Equal(t, metric.Nodes(2000), r.Nodes.Fresh)
	assert.Equal(t, metric.Nodes(1000), r.Nodes.BaselineMean)
	assert.Equal(t, metric.Nodes(1000), r.Nodes.FreshMean)
	assert.InDelta(t, 0.0, r.Nodes.MeanRelative, 1e-12)
}

func TestDiffs_OrderInvariant(t *testing.T) {
	a := mustDiff(t, mustResult(t, 1000, 10, 20, "e2e4"), mustResult(t, 700, 9, 35, "e2e4"))
	b := mustDiff(t, mustResult(t, 5000, 40, -15, "g1f3"), mustResult(t, 5500, 42, -10, "d2d4"))
	c := mustDiff(t, mustResult(t, 321, 3, 7, "c2c4"), mustResult(t, 300, 2, 6, "c2c4"))

	first := Diffs([]diff.Diff{a, b, c})
	second := Diffs([]diff.Diff{c, a, b})

	assert.Equal(t, first.Count, second.Count)
	assert.Equal(t, first.Nodes.Baseline, second.Nodes.Baseline)
	assert.Equal(t, first.Nodes.Fresh, second.Nodes.Fresh)
	assert.Equal(t, first.Time.FreshMean, second.Time.FreshMean)
	assert.Equal(t, first.Speed.Fresh, second.Speed.Fresh)
	assert.Equal(t, first.Score.Fresh, second.Score.Fresh)
	assert.Equal(t, first.Nodes.Improved, second.Nodes.Improved)
	assert.Equal(t, first.BestMoveChanged, second.BestMoveChanged)
	assert.InDelta(t, float64(first.Branching.Fresh), float64(second.Branching.Fresh), 1e-9)
	assert.InDelta(t, first.Nodes.MeanRelative, second.Nodes.MeanRelative, 1e-12)
	assert.InDelta(t, first.Score.MeanRelative, second.Score.MeanRelative, 1e-12)
}

func TestDiffs_MeanRelative(t *testing.T) {
	a := mustDiff(t, mustResult(t, 1000, 10, 20, ""), mustResult(t, 800, 10, 20, ""))
	b := mustDiff(t, mustResult(t, 1000, 10, 20, ""), mustResult(t, 1400, 10, 20, ""))

	r := Diffs([]diff.Diff{a, b})
	assert.InDelta(t, 0.1, r.Nodes.MeanRelative, 1e-12)
}

func TestResults(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, ResultTotals{}, Results(nil))
	})

	t.Run("sums and means", func(t *testing.T) {
		totals := Results([]search.Result{
			mustResult(t, 100, 10, 30, ""),
			mustResult(t, 300, 30, -10, ""),
		})

		assert.Equal(t, 2, totals.Count)
		assert.Equal(t, metric.Nodes(400), totals.Nodes.Sum)
		assert.Equal(t, metric.Nodes(200), totals.Nodes.Mean)
		assert.Equal(t, metric.Millis(40), totals.Time.Sum)
		assert.Equal(t, metric.Speed(20), totals.Speed.Sum)
		assert.Equal(t, metric.Speed(10), totals.Speed.Mean)
		assert.Equal(t, metric.Score(20), totals.Score.Sum)
		assert.Equal(t, metric.Score(10), totals.Score.Mean)
	})
}
