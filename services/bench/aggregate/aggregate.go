// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package aggregate reduces many diffs or results into totals, means and
// improvement counts.
//
// Only the numeric metrics are combined. Position and best move have no
// meaningful sum and are dropped, except that changed best moves are
// counted. Means divide by max(count, 1), so an empty input yields a
// zero-valued report.
package aggregate

import (
	"github.com/AleutianAI/EngineBench/services/bench/diff"
	"github.com/AleutianAI/EngineBench/services/bench/metric"
	"github.com/AleutianAI/EngineBench/services/bench/search"
)

// =============================================================================
// DIFF REPORT
// =============================================================================

// Summary aggregates one metric over many diffs.
type Summary[T metric.Metric[T]] struct {
	// Baseline and Fresh are the sums of the compared values.
	Baseline T `json:"baseline"`
	Fresh    T `json:"fresh"`

	BaselineMean T `json:"baseline_mean"`
	FreshMean    T `json:"fresh_mean"`

	// MeanRelative is the mean of the per-diff relative changes.
	MeanRelative float64 `json:"mean_relative"`

	// Improved and Regressed count diffs by direction-aware verdict.
	Improved  int `json:"improved"`
	Regressed int `json:"regressed"`

	relativeSum float64
}

func (s *Summary[T]) add(c diff.Change[T]) {
	s.Baseline = s.Baseline.Combine(c.First)
	s.Fresh = s.Fresh.Combine(c.Second)
	s.relativeSum += c.Relative
	switch c.Verdict() {
	case metric.Improved:
		s.Improved++
	case metric.Regressed:
		s.Regressed++
	}
}

func (s *Summary[T]) finish(count int) {
	n := max(count, 1)
	s.BaselineMean = s.Baseline.ScaleDown(n)
	s.FreshMean = s.Fresh.ScaleDown(n)
	s.MeanRelative = s.relativeSum / float64(n)
}

// Report aggregates a set of diffs.
type Report struct {
	Count     int                       `json:"count"`
	Nodes     Summary[metric.Nodes]     `json:"nodes"`
	Time      Summary[metric.Millis]    `json:"time"`
	Speed     Summary[metric.Speed]     `json:"nps"`
	Score     Summary[metric.Score]     `json:"score"`
	Branching Summary[metric.Branching] `json:"branching_factor"`

	// BestMoveChanged counts diffs where the engine chose a different move.
	BestMoveChanged int `json:"best_move_changed"`
}

// Diffs folds diffs into a Report.
//
// Description:
//
//	Sums each metric with Combine, derives means with ScaleDown and counts
//	improvements and regressions through the metric's direction. The
//	result does not depend on the order of diffs, up to floating point
//	rounding of the branching factor and relative changes.
//
// Inputs:
//
//	diffs - The diffs to fold. May be empty.
//
// Outputs:
//
//	Report - The aggregate; zero-valued with Count 0 for empty input
func Diffs(diffs []diff.Diff) Report {
	r := Report{Count: len(diffs)}
	for _, d := range diffs {
		r.Nodes.add(d.Nodes)
		r.Time.add(d.Time)
		r.Speed.add(d.Speed)
		r.Score.add(d.Score)
		r.Branching.add(d.Branching)
		if d.BestMove.Changed() {
			r.BestMoveChanged++
		}
	}
	r.Nodes.finish(r.Count)
	r.Time.finish(r.Count)
	r.Speed.finish(r.Count)
	r.Score.finish(r.Count)
	r.Branching.finish(r.Count)
	return r
}

// =============================================================================
// RESULT TOTALS
// =============================================================================

// Totals is the sum and mean of one metric over many results.
type Totals[T metric.Metric[T]] struct {
	Sum  T `json:"sum"`
	Mean T `json:"mean"`
}

// ResultTotals aggregates a set of results.
type ResultTotals struct {
	Count     int                      `json:"count"`
	Nodes     Totals[metric.Nodes]     `json:"nodes"`
	Time      Totals[metric.Millis]    `json:"time"`
	Speed     Totals[metric.Speed]     `json:"nps"`
	Score     Totals[metric.Score]     `json:"score"`
	Branching Totals[metric.Branching] `json:"branching_factor"`
}

// Results folds results into totals and means.
func Results(results []search.Result) ResultTotals {
	t := ResultTotals{Count: len(results)}
	for _, r := range results {
		t.Nodes.Sum = t.Nodes.Sum.Combine(r.Nodes)
		t.Time.Sum = t.Time.Sum.Combine(r.Time)
		t.Speed.Sum = t.Speed.Sum.Combine(r.Speed)
		t.Score.Sum = t.Score.Sum.Combine(r.Score)
		t.Branching.Sum = t.Branching.Sum.Combine(r.Branching)
	}
	n := max(t.Count, 1)
	t.Nodes.Mean = t.Nodes.Sum.ScaleDown(n)
	t.Time.Mean = t.Time.Sum.ScaleDown(n)
	t.Speed.Mean = t.Speed.Sum.ScaleDown(n)
	t.Score.Mean = t.Score.Sum.ScaleDown(n)
	t.Branching.Mean = t.Branching.Sum.ScaleDown(n)
	return t
}
