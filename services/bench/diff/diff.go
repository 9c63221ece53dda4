// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diff compares a baseline search result with a fresh one for the
// same position.
package diff

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/EngineBench/services/bench/metric"
	"github.com/AleutianAI/EngineBench/services/bench/position"
	"github.com/AleutianAI/EngineBench/services/bench/search"
)

// ErrPositionMismatch indicates a diff between results of different positions.
var ErrPositionMismatch = errors.New("position mismatch")

// ZeroBaselinePolicy decides the relative change of a metric whose baseline is zero.
type ZeroBaselinePolicy string

const (
	// ZeroBaselineError fails with metric.ErrUndefinedRelativeChange when
	// the fresh value is nonzero.
	ZeroBaselineError ZeroBaselinePolicy = "error"

	// ZeroBaselineNoChange reports a relative change of zero.
	ZeroBaselineNoChange ZeroBaselinePolicy = "no-change"
)

// Options tunes Compute.
type Options struct {
	ZeroBaseline ZeroBaselinePolicy
}

// Change is the comparison of one metric between baseline and fresh.
type Change[T metric.Metric[T]] struct {
	First    T       `json:"first"`
	Second   T       `json:"second"`
	Relative float64 `json:"relative"`
}

// Verdict classifies the change in the metric's direction.
func (c Change[T]) Verdict() metric.Verdict {
	return metric.Compare(c.First, c.Second)
}

// Improved reports whether Second is better than First.
func (c Change[T]) Improved() bool {
	return metric.IsImprovement(c.First, c.Second)
}

// Regressed reports whether Second is worse than First.
func (c Change[T]) Regressed() bool {
	return metric.IsImprovement(c.Second, c.First)
}

// MoveChange compares the chosen moves. It has no direction.
type MoveChange struct {
	First  string `json:"first"`
	Second string `json:"second"`
}

// Changed reports whether the engine chose a different move.
func (m MoveChange) Changed() bool {
	return m.First != m.Second
}

// Diff is the per-metric comparison of two results for the same position.
type Diff struct {
	Position  position.Position        `json:"position"`
	Depth     int                      `json:"depth"`
	Nodes     Change[metric.Nodes]     `json:"nodes"`
	Time      Change[metric.Millis]    `json:"time"`
	Speed     Change[metric.Speed]     `json:"nps"`
	Score     Change[metric.Score]     `json:"score"`
	Branching Change[metric.Branching] `json:"branching_factor"`
	BestMove  MoveChange               `json:"best_move"`
}

// Compute compares baseline and fresh with the default options.
func Compute(baseline, fresh search.Result) (Diff, error) {
	return ComputeWith(baseline, fresh, Options{})
}

// ComputeWith compares baseline and fresh.
//
// Description:
//
//	Each numeric metric gets relative = (fresh - baseline) / |baseline|.
//	A zero baseline with a zero fresh value is no change. A zero baseline
//	with a nonzero fresh value follows opts.ZeroBaseline. The depth of the
//	diff is the fresh depth.
//
// Inputs:
//
//	baseline - The earlier result
//	fresh - The new result for the same position
//	opts - Zero-baseline policy; the zero value means ZeroBaselineError
//
// Outputs:
//
//	Diff - The comparison
//	error - Non-nil if the results cannot be compared
//
// Errors:
//
//	ErrPositionMismatch - baseline and fresh are for different positions
//	metric.ErrUndefinedRelativeChange - zero baseline under ZeroBaselineError
func ComputeWith(baseline, fresh search.Result, opts Options) (Diff, error) {
	if !baseline.Position.Equal(fresh.Position) {
		return Diff{}, fmt.Errorf("%w: baseline %q, fresh %q", ErrPositionMismatch, baseline.Position, fresh.Position)
	}

	d := Diff{
		Position: fresh.Position,
		Depth:    fresh.Depth,
		BestMove: MoveChange{First: baseline.BestMove, Second: fresh.BestMove},
	}

	var err error
	if d.Nodes, err = change(baseline.Nodes, fresh.Nodes, opts, "nodes"); err != nil {
		return Diff{}, err
	}
	if d.Time, err = change(baseline.Time, fresh.Time, opts, "time"); err != nil {
		return Diff{}, err
	}
	if d.Speed, err = change(baseline.Speed, fresh.Speed, opts, "nps"); err != nil {
		return Diff{}, err
	}
	if d.Score, err = change(baseline.Score, fresh.Score, opts, "score"); err != nil {
		return Diff{}, err
	}
	if d.Branching, err = change(baseline.Branching, fresh.Branching, opts, "branching_factor"); err != nil {
		return Diff{}, err
	}
	return d, nil
}

func change[T metric.Metric[T]](first, second T, opts Options, name string) (Change[T], error) {
	rel, err := metric.Relative(first, second)
	if err != nil {
		if opts.ZeroBaseline != ZeroBaselineNoChange {
			return Change[T]{}, fmt.Errorf("%s: %w", name, err)
		}
		rel = 0
	}
	return Change[T]{First: first, Second: second, Relative: rel}, nil
}
