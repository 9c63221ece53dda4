// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package metric defines the numeric performance metrics collected for a
// single engine search and the rules for comparing and combining them.
//
// Every metric type carries a fixed Direction. Whether a change is an
// improvement is always decided through Direction (see IsImprovement);
// the natural ordering of the underlying numbers is left untouched so that
// sorting and min/max keep their usual meaning.
package metric

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
)

// =============================================================================
// DIRECTION
// =============================================================================

// Direction states which way a metric moves when it gets better.
type Direction int

const (
	// LowerIsBetter is used by nodes, time and branching factor.
	LowerIsBetter Direction = iota

	// HigherIsBetter is used by speed and score.
	HigherIsBetter
)

// String returns a human-readable direction name.
func (d Direction) String() string {
	switch d {
	case LowerIsBetter:
		return "lower_is_better"
	case HigherIsBetter:
		return "higher_is_better"
	default:
		return "unknown"
	}
}

// Verdict classifies a baseline → fresh change for a directed metric.
type Verdict int

const (
	// Unchanged means baseline and fresh are equal.
	Unchanged Verdict = iota

	// Improved means fresh is better than baseline in the metric's direction.
	Improved

	// Regressed means fresh is worse than baseline in the metric's direction.
	Regressed
)

// String returns a human-readable verdict name.
func (v Verdict) String() string {
	switch v {
	case Improved:
		return "improved"
	case Regressed:
		return "regressed"
	default:
		return "unchanged"
	}
}

// =============================================================================
// METRIC CONSTRAINT
// =============================================================================

// Metric is the constraint satisfied by every metric type.
//
// Description:
//
//	Combine is plain addition and ScaleDown is division by a positive
//	count; both exist for aggregation only. Direction is constant per type.
//	The numeric type set keeps natural ordering available to generic code
//	through cmp.Compare.
type Metric[T any] interface {
	~uint64 | ~int64 | ~float64

	// Combine returns the arithmetic sum of the receiver and other.
	Combine(other T) T

	// ScaleDown divides the receiver by n. Values of n below 1 are treated as 1.
	ScaleDown(n int) T

	// Direction returns the direction of improvement for the type.
	Direction() Direction
}

// IsImprovement reports whether fresh is better than baseline.
//
// This is the single place where "better" is decided; all colouring and
// counting logic goes through it (or through Compare, which calls it).
func IsImprovement[T Metric[T]](baseline, fresh T) bool {
	switch fresh.Direction() {
	case HigherIsBetter:
		return cmp.Compare(fresh, baseline) > 0
	default:
		return cmp.Compare(fresh, baseline) < 0
	}
}

// Compare classifies the change from baseline to fresh.
func Compare[T Metric[T]](baseline, fresh T) Verdict {
	switch {
	case IsImprovement(baseline, fresh):
		return Improved
	case IsImprovement(fresh, baseline):
		return Regressed
	default:
		return Unchanged
	}
}

// Relative returns (second - first) / |first|.
//
// Description:
//
//	The magnitude of first is used as the divisor so that the sign of the
//	result always matches the sign of the raw change, including for
//	negative scores. A zero baseline is defined as no change when second is
//	also zero; otherwise the change is undefined.
//
// Errors:
//
//	ErrUndefinedRelativeChange - first is zero and second is not
func Relative[T Metric[T]](first, second T) (float64, error) {
	if first == 0 {
		if second == 0 {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: baseline 0, fresh %v", ErrUndefinedRelativeChange, second)
	}
	return (float64(second) - float64(first)) / math.Abs(float64(first)), nil
}

func divisor(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// =============================================================================
// NODES
// =============================================================================

// Nodes is the count of search-tree nodes explored by one search.
type Nodes uint64

func (n Nodes) Combine(other Nodes) Nodes { return n + other }
func (n Nodes) ScaleDown(k int) Nodes     { return n / Nodes(divisor(k)) }
func (Nodes) Direction() Direction        { return LowerIsBetter }
func (n Nodes) String() string            { return strconv.FormatUint(uint64(n), 10) }

// =============================================================================
// TIME
// =============================================================================

// Millis is the elapsed search time in milliseconds.
type Millis uint64

func (m Millis) Combine(other Millis) Millis { return m + other }
func (m Millis) ScaleDown(k int) Millis      { return m / Millis(divisor(k)) }
func (Millis) Direction() Direction          { return LowerIsBetter }
func (m Millis) String() string              { return strconv.FormatUint(uint64(m), 10) + "ms" }

// =============================================================================
// SPEED
// =============================================================================

// Speed is the search speed in thousands of nodes per second, which is
// numerically the same as nodes per millisecond.
type Speed uint64

func (s Speed) Combine(other Speed) Speed { return s + other }
func (s Speed) ScaleDown(k int) Speed     { return s / Speed(divisor(k)) }
func (Speed) Direction() Direction        { return HigherIsBetter }
func (s Speed) String() string            { return strconv.FormatUint(uint64(s), 10) + " knps" }

// SpeedOf computes nodes / elapsed using integer division.
//
// Errors:
//
//	ErrInvalidMetricInput - elapsed is zero
func SpeedOf(nodes Nodes, elapsed Millis) (Speed, error) {
	if elapsed == 0 {
		return 0, fmt.Errorf("%w: speed needs a positive time, got 0ms for %d nodes", ErrInvalidMetricInput, nodes)
	}
	return Speed(uint64(nodes) / uint64(elapsed)), nil
}

// =============================================================================
// SCORE
// =============================================================================

// MateScore is the centipawn magnitude assigned to "mate in 0".
const MateScore Score = 32000

// Score is the engine's evaluation of the position in centipawns.
type Score int64

func (s Score) Combine(other Score) Score { return s + other }
func (s Score) ScaleDown(k int) Score     { return s / Score(divisor(k)) }
func (Score) Direction() Direction        { return HigherIsBetter }
func (s Score) String() string            { return strconv.FormatInt(int64(s), 10) }

// ScoreFromMate converts a "mate in n" report to a centipawn-equivalent.
// Positive n means the side to move mates; shorter mates score higher.
// Mate in 0 means the side to move is already mated.
func ScoreFromMate(n int64) Score {
	switch {
	case n > 0:
		return MateScore - Score(n)
	case n < 0:
		return -MateScore - Score(n)
	default:
		return -MateScore
	}
}

// =============================================================================
// BRANCHING FACTOR
// =============================================================================

// Branching is the effective branching factor nodes^(1/depth).
type Branching float64

func (b Branching) Combine(other Branching) Branching { return b + other }
func (b Branching) ScaleDown(k int) Branching         { return b / Branching(divisor(k)) }
func (Branching) Direction() Direction                { return LowerIsBetter }
func (b Branching) String() string                    { return strconv.FormatFloat(float64(b), 'f', 2, 64) }

// BranchingOf computes nodes^(1/depth).
//
// Errors:
//
//	ErrInvalidMetricInput - depth is not positive
func BranchingOf(nodes Nodes, depth int) (Branching, error) {
	if depth <= 0 {
		return 0, fmt.Errorf("%w: branching factor needs a positive depth, got %d", ErrInvalidMetricInput, depth)
	}
	return Branching(math.Pow(float64(nodes), 1/float64(depth))), nil
}
