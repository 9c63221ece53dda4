// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package search defines the outcome of a single engine search.
package search

import (
	"fmt"

	"github.com/AleutianAI/EngineBench/services/bench/metric"
	"github.com/AleutianAI/EngineBench/services/bench/position"
)

// Result is one search outcome for a position at a given depth.
//
// Description:
//
//	Built once by New at the end of a search and never mutated. The JSON
//	form is the snapshot record format. Defaulted lists the fields the
//	engine never reported and that were filled with zero.
type Result struct {
	Position  position.Position `json:"position"`
	Depth     int               `json:"depth"`
	Nodes     metric.Nodes      `json:"nodes"`
	Time      metric.Millis     `json:"time"`
	Speed     metric.Speed      `json:"nps"`
	Score     metric.Score      `json:"score"`
	Branching metric.Branching  `json:"branching_factor"`
	BestMove  string            `json:"best_move,omitempty"`
	Defaulted []string          `json:"defaulted,omitempty"`
}

// New derives speed and branching factor and returns the Result.
//
// Inputs:
//
//	pos - The searched position
//	depth - Search depth limit, must be positive
//	nodes, elapsed, score - Values reported by the engine
//	bestMove - The engine's chosen move, may be empty
//
// Outputs:
//
//	Result - The complete result
//	error - Non-nil if a derived metric cannot be computed
//
// Errors:
//
//	metric.ErrInvalidMetricInput - elapsed is zero or depth is not positive
func New(pos position.Position, depth int, nodes metric.Nodes, elapsed metric.Millis, score metric.Score, bestMove string) (Result, error) {
	speed, err := metric.SpeedOf(nodes, elapsed)
	if err != nil {
		return Result{}, fmt.Errorf("%s depth %d: %w", pos, depth, err)
	}
	branching, err := metric.BranchingOf(nodes, depth)
	if err != nil {
		return Result{}, fmt.Errorf("%s depth %d: %w", pos, depth, err)
	}
	return Result{
		Position:  pos,
		Depth:     depth,
		Nodes:     nodes,
		Time:      elapsed,
		Speed:     speed,
		Score:     score,
		Branching: branching,
		BestMove:  bestMove,
	}, nil
}

// WithDefaulted returns a copy of r that records fields as defaulted.
func (r Result) WithDefaulted(fields []string) Result {
	if len(fields) == 0 {
		return r
	}
	r.Defaulted = append([]string(nil), fields...)
	return r
}

// Failure records a position whose search did not produce a Result.
type Failure struct {
	Position position.Position `json:"position"`
	Depth    int               `json:"depth"`
	Err      error             `json:"-"`
	Message  string            `json:"error"`
}

// NewFailure builds a Failure with its message taken from err.
func NewFailure(pos position.Position, depth int, err error) Failure {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Failure{Position: pos, Depth: depth, Err: err, Message: msg}
}

// Error implements the error interface.
func (f Failure) Error() string {
	return fmt.Sprintf("%s (depth %d): %s", f.Position, f.Depth, f.Message)
}

// Unwrap returns the underlying cause.
func (f Failure) Unwrap() error {
	return f.Err
}
