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
	"errors"
	"fmt"
	"strings"

	"github.com/AleutianAI/EngineBench/services/bench/position"
)

// Sentinel errors for engine operations.
var (
	// ErrProcessSpawn indicates the engine binary could not be found or started.
	ErrProcessSpawn = errors.New("engine process spawn failed")

	// ErrPipeAttach indicates the engine's stdin or stdout could not be attached.
	ErrPipeAttach = errors.New("engine pipe attach failed")

	// ErrEngineUnavailable indicates the engine's output closed or its input
	// could not be written while a reply was still expected.
	ErrEngineUnavailable = errors.New("engine unavailable")

	// ErrEngineTimeout indicates the engine produced no expected output in time.
	// The engine process has been killed when this is returned.
	ErrEngineTimeout = errors.New("engine timeout")

	// ErrEngineClosed indicates an operation on a closed driver.
	ErrEngineClosed = errors.New("engine closed")

	// ErrNotReady indicates an operation that requires the Ready state.
	ErrNotReady = errors.New("engine not ready")

	// ErrMissingFieldDefaulted indicates a search ended before the engine
	// reported every result field.
	ErrMissingFieldDefaulted = errors.New("engine result field missing")
)

// MissingFieldError lists the fields a search never reported. It is returned
// under the MissingFail policy and matches ErrMissingFieldDefaulted.
type MissingFieldError struct {
	// Position is the searched position.
	Position position.Position

	// Depth is the search depth.
	Depth int

	// Fields names the fields that were never reported.
	Fields []string
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s (depth %d): %s",
		ErrMissingFieldDefaulted, e.Position, e.Depth, strings.Join(e.Fields, ", "))
}

// Unwrap returns ErrMissingFieldDefaulted.
func (e *MissingFieldError) Unwrap() error {
	return ErrMissingFieldDefaulted
}

// IsFatal reports whether err means the engine can no longer be used for
// the rest of a run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrProcessSpawn) ||
		errors.Is(err, ErrPipeAttach) ||
		errors.Is(err, ErrEngineUnavailable) ||
		errors.Is(err, ErrEngineClosed)
}
