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
	"io"
	"time"
)

// MissingFieldPolicy decides what happens when a search ends before the
// engine reported nodes, time or score.
type MissingFieldPolicy string

const (
	// MissingDefault fills missing fields with zero, records them in
	// Result.Defaulted and logs a warning.
	MissingDefault MissingFieldPolicy = "default"

	// MissingFail returns a *MissingFieldError instead of a result.
	MissingFail MissingFieldPolicy = "fail"
)

// DefaultHandshakeTimeout bounds the wait for "uciok" (and "readyok" after
// options are sent).
const DefaultHandshakeTimeout = 10 * time.Second

// DefaultShutdownGrace is how long Close waits for the engine to exit after
// "quit" before killing it.
const DefaultShutdownGrace = 2 * time.Second

// Option is a UCI engine option sent with setoption after the handshake.
type Option struct {
	Name  string
	Value string
}

// Config configures an engine process.
type Config struct {
	// Path is the engine binary, resolved through PATH when not absolute.
	Path string

	// Args are passed to the engine binary.
	Args []string

	// Dir is the working directory of the engine. Empty means inherit.
	Dir string

	// Env, when non-nil, replaces the environment of the engine.
	Env []string

	// Options are sent in order after the handshake.
	Options []Option

	// HandshakeTimeout bounds the whole handshake. Zero means no limit.
	HandshakeTimeout time.Duration

	// ReadTimeout bounds the gap between two output lines during a search.
	// Zero means no limit.
	ReadTimeout time.Duration

	// ShutdownGrace is the wait between "quit" and a forced kill.
	ShutdownGrace time.Duration

	// MissingFields selects the missing-field policy. Empty means MissingDefault.
	MissingFields MissingFieldPolicy

	// Stderr receives the engine's stderr. Nil discards it.
	Stderr io.Writer
}

// DefaultConfig returns a configuration for the engine at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:             path,
		HandshakeTimeout: DefaultHandshakeTimeout,
		ShutdownGrace:    DefaultShutdownGrace,
		MissingFields:    MissingDefault,
	}
}

func (c Config) shutdownGrace() time.Duration {
	if c.ShutdownGrace <= 0 {
		return DefaultShutdownGrace
	}
	return c.ShutdownGrace
}

func (c Config) missingPolicy() MissingFieldPolicy {
	if c.MissingFields == "" {
		return MissingDefault
	}
	return c.MissingFields
}
