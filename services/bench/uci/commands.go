// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package uci

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/AleutianAI/EngineBench/services/bench/position"
)

// =============================================================================
// OUTGOING COMMANDS
// =============================================================================

// Command is an outgoing UCI command. String returns the wire line without
// the trailing newline.
type Command interface {
	fmt.Stringer
	command()
}

// Handshake starts the UCI session ("uci").
type Handshake struct{}

// NewGame resets the engine's per-game state ("ucinewgame").
type NewGame struct{}

// IsReady asks the engine to confirm it has processed prior commands.
type IsReady struct{}

// Quit asks the engine to exit.
type Quit struct{}

// SetPosition sets the board, optionally followed by a move history.
type SetPosition struct {
	Position position.Position
	Moves    []string
}

// Go starts a depth-limited search.
type Go struct {
	Depth int
}

// SetOption sets a named engine option. An empty Value sends a button-style
// option without a value clause.
type SetOption struct {
	Name  string
	Value string
}

func (Handshake) String() string { return "uci" }
func (NewGame) String() string   { return "ucinewgame" }
func (IsReady) String() string   { return "isready" }
func (Quit) String() string      { return "quit" }

func (c SetPosition) String() string {
	var b strings.Builder
	b.WriteString("position ")
	if c.Position.IsStart() {
		b.WriteString("startpos")
	} else {
		b.WriteString("fen ")
		b.WriteString(c.Position.String())
	}
	if len(c.Moves) > 0 {
		b.WriteString(" moves ")
		b.WriteString(strings.Join(c.Moves, " "))
	}
	return b.String()
}

func (c Go) String() string {
	return "go depth " + strconv.Itoa(c.Depth)
}

func (c SetOption) String() string {
	if c.Value == "" {
		return "setoption name " + c.Name
	}
	return "setoption name " + c.Name + " value " + c.Value
}

func (Handshake) command()   {}
func (NewGame) command()     {}
func (IsReady) command()     {}
func (Quit) command()        {}
func (SetPosition) command() {}
func (Go) command()          {}
func (SetOption) command()   {}

// =============================================================================
// WRITER
// =============================================================================

// Writer serializes commands onto the engine's input stream, one line each.
//
// Thread Safety:
//
//	Safe for concurrent use; each Send writes and flushes one whole line.
type Writer struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Send writes cmd followed by a newline and flushes.
func (w *Writer) Send(cmd Command) error {
	line := cmd.String()
	if strings.ContainsAny(line, "\r\n") {
		return fmt.Errorf("command %q contains a line break", line)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.w.WriteString(line); err != nil {
		return fmt.Errorf("write %q: %w", line, err)
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write %q: %w", line, err)
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("flush %q: %w", line, err)
	}
	return nil
}
