// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package position provides the immutable board-state identifier that every
// benchmark search is keyed by.
package position

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

// StartName is the identifier of the standard starting position.
const StartName = "startpos"

// StartFEN is the FEN of the standard starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrInvalidPosition indicates a string that is neither "startpos" nor a valid FEN.
var ErrInvalidPosition = errors.New("invalid position")

// Position is a validated board state.
//
// The zero value is not a valid position; use Parse, MustParse or Start.
// A Position never changes after construction.
type Position struct {
	text string
}

// Start returns the standard starting position.
func Start() Position {
	return Position{text: StartName}
}

// Parse validates s and returns the corresponding Position.
//
// Description:
//
//	Accepts "startpos" or a FEN string. Four-field EPD-style strings
//	(board, side, castling, en passant) are accepted; the move counters are
//	assumed to be "0 1" for validation only. Runs of whitespace are
//	collapsed, otherwise the text is kept as given.
//
// Inputs:
//
//	s - Position text
//
// Outputs:
//
//	Position - The validated position
//	error - Non-nil if s is not a valid position
//
// Errors:
//
//	ErrInvalidPosition - Empty, wrong field count or rejected by the FEN parser
func Parse(s string) (Position, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Position{}, fmt.Errorf("%w: empty", ErrInvalidPosition)
	}
	if len(fields) == 1 && fields[0] == StartName {
		return Start(), nil
	}

	full := fields
	switch len(fields) {
	case 4:
		full = append(append([]string(nil), fields...), "0", "1")
	case 6:
	default:
		return Position{}, fmt.Errorf("%w: %q has %d fields, want 4 or 6", ErrInvalidPosition, s, len(fields))
	}

	if _, err := chess.FEN(strings.Join(full, " ")); err != nil {
		return Position{}, fmt.Errorf("%w: %q: %v", ErrInvalidPosition, s, err)
	}
	return Position{text: strings.Join(fields, " ")}, nil
}

// MustParse is like Parse but panics on error. For fixed, known-good input.
func MustParse(s string) Position {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the position text ("startpos" or a FEN).
func (p Position) String() string {
	return p.text
}

// IsStart reports whether p is the "startpos" identifier.
func (p Position) IsStart() bool {
	return p.text == StartName
}

// IsZero reports whether p is the zero value.
func (p Position) IsZero() bool {
	return p.text == ""
}

// FEN returns the position as a FEN string, expanding "startpos".
func (p Position) FEN() string {
	if p.IsStart() {
		return StartFEN
	}
	return p.text
}

// Equal reports whether p and other identify the same position text.
func (p Position) Equal(other Position) bool {
	return p.text == other.text
}

// IsLegal reports whether move, in long algebraic notation (e2e4, e7e8q),
// is a legal move in p.
func (p Position) IsLegal(move string) bool {
	if p.IsZero() || move == "" {
		return false
	}
	fen := p.FEN()
	if len(strings.Fields(fen)) == 4 {
		fen += " 0 1"
	}
	opt, err := chess.FEN(fen)
	if err != nil {
		return false
	}
	for _, m := range chess.NewGame(opt).Position().ValidMoves() {
		if m.String() == move {
			return true
		}
	}
	return false
}

// MarshalText implements encoding.TextMarshaler.
func (p Position) MarshalText() ([]byte, error) {
	return []byte(p.text), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Position) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
