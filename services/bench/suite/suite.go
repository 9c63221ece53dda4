// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package suite loads the list of positions searched in suite mode.
package suite

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AleutianAI/EngineBench/services/bench/position"
)

// Sentinel errors for suite loading.
var (
	// ErrFileIO indicates the suite file could not be read.
	ErrFileIO = errors.New("suite i/o failure")

	// ErrMalformed indicates a line that is not a valid position, or an
	// empty suite.
	ErrMalformed = errors.New("malformed suite")
)

// defaultFENs is a spread of openings, middlegames and endgames commonly
// used to benchmark engines.
var defaultFENs = []string{
	position.StartFEN,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 10",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 11",
	"4rrk1/pp1n3p/3q2pQ/2p1pb2/2PP4/2P3N1/P2B2PP/4RRK1 b - - 7 19",
	"rq3rk1/ppp2ppp/1bnpb3/3N2B1/3NP3/7P/PPPQ1PP1/2KR3R w - - 7 14",
	"r1bq1r1k/1pp1n1pp/1p1p4/4p2Q/4Pp2/1BNP4/PPP2PPP/3R1RK1 w - - 2 14",
	"r3r1k1/2p2ppp/p1p1bn2/8/1q2P3/2NPQN2/PPP3PP/R4RK1 b - - 2 15",
	"r1bbk1nr/pp3p1p/2n5/1N4p1/2Np1B2/8/PPP2PPP/2KR1B1R w kq - 0 13",
	"r1bq1rk1/ppp1nppp/4n3/3p3Q/3P4/1BP1B3/PP1N2PP/R4RK1 w - - 1 16",
	"4r1k1/r1q2ppp/ppp2n2/4P3/5Rb1/1N1BQ3/PPP3PP/R5K1 w - - 1 17",
	"2rqkb1r/ppp2p2/2npb1p1/1N1Nn2p/2P1PP2/8/PP2B1PP/R1BQK2R b KQ - 0 11",
	"r1bq1r1k/b1p1npp1/p2p3p/1p6/3PP3/1B2NN2/PP3PPP/R2Q1RK1 w - - 1 16",
}

// Default returns the built-in suite.
func Default() []position.Position {
	out := make([]position.Position, len(defaultFENs))
	for i, fen := range defaultFENs {
		out[i] = position.MustParse(fen)
	}
	return out
}

// Load reads a suite file.
//
// Errors:
//
//	ErrFileIO - The file could not be opened or read
//	ErrMalformed - See Parse
func Load(path string) ([]position.Position, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileIO, err)
	}
	defer f.Close()

	positions, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return positions, nil
}

// Parse reads newline-separated positions. Blank lines and lines starting
// with '#' are skipped.
//
// Errors:
//
//	ErrFileIO - Reading r failed
//	ErrMalformed - A line is not a valid position, or no positions were found
func Parse(r io.Reader) ([]position.Position, error) {
	var positions []position.Position

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pos, err := position.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
		}
		positions = append(positions, pos)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileIO, err)
	}
	if len(positions) == 0 {
		return nil, fmt.Errorf("%w: no positions", ErrMalformed)
	}
	return positions, nil
}
