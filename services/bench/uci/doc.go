// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package uci implements the line-oriented Universal Chess Interface codec
// used to talk to a chess engine process.
//
// # Outgoing
//
// Commands implement Command and are written with Writer.Send:
//
//	uci
//	ucinewgame
//	position startpos [moves e2e4 ...]
//	position fen <fen> [moves ...]
//	go depth <N>
//	setoption name <name> [value <value>]
//	isready
//	quit
//
// # Incoming
//
// Parse turns one output line into a Message: HandshakeAck, ReadyAck,
// Identity, ProgressInfo, FinalMove or Unrecognized. Parsing never has side
// effects. A malformed value on a recognized token returns ErrProtocolParse
// and the caller is expected to skip the line.
//
// Mate scores are mapped onto the centipawn scale with
// metric.ScoreFromMate so that all scores share one ordering.
package uci
