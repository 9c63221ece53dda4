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
	"fmt"
	"strconv"
	"strings"

	"github.com/AleutianAI/EngineBench/services/bench/metric"
)

// Progress field names, as reported by ProgressInfo.Missing.
const (
	FieldNodes = "nodes"
	FieldTime  = "time"
	FieldScore = "score"
)

// =============================================================================
// INCOMING MESSAGES
// =============================================================================

// Message is a parsed engine output line.
type Message interface {
	message()
}

// HandshakeAck is "uciok".
type HandshakeAck struct{}

// ReadyAck is "readyok".
type ReadyAck struct{}

// Identity is an "id name ..." or "id author ..." line. Exactly one field is set.
type Identity struct {
	Name   string
	Author string
}

// FinalMove is "bestmove <move> [ponder <move>]". Move is empty when the
// engine reports "(none)".
type FinalMove struct {
	Move   string
	Ponder string
}

// Unrecognized is any line the codec does not interpret.
type Unrecognized struct {
	Line string
}

// Optional holds a value that may not have been reported.
type Optional[T any] struct {
	Value T
	Valid bool
}

// Some returns a present Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Valid: true}
}

// Or returns the value if present, otherwise fallback.
func (o Optional[T]) Or(fallback T) T {
	if o.Valid {
		return o.Value
	}
	return fallback
}

// ProgressInfo is a progress report. Every field is optional; engines send
// many partial updates during one search.
type ProgressInfo struct {
	Nodes Optional[metric.Nodes]
	Time  Optional[metric.Millis]
	Score Optional[metric.Score]
}

// Merge returns p updated with the fields present in next. Absent fields in
// next keep the values from p.
func (p ProgressInfo) Merge(next ProgressInfo) ProgressInfo {
	if next.Nodes.Valid {
		p.Nodes = next.Nodes
	}
	if next.Time.Valid {
		p.Time = next.Time
	}
	if next.Score.Valid {
		p.Score = next.Score
	}
	return p
}

// Missing returns the names of the fields that were never reported.
func (p ProgressInfo) Missing() []string {
	var missing []string
	if !p.Nodes.Valid {
		missing = append(missing, FieldNodes)
	}
	if !p.Time.Valid {
		missing = append(missing, FieldTime)
	}
	if !p.Score.Valid {
		missing = append(missing, FieldScore)
	}
	return missing
}

func (HandshakeAck) message() {}
func (ReadyAck) message()     {}
func (Identity) message()     {}
func (FinalMove) message()    {}
func (Unrecognized) message() {}
func (ProgressInfo) message() {}

// =============================================================================
// PARSER
// =============================================================================

// Parse interprets one engine output line.
//
// Description:
//
//	Pure and stateless. Lines that carry none of the recognized tokens
//	become Unrecognized. Inside a progress line only "nodes", "time" and
//	"score" (plain, "cp" or "mate") are read; every other token is ignored.
//	"id", "option" and "info string" lines are never progress lines.
//
// Inputs:
//
//	line - One line of engine output, with or without the trailing newline
//
// Outputs:
//
//	Message - The parsed message, nil only when error is non-nil
//	error - Non-nil when a recognized token carries a malformed value
//
// Errors:
//
//	ErrProtocolParse - Malformed bestmove or progress value
func Parse(line string) (Message, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return Unrecognized{Line: line}, nil
	}

	switch tokens[0] {
	case "uciok":
		return HandshakeAck{}, nil
	case "readyok":
		return ReadyAck{}, nil
	case "bestmove":
		return parseBestMove(line, tokens)
	case "id":
		return parseIdentity(line, tokens), nil
	case "option":
		return Unrecognized{Line: line}, nil
	case "info":
		if len(tokens) > 1 && tokens[1] == "string" {
			return Unrecognized{Line: line}, nil
		}
	}
	return parseProgress(line, tokens)
}

func parseBestMove(line string, tokens []string) (Message, error) {
	if len(tokens) < 2 {
		return nil, fmt.Errorf("%w: bestmove without a move: %q", ErrProtocolParse, line)
	}
	msg := FinalMove{Move: tokens[1]}
	if msg.Move == "(none)" {
		msg.Move = ""
	}
	if len(tokens) >= 4 && tokens[2] == "ponder" {
		msg.Ponder = tokens[3]
	}
	return msg, nil
}

func parseIdentity(line string, tokens []string) Message {
	if len(tokens) < 3 {
		return Unrecognized{Line: line}
	}
	value := strings.Join(tokens[2:], " ")
	switch tokens[1] {
	case "name":
		return Identity{Name: value}
	case "author":
		return Identity{Author: value}
	default:
		return Unrecognized{Line: line}
	}
}

func parseProgress(line string, tokens []string) (Message, error) {
	var info ProgressInfo
	found := false

	for i := 0; i < len(tokens); i++ {
		switch tokens[i] {
		case "nodes":
			v, err := uintAfter(line, tokens, i)
			if err != nil {
				return nil, err
			}
			info.Nodes = Some(metric.Nodes(v))
			found = true
			i++
		case "time":
			v, err := uintAfter(line, tokens, i)
			if err != nil {
				return nil, err
			}
			info.Time = Some(metric.Millis(v))
			found = true
			i++
		case "score":
			score, consumed, err := scoreAfter(line, tokens, i)
			if err != nil {
				return nil, err
			}
			info.Score = Some(score)
			found = true
			i += consumed
		}
	}

	if !found {
		return Unrecognized{Line: line}, nil
	}
	return info, nil
}

func uintAfter(line string, tokens []string, i int) (uint64, error) {
	if i+1 >= len(tokens) {
		return 0, fmt.Errorf("%w: %s without a value: %q", ErrProtocolParse, tokens[i], line)
	}
	v, err := strconv.ParseUint(tokens[i+1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %v", ErrProtocolParse, tokens[i], tokens[i+1], err)
	}
	return v, nil
}

// scoreAfter reads "score N", "score cp N" or "score mate N" starting at
// tokens[i] and returns the number of tokens consumed after "score".
func scoreAfter(line string, tokens []string, i int) (metric.Score, int, error) {
	if i+1 >= len(tokens) {
		return 0, 0, fmt.Errorf("%w: score without a value: %q", ErrProtocolParse, line)
	}

	kind := tokens[i+1]
	if kind != "cp" && kind != "mate" {
		v, err := strconv.ParseInt(kind, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: score %q: %v", ErrProtocolParse, kind, err)
		}
		return metric.Score(v), 1, nil
	}

	if i+2 >= len(tokens) {
		return 0, 0, fmt.Errorf("%w: score %s without a value: %q", ErrProtocolParse, kind, line)
	}
	v, err := strconv.ParseInt(tokens[i+2], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: score %s %q: %v", ErrProtocolParse, kind, tokens[i+2], err)
	}
	if kind == "mate" {
		return metric.ScoreFromMate(v), 2, nil
	}
	return metric.Score(v), 2, nil
}
