// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report renders results and diffs as terminal tables.
//
// The set of printed columns is an explicit value built once from the
// field selection (Columns) and handed to a Renderer.
package report

// Field identifies one printable column.
type Field string

const (
	FieldPosition  Field = "position"
	FieldNodes     Field = "nodes"
	FieldTime      Field = "time"
	FieldSpeed     Field = "nps"
	FieldBranching Field = "branching"
	FieldScore     Field = "score"
	FieldBestMove  Field = "best_move"
)

// Fields is the field selection from the command line.
type Fields struct {
	Nodes     bool
	Time      bool
	Speed     bool
	Branching bool
	Score     bool
	BestMove  bool
}

// AllFields selects every field.
func AllFields() Fields {
	return Fields{Nodes: true, Time: true, Speed: true, Branching: true, Score: true, BestMove: true}
}

// Any reports whether at least one field is selected.
func (f Fields) Any() bool {
	return f.Nodes || f.Time || f.Speed || f.Branching || f.Score || f.BestMove
}

// Column is one table column.
type Column struct {
	// Label is the header text.
	Label string

	// Width is the minimum content width. Wider content widens the column.
	Width int

	// Field selects the value shown.
	Field Field
}

// Columns returns the ordered column list for f. The position column is
// always first. An empty selection means every field.
func Columns(f Fields) []Column {
	if !f.Any() {
		f = AllFields()
	}

	cols := []Column{{Label: "Position", Width: 72, Field: FieldPosition}}
	if f.Nodes {
		cols = append(cols, Column{Label: "Nodes", Width: 12, Field: FieldNodes})
	}
	if f.Time {
		cols = append(cols, Column{Label: "Time", Width: 8, Field: FieldTime})
	}
	if f.Speed {
		cols = append(cols, Column{Label: "Speed", Width: 10, Field: FieldSpeed})
	}
	if f.Branching {
		cols = append(cols, Column{Label: "Branching", Width: 6, Field: FieldBranching})
	}
	if f.Score {
		cols = append(cols, Column{Label: "Score", Width: 6, Field: FieldScore})
	}
	if f.BestMove {
		cols = append(cols, Column{Label: "Best move", Width: 6, Field: FieldBestMove})
	}
	return cols
}
