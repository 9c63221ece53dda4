// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/pflag"

	"github.com/AleutianAI/EngineBench/services/bench/report"
)

// fieldFlags maps each column flag to its config name.
var fieldFlags = []struct {
	flag string
	name string
}{
	{"nodes", "nodes"},
	{"time", "time"},
	{"nps", "nps"},
	{"branching", "branching"},
	{"score", "score"},
	{"best-move", "best_move"},
	{"all", "all"},
}

// fieldsFromNames builds a field selection from config names. "all" selects
// everything; unknown names are ignored (the config validator rejects them).
func fieldsFromNames(names []string) report.Fields {
	var f report.Fields
	for _, name := range names {
		switch name {
		case "nodes":
			f.Nodes = true
		case "time":
			f.Time = true
		case "nps":
			f.Speed = true
		case "branching":
			f.Branching = true
		case "score":
			f.Score = true
		case "best_move":
			f.BestMove = true
		case "all":
			return report.AllFields()
		}
	}
	return f
}

// selectedFieldNames returns the config names of the field flags set on
// flags. Nil when none is set, so the config selection applies.
func selectedFieldNames(flags *pflag.FlagSet) []string {
	var names []string
	for _, ff := range fieldFlags {
		if on, err := flags.GetBool(ff.flag); err == nil && on {
			names = append(names, ff.name)
		}
	}
	return names
}

func addFieldFlags(flags *pflag.FlagSet) {
	flags.Bool("nodes", false, "Show node counts")
	flags.Bool("time", false, "Show search time")
	flags.Bool("nps", false, "Show search speed (knps)")
	flags.Bool("branching", false, "Show the effective branching factor")
	flags.Bool("score", false, "Show the score")
	flags.Bool("best-move", false, "Show the best move")
	flags.Bool("all", false, "Show every column (the default when no column flag is set)")
}
