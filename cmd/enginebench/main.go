// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command enginebench benchmarks a UCI chess engine.
//
// It searches a suite of positions to a fixed depth and prints node counts,
// time, speed, branching factor and score per position. When a snapshot of
// an earlier run exists, every snapshot position is searched again and the
// two runs are compared.
//
// Usage:
//
//	enginebench run --engine ./target/release/engine            # suite mode, print only
//	enginebench run -e ./engine --save                          # write bench_snapshot.json
//	enginebench run -e ./engine --nodes --time                  # diff against the snapshot
//	enginebench run -e ./engine --against-run 3f2a              # diff against a stored run
//	enginebench run -e ./engine --watch                         # re-run on every rebuild
//	enginebench history list
//	enginebench serve --addr :8080
package main

import (
	"os"

	"github.com/AleutianAI/EngineBench/pkg/ux"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		ux.Error(err.Error())
		closeLogger()
		os.Exit(1)
	}
	closeLogger()
}
