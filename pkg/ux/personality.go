// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// PersonalityLevel controls how much decoration the CLI prints.
type PersonalityLevel string

const (
	// PersonalityStandard prints colours, icons and progress.
	PersonalityStandard PersonalityLevel = "standard"

	// PersonalityMinimal prints icons without colour or progress.
	PersonalityMinimal PersonalityLevel = "minimal"

	// PersonalityMachine prints plain, parseable lines.
	PersonalityMachine PersonalityLevel = "machine"
)

// PersonalityEnv overrides the detected personality.
const PersonalityEnv = "ENGINEBENCH_PERSONALITY"

var (
	currentPersonality = PersonalityStandard
	personalityMu      sync.RWMutex
)

// GetPersonality returns the current level.
func GetPersonality() PersonalityLevel {
	personalityMu.RLock()
	defer personalityMu.RUnlock()
	return currentPersonality
}

// SetPersonality sets the current level.
func SetPersonality(level PersonalityLevel) {
	personalityMu.Lock()
	defer personalityMu.Unlock()
	currentPersonality = level
}

// ParsePersonality parses a level name. Unknown names are standard.
func ParsePersonality(s string) PersonalityLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal", "min", "m":
		return PersonalityMinimal
	case "machine", "quiet", "q":
		return PersonalityMachine
	default:
		return PersonalityStandard
	}
}

// InitPersonality picks the level from the environment, falling back to
// machine mode when stdout is not a terminal.
func InitPersonality() {
	if env := os.Getenv(PersonalityEnv); env != "" {
		SetPersonality(ParsePersonality(env))
		return
	}
	if !IsTerminal(os.Stdout) {
		SetPersonality(PersonalityMachine)
		return
	}
	SetPersonality(PersonalityStandard)
}

// IsTerminal reports whether f is a terminal, including Cygwin ptys.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// IsInteractive reports whether prompts can be shown: both stdin and
// stdout are terminals and the personality is not machine.
func IsInteractive() bool {
	return GetPersonality() != PersonalityMachine && IsTerminal(os.Stdin) && IsTerminal(os.Stdout)
}

// ShouldShowProgress reports whether progress bars are drawn.
func ShouldShowProgress() bool {
	return GetPersonality() == PersonalityStandard && IsTerminal(os.Stderr)
}
