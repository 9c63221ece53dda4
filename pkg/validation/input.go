// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation checks user-provided strings before they are used as
// database keys or written to the engine's stdin.
//
// Run IDs end up inside BadgerDB key prefixes, and engine options are sent
// verbatim as "setoption name <name> value <value>" lines, so a newline or
// a stray " value " token would inject extra protocol commands.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// ErrInvalidInput is wrapped by every validation failure.
var ErrInvalidInput = errors.New("invalid input")

// runIDPattern matches run IDs and their prefixes: UUIDs, or any short
// token of letters, digits, hyphens and underscores.
var runIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidateRunID validates a run ID or ID prefix.
//
// Example:
//
//	if err := validation.ValidateRunID(c.Param("id")); err != nil {
//	    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
//	    return
//	}
func ValidateRunID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: run id cannot be empty", ErrInvalidInput)
	}
	if !runIDPattern.MatchString(id) {
		return fmt.Errorf("%w: run id %q (must be 1-64 letters, digits, hyphens or underscores)", ErrInvalidInput, id)
	}
	return nil
}

// SanitizeRunID trims and lowercases id, then validates it. UUIDs are
// stored lowercase, so a pasted uppercase ID still matches.
func SanitizeRunID(id string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(id))
	if err := ValidateRunID(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// ValidateEngineOption validates one engine option.
//
// Names must be non-empty, must not start or end with a space, and must
// not contain the word "value" (the protocol's name/value separator).
// Neither part may contain control characters.
func ValidateEngineOption(name, value string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: engine option name cannot be empty", ErrInvalidInput)
	}
	if name != strings.TrimSpace(name) {
		return fmt.Errorf("%w: engine option %q has surrounding spaces", ErrInvalidInput, name)
	}
	for _, word := range strings.Fields(name) {
		if strings.EqualFold(word, "value") {
			return fmt.Errorf("%w: engine option %q contains the word \"value\"", ErrInvalidInput, name)
		}
	}
	if hasControl(name) {
		return fmt.Errorf("%w: engine option %q contains control characters", ErrInvalidInput, name)
	}
	if hasControl(value) {
		return fmt.Errorf("%w: value of engine option %q contains control characters", ErrInvalidInput, name)
	}
	return nil
}

// ValidateEngineOptions validates every option. The error lists all
// invalid names, sorted.
func ValidateEngineOptions(options map[string]string) error {
	var invalid []string
	for name, value := range options {
		if err := ValidateEngineOption(name, value); err != nil {
			invalid = append(invalid, fmt.Sprintf("%q", name))
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return fmt.Errorf("%w: engine options %s", ErrInvalidInput, strings.Join(invalid, ", "))
	}
	return nil
}

func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}
