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
	"errors"

	"github.com/charmbracelet/huh"
)

// ErrNotInteractive indicates a prompt was requested without a terminal.
var ErrNotInteractive = errors.New("not an interactive terminal")

// Confirm asks a yes/no question. The default answer is no.
//
// Errors:
//
//	ErrNotInteractive - stdin or stdout is not a terminal
//	huh.ErrUserAborted - The user pressed ctrl+c
func Confirm(title, description string) (bool, error) {
	if !IsInteractive() {
		return false, ErrNotInteractive
	}
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if err != nil {
		return false, err
	}
	return ok, nil
}
