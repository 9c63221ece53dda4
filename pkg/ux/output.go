// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides terminal styling, progress and prompts for the
// enginebench CLI.
package ux

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Palette.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#5D7B86")
)

// Styles are the shared text styles.
var Styles = struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Label:   lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorMuted),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon in its status colour.
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return string(i)
	}
}

// Output destinations. Status lines go to Stdout, problems to Stderr.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// Title prints a heading. Suppressed in machine mode.
func Title(text string) {
	if GetPersonality() == PersonalityMachine {
		return
	}
	fmt.Fprintln(Stdout, Styles.Title.Render(text))
}

// KeyValue prints an aligned "label: value" line.
func KeyValue(label, value string) {
	if GetPersonality() == PersonalityMachine {
		fmt.Fprintf(Stdout, "%s=%s\n", label, value)
		return
	}
	fmt.Fprintf(Stdout, "%s %s\n", Styles.Label.Render(fmt.Sprintf("%-10s", label+":")), value)
}

// Success prints a success line.
func Success(text string) {
	switch GetPersonality() {
	case PersonalityMachine:
		fmt.Fprintf(Stdout, "OK: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(Stdout, "%s %s\n", IconSuccess, text)
	default:
		fmt.Fprintf(Stdout, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

// Warning prints a warning line to Stderr.
func Warning(text string) {
	switch GetPersonality() {
	case PersonalityMachine:
		fmt.Fprintf(Stderr, "WARN: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(Stderr, "%s %s\n", IconWarning, text)
	default:
		fmt.Fprintf(Stderr, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
	}
}

// Error prints an error line to Stderr.
func Error(text string) {
	switch GetPersonality() {
	case PersonalityMachine:
		fmt.Fprintf(Stderr, "ERROR: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(Stderr, "%s %s\n", IconError, text)
	default:
		fmt.Fprintf(Stderr, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
	}
}

// Muted prints secondary text. Suppressed in machine mode.
func Muted(text string) {
	if GetPersonality() == PersonalityMachine {
		return
	}
	fmt.Fprintln(Stdout, Styles.Muted.Render(text))
}
