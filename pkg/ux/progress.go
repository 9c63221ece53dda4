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
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/EngineBench/services/bench/position"
)

// SearchProgress draws a single-line progress bar for a run, redrawn in
// place with carriage returns. It implements runner.Progress.
type SearchProgress struct {
	mu    sync.Mutex
	w     io.Writer
	bar   progress.Model
	total int
	width int
}

// NewSearchProgress returns a progress bar writing to w.
func NewSearchProgress(w io.Writer) *SearchProgress {
	return &SearchProgress{
		w: w,
		bar: progress.New(
			progress.WithGradient(string(ColorTealDeep), string(ColorTealBright)),
			progress.WithWidth(30),
		),
	}
}

// Start implements runner.Progress.
func (p *SearchProgress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
	p.draw(0, "")
}

// Advance implements runner.Progress.
func (p *SearchProgress) Advance(done int, pos position.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draw(done, pos.String())
}

// Finish implements runner.Progress. It clears the line.
func (p *SearchProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.width > 0 {
		fmt.Fprintf(p.w, "\r%s\r", strings.Repeat(" ", p.width))
	}
	p.width = 0
}

func (p *SearchProgress) draw(done int, label string) {
	percent := 0.0
	if p.total > 0 {
		percent = float64(done) / float64(p.total)
	}
	if len(label) > 40 {
		label = label[:37] + "..."
	}
	line := fmt.Sprintf("%s %d/%d %s", p.bar.ViewAs(percent), done, p.total, Styles.Muted.Render(label))
	pad := max(p.width-lipgloss.Width(line), 0)
	fmt.Fprintf(p.w, "\r%s%s", line, strings.Repeat(" ", pad))
	p.width = lipgloss.Width(line)
}
