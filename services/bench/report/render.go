// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/AleutianAI/EngineBench/pkg/ux"
	"github.com/AleutianAI/EngineBench/services/bench/aggregate"
	"github.com/AleutianAI/EngineBench/services/bench/diff"
	"github.com/AleutianAI/EngineBench/services/bench/metric"
	"github.com/AleutianAI/EngineBench/services/bench/search"
)

// tone selects the colour of a cell.
type tone int

const (
	tonePlain tone = iota
	toneImproved
	toneRegressed
	toneChanged
	toneMuted
	toneFooter
)

type cell struct {
	text string
	tone tone
}

// Renderer writes tables for a fixed column configuration.
//
// Colour depends on w: a terminal gets the ux palette, anything else
// (files, pipes, buffers) gets plain text.
type Renderer struct {
	w       io.Writer
	lg      *lipgloss.Renderer
	columns []Column
}

// NewRenderer returns a Renderer writing to w. An empty column list uses
// every field.
func NewRenderer(w io.Writer, columns []Column) *Renderer {
	if len(columns) == 0 {
		columns = Columns(AllFields())
	}
	return &Renderer{w: w, lg: lipgloss.NewRenderer(w), columns: columns}
}

// Columns returns the configured columns.
func (r *Renderer) Columns() []Column {
	return slices.Clone(r.columns)
}

// Results renders suite-mode results with a total and a mean footer row.
func (r *Renderer) Results(results []search.Result, totals aggregate.ResultTotals) error {
	rows := make([][]cell, 0, len(results)+2)
	for _, res := range results {
		row := make([]cell, len(r.columns))
		for i, col := range r.columns {
			row[i] = resultCell(col.Field, res)
		}
		rows = append(rows, row)
	}

	sum := make([]cell, len(r.columns))
	mean := make([]cell, len(r.columns))
	for i, col := range r.columns {
		switch col.Field {
		case FieldPosition:
			sum[i] = cell{text: fmt.Sprintf("total (%d)", totals.Count), tone: toneFooter}
			mean[i] = cell{text: "mean", tone: toneFooter}
		case FieldNodes:
			sum[i] = footer(totals.Nodes.Sum.String())
			mean[i] = footer(totals.Nodes.Mean.String())
		case FieldTime:
			sum[i] = footer(totals.Time.Sum.String())
			mean[i] = footer(totals.Time.Mean.String())
		case FieldSpeed:
			sum[i] = footer(totals.Speed.Sum.String())
			mean[i] = footer(totals.Speed.Mean.String())
		case FieldBranching:
			sum[i] = footer("")
			mean[i] = footer(totals.Branching.Mean.String())
		case FieldScore:
			sum[i] = footer(totals.Score.Sum.String())
			mean[i] = footer(totals.Score.Mean.String())
		default:
			sum[i] = footer("")
			mean[i] = footer("")
		}
	}
	rows = append(rows, sum, mean)
	return r.render(rows)
}

// Diffs renders diff-mode comparisons with a mean and an improvement
// footer row.
func (r *Renderer) Diffs(diffs []diff.Diff, rep aggregate.Report) error {
	rows := make([][]cell, 0, len(diffs)+2)
	for _, d := range diffs {
		row := make([]cell, len(r.columns))
		for i, col := range r.columns {
			row[i] = diffCell(col.Field, d)
		}
		rows = append(rows, row)
	}

	mean := make([]cell, len(r.columns))
	counts := make([]cell, len(r.columns))
	for i, col := range r.columns {
		switch col.Field {
		case FieldPosition:
			mean[i] = cell{text: fmt.Sprintf("mean (%d)", rep.Count), tone: toneFooter}
			counts[i] = cell{text: "improved / regressed", tone: toneFooter}
		case FieldNodes:
			mean[i], counts[i] = summaryCells(rep.Nodes, rep.Count)
		case FieldTime:
			mean[i], counts[i] = summaryCells(rep.Time, rep.Count)
		case FieldSpeed:
			mean[i], counts[i] = summaryCells(rep.Speed, rep.Count)
		case FieldBranching:
			mean[i], counts[i] = summaryCells(rep.Branching, rep.Count)
		case FieldScore:
			mean[i], counts[i] = summaryCells(rep.Score, rep.Count)
		case FieldBestMove:
			mean[i] = footer("")
			counts[i] = footer(fmt.Sprintf("%d/%d changed", rep.BestMoveChanged, rep.Count))
		}
	}
	rows = append(rows, mean, counts)
	return r.render(rows)
}

// Failures lists positions that produced no result. Nothing is written for
// an empty list.
func (r *Renderer) Failures(failures []search.Failure) error {
	if len(failures) == 0 {
		return nil
	}
	errStyle := r.lg.NewStyle().Foreground(ux.ColorError)
	if _, err := fmt.Fprintln(r.w, errStyle.Bold(true).Render(
		fmt.Sprintf("%d position(s) failed", len(failures)))); err != nil {
		return err
	}
	for _, f := range failures {
		line := fmt.Sprintf("%s %s (depth %d): %s", ux.IconError, f.Position, f.Depth, f.Message)
		if _, err := fmt.Fprintln(r.w, errStyle.Render(line)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) render(rows [][]cell) error {
	headers := make([]string, len(r.columns))
	widths := make([]int, len(r.columns))
	for i, col := range r.columns {
		headers[i] = col.Label
		widths[i] = max(col.Width, lipgloss.Width(col.Label))
	}

	text := make([][]string, len(rows))
	for i, row := range rows {
		text[i] = make([]string, len(row))
		for j, c := range row {
			text[i][j] = c.text
			widths[j] = max(widths[j], lipgloss.Width(c.text))
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.lg.NewStyle().Foreground(ux.ColorTealDeep)).
		Headers(headers...).
		Rows(text...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := r.lg.NewStyle().Padding(0, 1).Width(widths[col] + 2)
			if col > 0 {
				style = style.Align(lipgloss.Right)
			}
			if row == table.HeaderRow {
				return style.Bold(true).Foreground(ux.ColorTealBright)
			}
			if row < 0 || row >= len(rows) || col >= len(rows[row]) {
				return style
			}
			return r.toneStyle(style, rows[row][col].tone)
		})

	_, err := fmt.Fprintln(r.w, t.String())
	return err
}

func (r *Renderer) toneStyle(style lipgloss.Style, t tone) lipgloss.Style {
	switch t {
	case toneImproved:
		return style.Foreground(ux.ColorSuccess)
	case toneRegressed:
		return style.Foreground(ux.ColorError)
	case toneChanged:
		return style.Foreground(ux.ColorWarning)
	case toneMuted:
		return style.Foreground(ux.ColorMuted)
	case toneFooter:
		return style.Bold(true)
	default:
		return style
	}
}

// =============================================================================
// CELLS
// =============================================================================

func footer(text string) cell {
	return cell{text: text, tone: toneFooter}
}

func resultCell(f Field, res search.Result) cell {
	var c cell
	switch f {
	case FieldPosition:
		return cell{text: res.Position.String()}
	case FieldNodes:
		c = cell{text: res.Nodes.String()}
	case FieldTime:
		c = cell{text: res.Time.String()}
	case FieldSpeed:
		c = cell{text: res.Speed.String()}
	case FieldBranching:
		c = cell{text: res.Branching.String()}
	case FieldScore:
		c = cell{text: res.Score.String()}
	case FieldBestMove:
		return cell{text: res.BestMove}
	}
	if slices.Contains(res.Defaulted, string(f)) {
		c = cell{text: c.text + "*", tone: toneMuted}
	}
	return c
}

func diffCell(f Field, d diff.Diff) cell {
	switch f {
	case FieldPosition:
		return cell{text: d.Position.String()}
	case FieldNodes:
		return changeCell(d.Nodes)
	case FieldTime:
		return changeCell(d.Time)
	case FieldSpeed:
		return changeCell(d.Speed)
	case FieldBranching:
		return changeCell(d.Branching)
	case FieldScore:
		return changeCell(d.Score)
	case FieldBestMove:
		if d.BestMove.Changed() {
			return cell{text: d.BestMove.First + " → " + d.BestMove.Second, tone: toneChanged}
		}
		return cell{text: d.BestMove.Second}
	}
	return cell{}
}

// changeCell shows "first → second (±x.xx%)" coloured by verdict.
func changeCell[T interface {
	metric.Metric[T]
	fmt.Stringer
}](c diff.Change[T]) cell {
	text := fmt.Sprintf("%s → %s (%s)", c.First, c.Second, FormatRelative(c.Relative))
	switch c.Verdict() {
	case metric.Improved:
		return cell{text: text, tone: toneImproved}
	case metric.Regressed:
		return cell{text: text, tone: toneRegressed}
	default:
		return cell{text: text}
	}
}

func summaryCells[T interface {
	metric.Metric[T]
	fmt.Stringer
}](s aggregate.Summary[T], count int) (cell, cell) {
	mean := fmt.Sprintf("%s → %s (%s)", s.BaselineMean, s.FreshMean, FormatRelative(s.MeanRelative))
	counts := fmt.Sprintf("%d/%d ↑  %d/%d ↓", s.Improved, count, s.Regressed, count)
	return footer(mean), footer(counts)
}

// FormatRelative formats a relative change as a signed percentage.
func FormatRelative(rel float64) string {
	return strconv.FormatFloat(rel*100, 'f', 2, 64) + "%"
}
