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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/EngineBench/pkg/ux"
	"github.com/AleutianAI/EngineBench/services/bench/history"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	historyLimit int  // Maximum runs listed
	historyJSON  bool // Output as JSON
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect stored runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a stored run (ID or unique prefix)",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func registerHistoryFlags() {
	historyCmd.PersistentFlags().BoolVar(&historyJSON, "json", false, "Output as JSON")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs (0 for all)")
	addFieldFlags(historyShowCmd.Flags())
}

func openHistory() (*history.Store, error) {
	if appConfig.History.Disabled {
		return nil, errors.New("run history is disabled (history.disabled)")
	}
	return history.Open(history.Config{Path: appConfig.History.Path, Logger: appLogger.Slog()})
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if historyJSON {
		return writeJSON(os.Stdout, runs)
	}
	if len(runs) == 0 {
		ux.Muted("No runs stored yet")
		return nil
	}
	_, err = fmt.Fprintln(os.Stdout, historyTable(lipgloss.NewRenderer(os.Stdout), runs))
	return err
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	out, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if historyJSON {
		return writeJSON(os.Stdout, out)
	}

	names := selectedFieldNames(cmd.Flags())
	if names == nil {
		names = appConfig.Bench.Fields
	}
	ux.KeyValue("Started", out.StartedAt.Format(time.RFC3339))
	return renderOutcome(os.Stdout, out, fieldsFromNames(names))
}

// historyTable lays out run summaries.
func historyTable(lg *lipgloss.Renderer, runs []history.Summary) string {
	rows := make([][]string, len(runs))
	for i, run := range runs {
		regressed := ""
		if run.Regressed > 0 {
			regressed = strconv.Itoa(run.Regressed)
		}
		rows[i] = []string{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.Engine,
			string(run.Mode),
			strconv.Itoa(run.Positions),
			strconv.Itoa(run.Failures),
			regressed,
			run.Duration.Round(time.Millisecond).String(),
		}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lg.NewStyle().Foreground(ux.ColorTealDeep)).
		Headers("Run", "Started", "Engine", "Mode", "Positions", "Failed", "Regressed", "Duration").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lg.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true).Foreground(ux.ColorTealBright)
			}
			if col == 6 {
				return style.Foreground(ux.ColorError)
			}
			return style
		}).
		String()
}

// shortID keeps the first 8 characters, enough for "history show".
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
