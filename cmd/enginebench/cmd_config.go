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
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/EngineBench/cmd/enginebench/config"
	"github.com/AleutianAI/EngineBench/pkg/ux"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage enginebench.yaml",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with the default settings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

func registerConfigFlags() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing file")
}

func runConfigInit(_ *cobra.Command, args []string) error {
	path := config.DefaultPath
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !configInitForce {
		ok, err := ux.Confirm(fmt.Sprintf("Overwrite %s?", path), "The file is replaced with the default settings.")
		if errors.Is(err, ux.ErrNotInteractive) {
			return fmt.Errorf("%s exists; use --force to overwrite", path)
		}
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	if err := config.Write(path, config.Default()); err != nil {
		return err
	}
	ux.Success("Wrote " + path)
	return nil
}
