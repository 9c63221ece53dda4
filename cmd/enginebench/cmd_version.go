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
	"runtime"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/EngineBench/pkg/ux"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the enginebench version",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		ux.KeyValue("Version", version)
		ux.KeyValue("Go", runtime.Version())
	},
}
