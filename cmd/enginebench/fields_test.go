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
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/EngineBench/services/bench/report"
)

func TestFieldsFromNames(t *testing.T) {
	t.Run("empty selection", func(t *testing.T) {
		f := fieldsFromNames(nil)
		assert.False(t, f.Any())
		assert.Equal(t, report.Columns(report.AllFields()), report.Columns(f))
	})

	t.Run("subset", func(t *testing.T) {
		f := fieldsFromNames([]string{"nodes", "best_move"})
		assert.Equal(t, report.Fields{Nodes: true, BestMove: true}, f)
	})

	t.Run("all wins", func(t *testing.T) {
		assert.Equal(t, report.AllFields(), fieldsFromNames([]string{"score", "all"}))
	})
}

func TestSelectedFieldNames(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addFieldFlags(flags)

	assert.Nil(t, selectedFieldNames(flags))

	require.NoError(t, flags.Parse([]string{"--nps", "--best-move"}))
	names := selectedFieldNames(flags)
	assert.Equal(t, []string{"nps", "best_move"}, names)
	assert.Equal(t, report.Fields{Speed: true, BestMove: true}, fieldsFromNames(names))
}
