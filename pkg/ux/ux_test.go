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
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/EngineBench/services/bench/position"
)

// capture redirects Stdout and Stderr for the duration of f.
func capture(t *testing.T, level PersonalityLevel, f func()) (string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	oldOut, oldErr, oldLevel := Stdout, Stderr, GetPersonality()
	Stdout, Stderr = &out, &errOut
	SetPersonality(level)
	defer func() {
		Stdout, Stderr = oldOut, oldErr
		SetPersonality(oldLevel)
	}()
	f()
	return out.String(), errOut.String()
}

func TestParsePersonality(t *testing.T) {
	assert.Equal(t, PersonalityMachine, ParsePersonality("quiet"))
	assert.Equal(t, PersonalityMinimal, ParsePersonality(" MIN "))
	assert.Equal(t, PersonalityStandard, ParsePersonality("fancy"))
}

func TestInitPersonality_Env(t *testing.T) {
	old := GetPersonality()
	defer SetPersonality(old)

	t.Setenv(PersonalityEnv, "machine")
	InitPersonality()
	assert.Equal(t, PersonalityMachine, GetPersonality())
	assert.False(t, IsInteractive())
}

func TestOutput_Machine(t *testing.T) {
	out, errOut := capture(t, PersonalityMachine, func() {
		Title("EngineBench")
		KeyValue("engine", "Fake 1.0")
		Success("saved")
		Warning("slow")
		Error("broken")
		Muted("hint")
	})
	assert.Equal(t, "engine=Fake 1.0\nOK: saved\n", out)
	assert.Equal(t, "WARN: slow\nERROR: broken\n", errOut)
}

func TestOutput_Minimal(t *testing.T) {
	out, errOut := capture(t, PersonalityMinimal, func() {
		Success("saved")
		Error("broken")
	})
	assert.Equal(t, "✓ saved\n", out)
	assert.Equal(t, "✗ broken\n", errOut)
}

func TestOutput_Standard(t *testing.T) {
	out, _ := capture(t, PersonalityStandard, func() {
		Title("EngineBench")
		KeyValue("depth", "10")
	})
	assert.Contains(t, out, "EngineBench")
	assert.Contains(t, out, "depth:")
	assert.Contains(t, out, "10")
}

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconArrow} {
		assert.Contains(t, icon.Render(), string(icon))
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(nil))

	f, err := os.CreateTemp(t.TempDir(), "plain")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, IsTerminal(f))
}

func TestSearchProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewSearchProgress(&buf)

	p.Start(2)
	p.Advance(1, position.Start())
	p.Advance(2, position.MustParse("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"))
	p.Finish()

	out := buf.String()
	assert.Contains(t, out, "0/2")
	assert.Contains(t, out, "1/2 startpos")
	assert.Contains(t, out, "2/2")
	assert.Contains(t, out, "...", "long positions are truncated")
	assert.True(t, strings.HasSuffix(out, "\r"), "finish clears the line")
}

func TestConfirm_NotInteractive(t *testing.T) {
	old := GetPersonality()
	defer SetPersonality(old)
	SetPersonality(PersonalityMachine)

	_, err := Confirm("Overwrite?", "")
	assert.ErrorIs(t, err, ErrNotInteractive)
}
