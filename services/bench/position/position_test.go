// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package position

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kiwipete = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"

func TestParse(t *testing.T) {
	t.Run("startpos", func(t *testing.T) {
		p, err := Parse("  startpos ")
		require.NoError(t, err)
		assert.True(t, p.IsStart())
		assert.Equal(t, StartName, p.String())
		assert.Equal(t, StartFEN, p.FEN())
	})

	t.Run("full FEN", func(t *testing.T) {
		p, err := Parse(kiwipete)
		require.NoError(t, err)
		assert.False(t, p.IsStart())
		assert.Equal(t, kiwipete, p.String())
	})

	t.Run("four field FEN keeps its text", func(t *testing.T) {
		p, err := Parse("8/8/8/8/8/8/8/K6k w - -")
		require.NoError(t, err)
		assert.Equal(t, "8/8/8/8/8/8/8/K6k w - -", p.String())
	})

	t.Run("whitespace is collapsed", func(t *testing.T) {
		p, err := Parse("8/8/8/8/8/8/8/K6k   w  -  -  0  1")
		require.NoError(t, err)
		assert.Equal(t, "8/8/8/8/8/8/8/K6k w - - 0 1", p.String())
	})

	for name, input := range map[string]string{
		"empty":        "",
		"blank":        "   ",
		"field count":  "8/8/8/8/8/8/8/K6k w",
		"bad board":    "banana w - - 0 1",
		"bad side":     "8/8/8/8/8/8/8/K6k x - - 0 1",
		"too many":     kiwipete + " extra",
		"not startpos": "start",
	} {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := Parse(input)
			assert.ErrorIs(t, err, ErrInvalidPosition)
		})
	}
}

func TestMustParse(t *testing.T) {
	assert.NotPanics(t, func() { MustParse(kiwipete) })
	assert.Panics(t, func() { MustParse("nope") })
}

func TestPosition_Equal(t *testing.T) {
	assert.True(t, Start().Equal(MustParse("startpos")))
	assert.True(t, MustParse(kiwipete).Equal(MustParse(kiwipete)))
	assert.False(t, Start().Equal(MustParse(kiwipete)))
	assert.True(t, Position{}.IsZero())
}

func TestPosition_IsLegal(t *testing.T) {
	assert.True(t, Start().IsLegal("e2e4"))
	assert.True(t, Start().IsLegal("g1f3"))
	assert.False(t, Start().IsLegal("e2e5"))
	assert.False(t, Start().IsLegal(""))
	assert.True(t, MustParse(kiwipete).IsLegal("e1g1"))
	assert.False(t, Position{}.IsLegal("e2e4"))
}

func TestPosition_JSON(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		in := []Position{Start(), MustParse(kiwipete)}
		data, err := json.Marshal(in)
		require.NoError(t, err)
		assert.JSONEq(t, `["startpos", "`+kiwipete+`"]`, string(data))

		var out []Position
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, in, out)
	})

	t.Run("invalid text is rejected", func(t *testing.T) {
		var p Position
		err := json.Unmarshal([]byte(`"garbage"`), &p)
		assert.ErrorIs(t, err, ErrInvalidPosition)
	})
}
