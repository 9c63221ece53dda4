// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryWatcher(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "engine")
	require.NoError(t, os.WriteFile(bin, []byte("v1"), 0o755))

	w, err := New(bin, 100*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	changed := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) {
			calls.Add(1)
			changed <- struct{}{}
		})
	}()

	t.Run("unrelated files are ignored", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
		select {
		case <-changed:
			t.Fatal("unrelated write triggered a change")
		case <-time.After(300 * time.Millisecond):
		}
	})

	t.Run("a burst of writes is one change", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			require.NoError(t, os.WriteFile(bin, []byte{byte('a' + i)}, 0o755))
			time.Sleep(10 * time.Millisecond)
		}
		select {
		case <-changed:
		case <-time.After(3 * time.Second):
			t.Fatal("no change reported")
		}
		time.Sleep(300 * time.Millisecond)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("stops on cancel", func(t *testing.T) {
		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(3 * time.Second):
			t.Fatal("Run did not return")
		}
	})
}

func TestNew(t *testing.T) {
	_, err := New("", 0, nil)
	assert.Error(t, err)

	_, err = New(filepath.Join(t.TempDir(), "missing-dir", "engine"), 0, nil)
	assert.Error(t, err)

	w, err := New(filepath.Join(t.TempDir(), "engine"), 0, nil)
	require.NoError(t, err)
	defer w.Close()
	assert.True(t, filepath.IsAbs(w.Path()))
}
