// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/EngineBench/pkg/extensions"
	"github.com/AleutianAI/EngineBench/services/bench/history"
	"github.com/AleutianAI/EngineBench/services/bench/position"
	"github.com/AleutianAI/EngineBench/services/bench/runner"
	"github.com/AleutianAI/EngineBench/services/bench/search"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(history.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	res, err := search.New(position.Start(), 5, 5000, 25, 20, "e2e4")
	require.NoError(t, err)
	out := runner.Outcome{
		RunID:      "3b1d0c5e-0000-4000-8000-000000000001",
		Mode:       runner.ModeSuite,
		Engine:     "Fake 1.0",
		StartedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 3, 1, 12, 0, 2, 0, time.UTC),
		Results:    []search.Result{res},
	}
	require.NoError(t, store.Put(context.Background(), out))
	return store
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSetupRoutes(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, nil, http.NotFoundHandler(), extensions.DefaultOptions())

	want := map[string]bool{
		"GET /health":             false,
		"GET /metrics":            false,
		"GET /v1/runs":            false,
		"GET /v1/runs/:id":        false,
		"GET /v1/runs/:id/report": false,
	}
	for _, r := range router.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		assert.True(t, found, "route %s not registered", route)
	}
}

func TestRunsAPI(t *testing.T) {
	router := NewRouter(newTestStore(t), nil, nil, extensions.DefaultOptions())

	t.Run("health", func(t *testing.T) {
		rec := get(t, router, "/health")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("no metrics route without handler", func(t *testing.T) {
		rec := get(t, router, "/metrics")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list", func(t *testing.T) {
		rec := get(t, router, "/v1/runs")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Runs  []history.Summary `json:"runs"`
			Count int               `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
		require.Len(t, body.Runs, 1)
		assert.Equal(t, "Fake 1.0", body.Runs[0].Engine)
	})

	t.Run("bad limit", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, get(t, router, "/v1/runs?limit=zero").Code)
		assert.Equal(t, http.StatusBadRequest, get(t, router, "/v1/runs?limit=-1").Code)
	})

	t.Run("get by prefix", func(t *testing.T) {
		rec := get(t, router, "/v1/runs/3b1d")
		require.Equal(t, http.StatusOK, rec.Code)

		var out runner.Outcome
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, "3b1d0c5e-0000-4000-8000-000000000001", out.RunID)
		require.Len(t, out.Results, 1)
		assert.True(t, out.Results[0].Position.IsStart())
	})

	t.Run("report", func(t *testing.T) {
		rec := get(t, router, "/v1/runs/3b1d/report")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"totals"`)
	})

	t.Run("not found", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get(t, router, "/v1/runs/ffff").Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, get(t, router, "/v1/runs/a.b").Code)
	})
}

type brokenStore struct{}

func (brokenStore) List(context.Context, int) ([]history.Summary, error) {
	return nil, errors.New("disk gone")
}

func (brokenStore) Get(context.Context, string) (runner.Outcome, error) {
	return runner.Outcome{}, history.ErrAmbiguousRunID
}

func TestRunsAPI_Errors(t *testing.T) {
	router := NewRouter(brokenStore{}, nil, nil, extensions.ServiceOptions{})
	assert.Equal(t, http.StatusInternalServerError, get(t, router, "/v1/runs").Code)
	assert.Equal(t, http.StatusConflict, get(t, router, "/v1/runs/ab").Code)
}

func TestRunsAPI_TokenAuth(t *testing.T) {
	opts := extensions.DefaultOptions().WithAuth(extensions.NewTokenAuthProvider("s3cret"))
	router := NewRouter(newTestStore(t), http.NotFoundHandler(), nil, opts)

	request := func(path, auth string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, request("/health", ""))
	assert.Equal(t, http.StatusNotFound, request("/metrics", ""), "metrics stays public")
	assert.Equal(t, http.StatusUnauthorized, request("/v1/runs", ""))
	assert.Equal(t, http.StatusUnauthorized, request("/v1/runs", "Bearer wrong"))
	assert.Equal(t, http.StatusUnauthorized, request("/v1/runs", "s3cret"), "scheme is required")
	assert.Equal(t, http.StatusOK, request("/v1/runs", "Bearer s3cret"))
	assert.Equal(t, http.StatusOK, request("/v1/runs/3b1d", "Bearer s3cret"))
}
