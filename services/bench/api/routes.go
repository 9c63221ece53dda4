// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api serves run history over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/EngineBench/pkg/extensions"
	"github.com/AleutianAI/EngineBench/pkg/validation"
	"github.com/AleutianAI/EngineBench/services/bench/history"
	"github.com/AleutianAI/EngineBench/services/bench/runner"
)

// DefaultListLimit is the number of runs listed when no limit is given.
const DefaultListLimit = 50

// RunStore is the read side of the run history.
type RunStore interface {
	List(ctx context.Context, limit int) ([]history.Summary, error)
	Get(ctx context.Context, id string) (runner.Outcome, error)
}

// NewRouter builds the HTTP handler with recovery, tracing and request
// logging. metrics may be nil.
func NewRouter(store RunStore, metrics http.Handler, logger *slog.Logger, opts extensions.ServiceOptions) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("enginebench"))
	router.Use(requestLogger(logger))
	SetupRoutes(router, store, metrics, opts.Normalize())
	return router
}

// SetupRoutes registers the API on router. /health and /metrics are
// public; /v1 requires opts.AuthProvider to accept the bearer token.
func SetupRoutes(router *gin.Engine, store RunStore, metrics http.Handler, opts extensions.ServiceOptions) {
	router.GET("/health", HealthCheck)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := router.Group("/v1")
	v1.Use(RequireAuth(opts.AuthProvider))
	{
		runs := v1.Group("/runs")
		{
			runs.GET("", ListRuns(store))
			runs.GET("/:id", GetRun(store))
			runs.GET("/:id/report", GetRunReport(store))
		}
	}
}

// HealthCheck answers liveness probes.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListRuns returns run summaries, newest first. Query: limit (default 50).
func ListRuns(store RunStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := DefaultListLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}

		runs, err := store.List(c.Request.Context(), limit)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
	}
}

// GetRun returns a full run by ID or unique ID prefix.
func GetRun(store RunStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := store.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// GetRunReport returns only the aggregates of a run.
func GetRunReport(store RunStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := store.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"run_id":   out.RunID,
			"mode":     out.Mode,
			"engine":   out.Engine,
			"totals":   out.Totals,
			"report":   out.Report,
			"failures": len(out.Failures),
		})
	}
}

// RequireAuth rejects requests whose "Authorization: Bearer <token>" the
// provider does not accept. The caller is stored under "auth".
func RequireAuth(provider extensions.AuthProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok {
			token = ""
		}
		info, err := provider.Validate(c.Request.Context(), strings.TrimSpace(token))
		switch {
		case errors.Is(err, extensions.ErrUnauthorized):
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Set("auth", info)
		c.Next()
	}
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, history.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, history.ErrAmbiguousRunID):
		status = http.StatusConflict
	case errors.Is(err, validation.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}
