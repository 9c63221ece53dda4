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
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/EngineBench/cmd/enginebench/config"
	"github.com/AleutianAI/EngineBench/pkg/extensions"
	"github.com/AleutianAI/EngineBench/pkg/ux"
	"github.com/AleutianAI/EngineBench/services/bench/api"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	serveAddr  string // Listen address
	serveDebug bool   // Gin debug mode
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// serveCmd serves the run history over HTTP.
//
// # Description
//
// Opens the history database read-write (BadgerDB holds a directory lock,
// so "run" cannot record runs while the server is up) and serves
//
//	GET /health
//	GET /metrics              (when telemetry.metrics is prometheus)
//	GET /v1/runs?limit=N
//	GET /v1/runs/:id
//	GET /v1/runs/:id/report
//
// until SIGINT or SIGTERM. With serve.token (or ENGINEBENCH_API_TOKEN) set,
// the /v1 routes require "Authorization: Bearer <token>".
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run history as a JSON API",
	Args:  cobra.NoArgs,
	RunE:  runServeCommand,
}

func registerServeFlags() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default serve.addr, "+config.DefaultServe+")")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable gin debug mode")
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	cfg := appConfig
	if serveAddr != "" {
		cfg.Serve.Addr = serveAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if serveDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := startTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(providers)

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	opts := extensions.DefaultOptions()
	if cfg.Serve.Token != "" {
		opts = opts.WithAuth(extensions.NewTokenAuthProvider(cfg.Serve.Token))
	}

	srv := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           api.NewRouter(store, providers.MetricsHandler(), appLogger.Slog(), opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Info("Starting enginebench API", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down enginebench API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	ux.KeyValue("Listening", "http://"+cfg.Serve.Addr)
	return g.Wait()
}
