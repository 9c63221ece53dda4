// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads enginebench.yaml, applies environment overrides and
// validates the result.
//
// Precedence, lowest first: built-in defaults, the YAML file, environment
// variables (including those from .env), command-line flags. Flags are
// applied by the command layer.
package config

import (
	"sort"
	"time"

	"github.com/AleutianAI/EngineBench/services/bench/diff"
	"github.com/AleutianAI/EngineBench/services/bench/engine"
	"github.com/AleutianAI/EngineBench/services/bench/export"
	"github.com/AleutianAI/EngineBench/services/bench/history"
	"github.com/AleutianAI/EngineBench/services/bench/telemetry"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "enginebench.yaml"

// Defaults for the bench section.
const (
	DefaultDepth    = 10
	DefaultSnapshot = "./bench_snapshot.json"
	DefaultServe    = "127.0.0.1:8080"
)

// Config is the whole configuration file.
type Config struct {
	Engine    EngineConfig     `yaml:"engine"`
	Bench     BenchConfig      `yaml:"bench"`
	Snapshot  SnapshotConfig   `yaml:"snapshot"`
	History   HistoryConfig    `yaml:"history"`
	Influx    export.Config    `yaml:"influx"`
	Log       LogConfig        `yaml:"log"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Serve     ServeConfig      `yaml:"serve"`
}

// EngineConfig describes the engine process.
type EngineConfig struct {
	// Path is the engine binary. Required for runs.
	Path string `yaml:"path"`

	Args []string `yaml:"args"`

	// Options are sent as setoption after the handshake, sorted by name.
	Options map[string]string `yaml:"options"`

	HandshakeTimeout time.Duration `yaml:"handshake_timeout" validate:"gte=0"`

	// ReadTimeout bounds the silence between two engine lines during a
	// search. Zero disables it.
	ReadTimeout time.Duration `yaml:"read_timeout" validate:"gte=0"`

	MissingFields string `yaml:"missing_fields" validate:"oneof=default fail"`
}

// BenchConfig controls what is searched and how diffs are computed.
type BenchConfig struct {
	Depth int `yaml:"depth" validate:"gte=1,lte=128"`

	// Suite is a position file for suite mode. Empty uses the built-in suite.
	Suite string `yaml:"suite"`

	ZeroBaseline string `yaml:"zero_baseline" validate:"oneof=error no-change"`

	// Fields selects report columns. Empty means all.
	Fields []string `yaml:"fields" validate:"dive,oneof=nodes time nps branching score best_move all"`
}

// SnapshotConfig locates the baseline snapshot.
type SnapshotConfig struct {
	// Path is a file path or gs://bucket/object.
	Path string `yaml:"path" validate:"required"`

	// GCSCredentials is a service account key file for gs:// paths.
	GCSCredentials string `yaml:"gcs_credentials"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// ServeConfig controls the HTTP API.
type ServeConfig struct {
	Addr string `yaml:"addr" validate:"hostname_port"`

	// Token, when set, is required as "Authorization: Bearer <token>" on
	// /v1 routes.
	Token string `yaml:"token"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			HandshakeTimeout: engine.DefaultHandshakeTimeout,
			MissingFields:    string(engine.MissingDefault),
		},
		Bench: BenchConfig{
			Depth:        DefaultDepth,
			ZeroBaseline: string(diff.ZeroBaselineError),
		},
		Snapshot:  SnapshotConfig{Path: DefaultSnapshot},
		History:   HistoryConfig{Path: history.DefaultPath()},
		Log:       LogConfig{Level: "info"},
		Telemetry: telemetry.DefaultConfig(),
		Serve:     ServeConfig{Addr: DefaultServe},
	}
}

// DriverConfig converts the engine section into an engine.Config.
func (c EngineConfig) DriverConfig() engine.Config {
	cfg := engine.DefaultConfig(c.Path)
	cfg.Args = c.Args
	cfg.HandshakeTimeout = c.HandshakeTimeout
	cfg.ReadTimeout = c.ReadTimeout
	cfg.MissingFields = engine.MissingFieldPolicy(c.MissingFields)

	names := make([]string, 0, len(c.Options))
	for name := range c.Options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cfg.Options = append(cfg.Options, engine.Option{Name: name, Value: c.Options[name]})
	}
	return cfg
}

// DiffOptions converts the bench section into diff.Options.
func (c BenchConfig) DiffOptions() diff.Options {
	return diff.Options{ZeroBaseline: diff.ZeroBaselinePolicy(c.ZeroBaseline)}
}
