// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/EngineBench/pkg/validation"
)

// Sentinel errors for configuration loading.
var (
	// ErrConfigRead indicates the config file could not be read or parsed.
	ErrConfigRead = errors.New("config read failed")

	// ErrConfigInvalid indicates a value failed validation.
	ErrConfigInvalid = errors.New("invalid config")
)

// Environment overrides.
const (
	EnvEngine         = "ENGINEBENCH_ENGINE"
	EnvInfluxToken    = "ENGINEBENCH_INFLUX_TOKEN"
	EnvGCSCredentials = "ENGINEBENCH_GCS_CREDENTIALS"
	EnvLogLevel       = "ENGINEBENCH_LOG_LEVEL"
	EnvAPIToken       = "ENGINEBENCH_API_TOKEN"
)

var validate = validator.New()

// LoadEnv loads .env files into the process environment. Variables
// already set win. Missing files are ignored.
func LoadEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// Load reads the config file at path on top of Default, then applies the
// environment overrides. It does not validate; call Validate once flags
// have been applied.
//
// Inputs:
//
//	path - The YAML file
//	required - When false a missing file yields the defaults
//
// Errors:
//
//	ErrConfigRead - The file is missing (when required), unreadable, or
//	not valid YAML for Config
func Load(path string, required bool) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && !required:
	case err != nil:
		return Config{}, fmt.Errorf("%w: %v", ErrConfigRead, err)
	default:
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrConfigRead, path, err)
		}
	}

	applyEnv(&cfg, os.Getenv)
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv(EnvEngine); v != "" {
		cfg.Engine.Path = v
	}
	if v := getenv(EnvInfluxToken); v != "" {
		cfg.Influx.Token = v
	}
	if v := getenv(EnvGCSCredentials); v != "" {
		cfg.Snapshot.GCSCredentials = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := getenv(EnvAPIToken); v != "" {
		cfg.Serve.Token = v
	}
}

// Validate checks every field constraint.
//
// Errors:
//
//	ErrConfigInvalid - Lists each failing field, including engine options
//	that would break the setoption line
func (c Config) Validate() error {
	var msgs []string
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	switch {
	case err == nil:
	case errors.As(err, &verrs):
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	default:
		return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	if err := validation.ValidateEngineOptions(c.Engine.Options); err != nil {
		msgs = append(msgs, "Config.Engine.Options: "+err.Error())
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrConfigInvalid, strings.Join(msgs, "; "))
}

// Write saves cfg as YAML.
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
