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
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/EngineBench/cmd/enginebench/config"
	"github.com/AleutianAI/EngineBench/pkg/logging"
	"github.com/AleutianAI/EngineBench/pkg/ux"
)

// serviceName tags logs, telemetry and the log file name.
const serviceName = "enginebench"

// --- Global Command Variables ---
var (
	configPath       string
	logLevel         string
	logJSON          bool
	personalityLevel string // UX personality level (standard/minimal/machine)

	// appConfig and appLogger are set by setupRoot before any command runs.
	appConfig config.Config
	appLogger = logging.Default()

	rootCmd = &cobra.Command{
		Use:               "enginebench",
		Short:             "Benchmark a UCI chess engine and compare runs",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupRoot,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath,
		"Config file (missing is fine unless set explicitly)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write stderr logs as JSON")
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output style: standard, minimal, machine (env "+ux.PersonalityEnv+")")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(versionCmd)

	registerRunFlags()
	registerHistoryFlags()
	registerServeFlags()
	registerConfigFlags()
}

// setupRoot loads .env and the config file, applies the global flags and
// creates the logger.
func setupRoot(cmd *cobra.Command, _ []string) error {
	if personalityLevel != "" {
		ux.SetPersonality(ux.ParsePersonality(personalityLevel))
	} else {
		ux.InitPersonality()
	}

	config.LoadEnv()
	cfg, err := config.Load(configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON = logJSON
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrConfigInvalid, err)
	}
	logger, err := logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Log.Dir,
		Service: serviceName,
		JSON:    cfg.Log.JSON,
	})
	if err != nil {
		return err
	}

	appConfig = cfg
	appLogger = logger
	slog.SetDefault(logger.Slog())
	return nil
}

func closeLogger() {
	_ = appLogger.Close()
}
