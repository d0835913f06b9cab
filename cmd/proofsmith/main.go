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
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/ProofSmith/pkg/logging"
)

var (
	config Config
	logger *logging.Logger
)

func main() {
	defer func() {
		if logger != nil {
			_ = logger.Close()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("Error executing command", "error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		config = DefaultCLIConfig()

		configPath := "config.yaml"
		yamlFile, err := os.ReadFile(configPath)
		if err != nil {
			// Optional file: defaults and environment cover everything.
			setupLogging()
			slog.Debug("No config.yaml found, using defaults")
			return
		}
		if err := yaml.Unmarshal(yamlFile, &config); err != nil {
			slog.Error("Error parsing config.yaml", "error", err)
			os.Exit(1)
		}
		config.applyDefaults()
		setupLogging()
		slog.Info("Configuration loaded", "path", configPath)
	}
}

// setupLogging installs the configured logger as the process default so
// every component inherits it.
func setupLogging() {
	logger = logging.New(logging.Config{
		Level:  config.LogLevel,
		LogDir: config.LogDir,
		JSON:   config.LogJSON,
	})
	slog.SetDefault(logger.Slog())
}
