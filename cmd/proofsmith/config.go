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

import "os"

// Config is the optional config.yaml shape. Anything unset falls back
// to a default or an environment variable.
type Config struct {
	DocumentsDir          string `yaml:"documents_dir"`
	DBDir                 string `yaml:"db_dir"`
	PlaygroundDir         string `yaml:"playground_dir"`
	LeanWorkingDir        string `yaml:"lean_working_dir"`
	MaxAttempts           int    `yaml:"max_attempts"`
	MaxVerificationRounds int    `yaml:"max_verification_rounds"`
	Model                 string `yaml:"model"`
	VerifierModel         string `yaml:"verifier_model"`
	LogLevel              string `yaml:"log_level"`
	LogDir                string `yaml:"log_dir"`
	LogJSON               bool   `yaml:"log_json"`
}

// DefaultCLIConfig returns the baseline configuration.
func DefaultCLIConfig() Config {
	c := Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.DocumentsDir == "" {
		c.DocumentsDir = "documents"
	}
	if c.DBDir == "" {
		c.DBDir = "embedding_db"
	}
	if c.PlaygroundDir == "" {
		c.PlaygroundDir = "lean_playground"
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.MaxVerificationRounds == 0 {
		c.MaxVerificationRounds = 3
	}
	if c.Model == "" {
		c.Model = os.Getenv("OPENAI_MODEL")
	}
	if c.VerifierModel == "" {
		c.VerifierModel = os.Getenv("VERIFIER_MODEL")
	}
	if c.VerifierModel == "" {
		c.VerifierModel = "gpt-4o-mini"
	}
	if c.LogLevel == "" {
		c.LogLevel = os.Getenv("LOG_LEVEL")
	}
}
