// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package leanrunner is the boundary to the external Lean 4 compiler.
// It substitutes generated code and proofs into a task template, writes
// the result to a scratch file, and invokes lake with a hard wall-clock
// timeout. Failures come back as results, never as panics: a timeout or
// spawn error is an ExecutionResult with Success=false and ExitCode=-1.
package leanrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Template slot markers.
const (
	CodeSlot  = "{{code}}"
	ProofSlot = "{{proof}}"

	// PlaceholderProof is the unproved-obligation marker substituted when
	// checking an implementation on its own.
	PlaceholderProof = "sorry"
)

// DefaultTimeout bounds one compiler invocation, overridable via
// LEAN_TIMEOUT (seconds).
const DefaultTimeout = 60 * time.Second

// ExecutionResult is the outcome of one compiler invocation.
type ExecutionResult struct {
	Success  bool   `json:"success"`
	Output   string `json:"output"`
	Error    string `json:"error"`
	ExitCode int    `json:"exit_code"`
}

// Runner executes Lean 4 source through lake.
//
// Thread Safety: safe for concurrent use as long as callers pass
// distinct filenames. Each execution creates its own process and file.
type Runner struct {
	playgroundDir string
	workingDir    string
	command       string
	baseArgs      []string
	timeout       time.Duration
	logger        *slog.Logger
}

// Option configures the Runner.
type Option func(*Runner)

// WithPlaygroundDir sets the scratch directory for temporary files.
func WithPlaygroundDir(dir string) Option {
	return func(r *Runner) { r.playgroundDir = dir }
}

// WithWorkingDir sets the directory the compiler runs from. It should
// contain the lakefile so imports resolve.
func WithWorkingDir(dir string) Option {
	return func(r *Runner) { r.workingDir = dir }
}

// WithCommand overrides the compiler command, mainly for tests.
func WithCommand(command string, args ...string) Option {
	return func(r *Runner) {
		r.command = command
		r.baseArgs = args
	}
}

// WithTimeout overrides the per-invocation wall-clock timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Runner) { r.timeout = timeout }
}

// WithLogger sets the logger for execution events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a runner with the default lake invocation.
func NewRunner(opts ...Option) (*Runner, error) {
	timeout := DefaultTimeout
	if v := os.Getenv("LEAN_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}
	r := &Runner{
		playgroundDir: "lean_playground",
		command:       "lake",
		baseArgs:      []string{"lean"},
		timeout:       timeout,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := os.MkdirAll(r.playgroundDir, 0o755); err != nil {
		return nil, fmt.Errorf("create playground dir: %w", err)
	}
	return r, nil
}

// Execute writes source to a scratch file and compiles it.
//
// The scratch file is removed in a defer regardless of outcome, so no
// file leaks past a timeout or spawn failure. All failure modes are
// reported through the result; Execute never panics and has no error
// return.
func (r *Runner) Execute(ctx context.Context, source, filename string) *ExecutionResult {
	if ctx == nil {
		ctx = context.Background()
	}
	if filename == "" {
		filename = "TempTest.lean"
	}
	filePath := filepath.Join(r.playgroundDir, filename)

	if err := os.WriteFile(filePath, []byte(source), 0o644); err != nil {
		return &ExecutionResult{
			Success:  false,
			Error:    fmt.Sprintf("failed to write scratch file: %v", err),
			ExitCode: -1,
		}
	}
	defer func() {
		if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("Failed to remove scratch file",
				slog.String("path", filePath),
				slog.String("error", err.Error()),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := append(append([]string{}, r.baseArgs...), filePath)
	cmd := exec.CommandContext(ctx, r.command, args...)
	if r.workingDir != "" {
		cmd.Dir = r.workingDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("Executing Lean compiler",
		slog.String("command", r.command),
		slog.Any("args", args),
		slog.Duration("timeout", r.timeout),
	)

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		r.logger.Warn("Lean execution timed out", slog.Duration("timeout", r.timeout))
		return &ExecutionResult{
			Success:  false,
			Error:    fmt.Sprintf("execution timed out after %ds", int(r.timeout.Seconds())),
			ExitCode: -1,
		}
	}

	result := &ExecutionResult{
		Output: stdout.String(),
		Error:  stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
			result.Error = fmt.Sprintf("execution failed: %v", err)
		}
	}
	result.Success = result.ExitCode == 0

	r.logger.Debug("Lean execution finished",
		slog.Bool("success", result.Success),
		slog.Int("exit_code", result.ExitCode),
		slog.Duration("duration", duration),
	)
	return result
}

// TestImplementation checks that the implementation slot type-checks on
// its own, with the proof slot filled by the placeholder marker.
func (r *Runner) TestImplementation(ctx context.Context, template, code string) *ExecutionResult {
	source := substitute(template, code, PlaceholderProof)
	return r.Execute(ctx, source, "ImplementationTest.lean")
}

// TestFullSolution checks the complete artifact: implementation and
// proof substituted into their slots.
func (r *Runner) TestFullSolution(ctx context.Context, template, code, proof string) *ExecutionResult {
	source := substitute(template, code, proof)
	return r.Execute(ctx, source, "FullSolutionTest.lean")
}

// ValidateSyntax compiles a bare fragment under a minimal import header
// for a quick syntax check outside any task template.
func (r *Runner) ValidateSyntax(ctx context.Context, code string) *ExecutionResult {
	source := fmt.Sprintf("import Mathlib\nimport Aesop\n\n%s\n", code)
	return r.Execute(ctx, source, "SyntaxTest.lean")
}

// substitute fills both template slots.
func substitute(template, code, proof string) string {
	out := strings.ReplaceAll(template, CodeSlot, code)
	return strings.ReplaceAll(out, ProofSlot, proof)
}
