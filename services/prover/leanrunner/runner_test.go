// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package leanrunner

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRunner builds a runner whose "compiler" is a shell one-liner,
// so these tests exercise the full subprocess path without Lean.
func newTestRunner(t *testing.T, script string, opts ...Option) *Runner {
	t.Helper()
	base := []Option{
		WithPlaygroundDir(t.TempDir()),
		WithCommand("sh", "-c", script),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	r, err := NewRunner(append(base, opts...)...)
	require.NoError(t, err)
	return r
}

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name     string
		template string
		code     string
		proof    string
		expected string
	}{
		{
			name:     "both slots filled",
			template: "def f := {{code}}\ntheorem t : P := by {{proof}}",
			code:     "a + b",
			proof:    "rfl",
			expected: "def f := a + b\ntheorem t : P := by rfl",
		},
		{
			name:     "repeated slots all replaced",
			template: "{{code}} {{code}} {{proof}}",
			code:     "x",
			proof:    "omega",
			expected: "x x omega",
		},
		{
			name:     "no slots passes through",
			template: "theorem trivial : True := trivial",
			code:     "unused",
			proof:    "unused",
			expected: "theorem trivial : True := trivial",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, substitute(tt.template, tt.code, tt.proof))
		})
	}
}

func TestExecute_Success(t *testing.T) {
	r := newTestRunner(t, `echo compiled`)

	res := r.Execute(context.Background(), "def f := 1", "Test.lean")

	assert.True(t, res.Success)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Output, "compiled")
	assert.Empty(t, res.Error)
}

func TestExecute_CompileFailure(t *testing.T) {
	r := newTestRunner(t, `echo "error: unknown identifier" >&2; exit 3`)

	res := r.Execute(context.Background(), "def f := ?", "Test.lean")

	assert.False(t, res.Success)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.Error, "error: unknown identifier")
}

func TestExecute_Timeout(t *testing.T) {
	r := newTestRunner(t, `sleep 2`, WithTimeout(100*time.Millisecond))

	start := time.Now()
	res := r.Execute(context.Background(), "def f := 1", "Test.lean")

	assert.Less(t, time.Since(start), time.Second, "timeout must cut the process short")
	assert.False(t, res.Success)
	assert.Equal(t, -1, res.ExitCode)
	assert.Contains(t, res.Error, "timed out")
}

func TestExecute_SpawnFailure(t *testing.T) {
	r, err := NewRunner(
		WithPlaygroundDir(t.TempDir()),
		WithCommand("definitely-not-a-real-binary-4041"),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	res := r.Execute(context.Background(), "def f := 1", "Test.lean")

	assert.False(t, res.Success)
	assert.Equal(t, -1, res.ExitCode)
	assert.Contains(t, res.Error, "execution failed")
}

func TestExecute_RemovesScratchFile(t *testing.T) {
	playground := t.TempDir()
	r, err := NewRunner(
		WithPlaygroundDir(playground),
		WithCommand("sh", "-c", "cat \"$0\""),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	res := r.Execute(context.Background(), "def marker := 42", "Scratch.lean")

	assert.True(t, res.Success)
	assert.Contains(t, res.Output, "marker", "compiler saw the written source")

	_, statErr := os.Stat(filepath.Join(playground, "Scratch.lean"))
	assert.True(t, os.IsNotExist(statErr), "scratch file removed after execution")
}

func TestExecute_RemovesScratchFileOnTimeout(t *testing.T) {
	playground := t.TempDir()
	r, err := NewRunner(
		WithPlaygroundDir(playground),
		WithCommand("sh", "-c", "sleep 2"),
		WithTimeout(100*time.Millisecond),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	r.Execute(context.Background(), "def f := 1", "Timeout.lean")

	_, statErr := os.Stat(filepath.Join(playground, "Timeout.lean"))
	assert.True(t, os.IsNotExist(statErr), "scratch file removed even after a timeout")
}

func TestExecute_DefaultsForNilContextAndEmptyFilename(t *testing.T) {
	playground := t.TempDir()
	r, err := NewRunner(
		WithPlaygroundDir(playground),
		WithCommand("sh", "-c", "basename \"$0\""),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	res := r.Execute(nil, "def f := 1", "") //nolint:staticcheck // deliberate nil context

	assert.True(t, res.Success)
	assert.Contains(t, res.Output, "TempTest.lean")
}

// TestImplementation must check the code alone: the proof slot gets the
// placeholder so an unfinished proof cannot mask an implementation error.
func TestTestImplementation_SubstitutesPlaceholderProof(t *testing.T) {
	r, err := NewRunner(
		WithPlaygroundDir(t.TempDir()),
		WithCommand("sh", "-c", "cat \"$0\""),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	template := "def min3 := {{code}}\ntheorem min3_le : P := by {{proof}}"
	res := r.TestImplementation(context.Background(), template, "if a <= b then a else b")

	assert.True(t, res.Success)
	assert.Contains(t, res.Output, "if a <= b then a else b")
	assert.Contains(t, res.Output, "by "+PlaceholderProof)
	assert.NotContains(t, res.Output, CodeSlot)
	assert.NotContains(t, res.Output, ProofSlot)
}

func TestTestFullSolution_SubstitutesBothSlots(t *testing.T) {
	r, err := NewRunner(
		WithPlaygroundDir(t.TempDir()),
		WithCommand("sh", "-c", "cat \"$0\""),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	template := "def f := {{code}}\ntheorem t : P := by {{proof}}"
	res := r.TestFullSolution(context.Background(), template, "a + b", "omega")

	assert.True(t, res.Success)
	assert.Contains(t, res.Output, "a + b")
	assert.Contains(t, res.Output, "by omega")
	assert.NotContains(t, res.Output, PlaceholderProof)
}

func TestValidateSyntax_WrapsWithImports(t *testing.T) {
	r, err := NewRunner(
		WithPlaygroundDir(t.TempDir()),
		WithCommand("sh", "-c", "cat \"$0\""),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	res := r.ValidateSyntax(context.Background(), "def f := 1")

	assert.True(t, res.Success)
	assert.Contains(t, res.Output, "import Mathlib")
	assert.Contains(t, res.Output, "import Aesop")
	assert.Contains(t, res.Output, "def f := 1")
}
