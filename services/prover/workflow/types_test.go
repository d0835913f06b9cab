// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskValidate(t *testing.T) {
	tests := []struct {
		name        string
		task        Task
		expectError bool
	}{
		{
			name: "valid task",
			task: Task{
				Description: "prove something",
				Template:    "def f := {{code}}\ntheorem t : P := by {{proof}}",
			},
		},
		{
			name: "blank description",
			task: Task{
				Description: "   ",
				Template:    "{{code}} {{proof}}",
			},
			expectError: true,
		},
		{
			name: "missing code slot",
			task: Task{
				Description: "prove something",
				Template:    "theorem t : P := by {{proof}}",
			},
			expectError: true,
		},
		{
			name: "missing proof slot",
			task: Task{
				Description: "prove something",
				Template:    "def f := {{code}}",
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if tt.expectError {
				assert.ErrorIs(t, err, ErrInvalidTask)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.MaxAttempts = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = DefaultConfig()
	bad.MaxVerificationRounds = -1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
}
