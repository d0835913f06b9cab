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

import "errors"

var (
	// ErrInvalidTask indicates a task with an empty description or a
	// template missing one of its slots.
	ErrInvalidTask = errors.New("invalid task")

	// ErrNilDependency indicates the workflow was constructed without one
	// of its collaborators.
	ErrNilDependency = errors.New("workflow dependency must not be nil")

	// ErrInvalidConfig indicates an out-of-range budget.
	ErrInvalidConfig = errors.New("invalid workflow configuration")
)
