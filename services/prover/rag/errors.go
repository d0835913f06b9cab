// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rag

import "errors"

var (
	// ErrNilContext indicates a nil context was passed to an exported method.
	ErrNilContext = errors.New("context must not be nil")

	// ErrNilEmbedder indicates New was called without an embedding backend.
	ErrNilEmbedder = errors.New("embedder must not be nil")

	// ErrInvalidChunking indicates the chunk/overlap sizes are unusable.
	// The overlap must be strictly smaller than the chunk size.
	ErrInvalidChunking = errors.New("overlap size must be smaller than chunk size")

	// ErrEmptyContent indicates an AddDocument call with no content.
	ErrEmptyContent = errors.New("document content must not be empty")

	// ErrCorruptIndex indicates the persisted artifacts disagree with each
	// other (chunk/vector counts diverge). Treated as "no index" by load.
	ErrCorruptIndex = errors.New("persisted index artifacts are inconsistent")
)
