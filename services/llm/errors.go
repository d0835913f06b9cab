// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import "errors"

var (
	// ErrNilContext indicates a nil context was passed to an exported method.
	ErrNilContext = errors.New("context must not be nil")

	// ErrEmptyInput indicates an empty message list or text batch.
	ErrEmptyInput = errors.New("input must not be empty")

	// ErrNoChoices indicates the provider returned an empty completion.
	ErrNoChoices = errors.New("provider returned no choices")

	// ErrMissingAPIKey indicates no API key could be resolved from the
	// environment or the secrets mount.
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY environment variable not set")

	// ErrRetriesExhausted indicates the capped-retry transport gave up.
	ErrRetriesExhausted = errors.New("retry budget exhausted")

	// ErrInvalidRetryConfig indicates an out-of-range retry configuration.
	ErrInvalidRetryConfig = errors.New("invalid retry configuration")
)
