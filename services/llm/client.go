// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the transport to the generative service: chat
// completion and embedding clients plus a capped-retry wrapper with
// exponential backoff.
package llm

import "context"

// Message is a single role-tagged message in a chat request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// GenerationParams tunes a single chat completion request.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
}

// LLMClient defines the standard interface for any chat-completion backend.
type LLMClient interface {
	// Chat sends the ordered message list and returns the raw response text.
	Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error)
}

// EmbeddingClient defines the interface for any embedding backend.
type EmbeddingClient interface {
	// BatchEmbed returns one fixed-dimensionality vector per input text,
	// in input order.
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
}

// Float32Ptr returns a pointer to v, for use in GenerationParams literals.
func Float32Ptr(v float32) *float32 { return &v }

// IntPtr returns a pointer to v, for use in GenerationParams literals.
func IntPtr(v int) *int { return &v }
