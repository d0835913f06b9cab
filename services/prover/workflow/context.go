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
	"strings"

	"github.com/AleutianAI/ProofSmith/services/prover/agents"
)

// signatureMaxLen caps the length of one error signature.
const signatureMaxLen = 200

// AccumulationContext threads accumulated failure context between
// stages and attempts. Exclusively owned by one workflow run: created
// at entry, discarded after the final result. The attempt history is
// append-only and chronological; the signature set deduplicates but
// preserves first-seen order for prompt stability.
type AccumulationContext struct {
	task       Task
	attempts   []Attempt
	signatures []string
	seen       map[string]struct{}
}

// NewAccumulationContext creates the context for one run.
func NewAccumulationContext(task Task) *AccumulationContext {
	return &AccumulationContext{
		task: task,
		seen: make(map[string]struct{}),
	}
}

// Task returns the task under accumulation.
func (c *AccumulationContext) Task() Task { return c.task }

// RecordAttempt appends one attempt record. Records are immutable once
// appended.
func (c *AccumulationContext) RecordAttempt(a Attempt) {
	c.attempts = append(c.attempts, a)
}

// Attempts returns the chronological attempt history. Callers must not
// mutate the returned slice.
func (c *AccumulationContext) Attempts() []Attempt { return c.attempts }

// AttemptCount returns how many attempts have been recorded.
func (c *AccumulationContext) AttemptCount() int { return len(c.attempts) }

// LastAttempts summarizes up to n of the most recent attempts for
// injection into a stage prompt, oldest first.
func (c *AccumulationContext) LastAttempts(n int) []agents.AttemptSummary {
	if n <= 0 || len(c.attempts) == 0 {
		return nil
	}
	start := len(c.attempts) - n
	if start < 0 {
		start = 0
	}
	summaries := make([]agents.AttemptSummary, 0, len(c.attempts)-start)
	for _, a := range c.attempts[start:] {
		summaries = append(summaries, agents.AttemptSummary{
			Attempt: a.Index,
			Stage:   string(a.Stage),
			Error:   a.Error,
		})
	}
	return summaries
}

// AddErrorSignature derives a signature from error text and adds it to
// the set. Blank derivations and duplicates are ignored.
func (c *AccumulationContext) AddErrorSignature(errText string) {
	sig := extractErrorSignature(errText)
	if sig == "" {
		return
	}
	if _, ok := c.seen[sig]; ok {
		return
	}
	c.seen[sig] = struct{}{}
	c.signatures = append(c.signatures, sig)
}

// ErrorSignatures returns the accumulated signatures in first-seen
// order. Callers must not mutate the returned slice.
func (c *AccumulationContext) ErrorSignatures() []string { return c.signatures }

// extractErrorSignature condenses compiler output into a short
// recognizable signature: the error-marker lines among the first three
// lines, joined and length-capped.
func extractErrorSignature(errText string) string {
	if errText == "" {
		return ""
	}
	lines := strings.Split(errText, "\n")
	if len(lines) > 3 {
		lines = lines[:3]
	}

	var parts []string
	for _, line := range lines {
		if strings.Contains(strings.ToLower(line), "error:") {
			parts = append(parts, strings.TrimSpace(line))
		}
	}
	sig := strings.Join(parts, " | ")
	if len(sig) > signatureMaxLen {
		sig = sig[:signatureMaxLen]
	}
	return sig
}
