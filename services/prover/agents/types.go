// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agents implements the three stage adapters of the prover:
// planning, generation, and verification. Each adapter is a pure
// request/response wrapper around one chat call to the generative
// service; they share the transport, not state, and are composed only
// by the workflow.
package agents

// AttemptSummary is the slice of a prior attempt a stage is allowed to
// see: enough to avoid repeating an error, nothing more.
type AttemptSummary struct {
	Attempt int    `json:"attempt"`
	Stage   string `json:"stage"`
	Error   string `json:"error"`
}

// =============================================================================
// Planning
// =============================================================================

// PlanningInput carries the task plus accumulated failure context into
// the planning stage.
type PlanningInput struct {
	Description      string
	Template         string
	PreviousAttempts []AttemptSummary
	ErrorPatterns    []string
	RetrievalContext string
}

// PlanResult is the planning stage's tagged result. Structured reports
// whether the provider response parsed against the plan schema; when it
// did not, Strategy holds the raw text and the list fields are empty.
type PlanResult struct {
	Strategy            string   `json:"strategy"`
	ImplementationSteps []string `json:"implementation_steps"`
	ProofApproach       string   `json:"proof_approach"`
	LeanConcepts        []string `json:"lean_concepts"`
	PotentialChallenges string   `json:"potential_challenges"`

	Raw        string `json:"-"`
	Structured bool   `json:"-"`
}

// Text returns the plan as fed to the generation stage: the full raw
// response, structured or not.
func (p *PlanResult) Text() string { return p.Raw }

// =============================================================================
// Generation
// =============================================================================

// GenerationInput carries the task, the plan, retrieval context, and
// recent failures into the generation stage.
type GenerationInput struct {
	Description      string
	Template         string
	Plan             string
	RetrievalContext string
	PreviousAttempts []AttemptSummary
	AttemptNumber    int
}

// GenerationResult is the generation stage's tagged result. Fallback
// reports that the code/proof pair came from the canned-pattern table
// rather than a parsed provider response; callers must not assume
// fallback output is task-appropriate beyond the recognized patterns.
type GenerationResult struct {
	Code        string `json:"code"`
	Proof       string `json:"proof"`
	Explanation string `json:"explanation"`

	Fallback bool `json:"-"`
}

// =============================================================================
// Verification
// =============================================================================

// VerificationStatusPassed is the status returned when there is nothing
// to repair.
const VerificationStatusPassed = "passed"

// Error kinds passed to the verification stage.
const (
	ErrorKindImplementation = "implementation"
	ErrorKindProof          = "proof"
)

// VerificationInput carries a failing artifact and its compiler
// diagnostics into the verification stage.
type VerificationInput struct {
	Code             string
	Proof            string
	ErrorOutput      string
	ErrorKind        string
	RetrievalContext string
}

// VerificationResult is the verification stage's tagged result.
// CorrectedCode and CorrectedProof are empty when the provider offered
// no correction. Structured reports whether the response parsed.
type VerificationResult struct {
	Status         string   `json:"-"`
	ErrorAnalysis  string   `json:"error_analysis"`
	SuggestedFixes []string `json:"suggested_fixes"`
	CorrectedCode  string   `json:"corrected_code"`
	CorrectedProof string   `json:"corrected_proof"`
	Confidence     float64  `json:"confidence"`

	Structured bool `json:"-"`
}

// HasCorrection reports whether any repair was offered.
func (v *VerificationResult) HasCorrection() bool {
	return v.CorrectedCode != "" || v.CorrectedProof != ""
}
