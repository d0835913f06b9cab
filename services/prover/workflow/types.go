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
	"fmt"
	"strings"

	"github.com/AleutianAI/ProofSmith/services/prover/leanrunner"
)

// Stage identifies how far an attempt got before its outcome was
// recorded.
type Stage string

// Attempt stages, in pipeline order.
const (
	StagePlanning            Stage = "planning"
	StageGeneration          Stage = "generation"
	StageImplVerification    Stage = "implementation_verification"
	StageProofVerification   Stage = "proof_verification"
	StageVerificationTimeout Stage = "verification_timeout"
	StageException           Stage = "exception"
	StageSuccess             Stage = "success"
)

// Task is one theorem-proving problem: a natural-language description
// and a Lean template with {{code}} and {{proof}} slots.
type Task struct {
	Description string `json:"description"`
	Template    string `json:"template"`
}

// Validate checks both slots are present. Downstream substitution
// relies on them; a template missing a slot can never produce an
// executable test.
func (t Task) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("%w: description is empty", ErrInvalidTask)
	}
	if !strings.Contains(t.Template, leanrunner.CodeSlot) {
		return fmt.Errorf("%w: template missing %s slot", ErrInvalidTask, leanrunner.CodeSlot)
	}
	if !strings.Contains(t.Template, leanrunner.ProofSlot) {
		return fmt.Errorf("%w: template missing %s slot", ErrInvalidTask, leanrunner.ProofSlot)
	}
	return nil
}

// Attempt records one full Plan→Generate→Verify cycle. Immutable once
// appended to the accumulation context; the orchestrator appends
// exactly one per attempt.
type Attempt struct {
	Index int    `json:"attempt"`
	Code  string `json:"code"`
	Proof string `json:"proof"`
	Stage Stage  `json:"stage"`
	Error string `json:"error,omitempty"`
}

// Result is the workflow outcome. Code and Proof are always populated,
// with placeholders when every attempt failed outright.
type Result struct {
	Code       string `json:"code"`
	Proof      string `json:"proof"`
	Success    bool   `json:"success"`
	FinalStage Stage  `json:"final_stage"`
	Attempts   int    `json:"attempts"`
	RunID      string `json:"run_id"`
}
