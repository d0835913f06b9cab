// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/ProofSmith/services/llm"
)

const verificationSystemPrompt = `You are a Lean 4 debugging expert. Analyze compilation errors and suggest fixes.

Your tasks:
1. Identify the root cause of errors
2. Suggest specific corrections
3. Provide corrected code/proof if possible
4. Explain the fix

Return JSON with:
- error_analysis: Description of the problem
- suggested_fixes: List of specific corrections
- corrected_code: Fixed code (if applicable)
- corrected_proof: Fixed proof (if applicable)
- confidence: Your confidence in the fix (0-1)`

// VerificationAgent diagnoses compiler failures and proposes repairs.
// It is typically bound to a cheaper model than the other stages.
type VerificationAgent struct {
	client llm.LLMClient
	logger *slog.Logger
}

// NewVerificationAgent creates the verification stage adapter.
func NewVerificationAgent(client llm.LLMClient, logger *slog.Logger) (*VerificationAgent, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VerificationAgent{client: client, logger: logger}, nil
}

// Process diagnoses the failing artifact. With no error text there is
// nothing to repair: the agent short-circuits to a passed status and
// issues no call to the generative service. A response that does not
// parse is wrapped as an unstructured analysis with confidence 0.5.
func (a *VerificationAgent) Process(ctx context.Context, input VerificationInput) (*VerificationResult, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	if input.ErrorOutput == "" {
		return &VerificationResult{Status: VerificationStatusPassed}, nil
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: verificationSystemPrompt},
		{Role: llm.RoleUser, Content: a.buildUserPrompt(input)},
	}
	response, err := a.client.Chat(ctx, messages, llm.GenerationParams{
		Temperature: llm.Float32Ptr(0.2),
		MaxTokens:   llm.IntPtr(2000),
	})
	if err != nil {
		return nil, fmt.Errorf("verification call failed: %w", err)
	}

	result := &VerificationResult{}
	cleaned := stripFences(response)
	if jsonErr := json.Unmarshal([]byte(cleaned), result); jsonErr == nil {
		result.Structured = true
	} else {
		// Fallback: wrap the raw text as the analysis.
		*result = VerificationResult{
			ErrorAnalysis:  response,
			SuggestedFixes: []string{"See error analysis"},
			Confidence:     0.5,
		}
	}

	a.logger.Debug("Verification stage complete",
		slog.Bool("structured", result.Structured),
		slog.Bool("has_correction", result.HasCorrection()),
		slog.Float64("confidence", result.Confidence),
	)
	return result, nil
}

func (a *VerificationAgent) buildUserPrompt(input VerificationInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Code: %s\n\nProof: %s\n\nError Type: %s\n\nError Output: %s\n",
		input.Code, input.Proof, input.ErrorKind, input.ErrorOutput)

	if input.RetrievalContext != "" {
		fmt.Fprintf(&b, "\nRelevant documentation:\n%s\n", input.RetrievalContext)
	}

	b.WriteString("\nPlease analyze these errors and suggest fixes.")
	return b.String()
}
