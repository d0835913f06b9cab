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

const planningSystemPrompt = `You are a Lean 4 theorem proving expert and planning agent.
Your job is to analyze programming tasks and create detailed implementation plans.

You should:
1. Break down the problem into logical steps
2. Identify key Lean 4 concepts and tactics needed
3. Suggest an implementation approach
4. Anticipate potential proof challenges
5. Recommend relevant Lean 4 libraries or theorems

Return your response as JSON with these fields:
- strategy: High-level approach
- implementation_steps: List of specific coding steps
- proof_approach: Strategy for proving correctness
- lean_concepts: Relevant Lean 4 concepts to use
- potential_challenges: Anticipated difficulties`

// PlanningAgent produces a solution strategy for a proving task.
type PlanningAgent struct {
	client llm.LLMClient
	logger *slog.Logger
}

// NewPlanningAgent creates the planning stage adapter.
func NewPlanningAgent(client llm.LLMClient, logger *slog.Logger) (*PlanningAgent, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanningAgent{client: client, logger: logger}, nil
}

// Process issues one chat call and returns the stage's tagged result.
// A response that does not parse against the plan schema is wrapped as
// an unstructured plan carrying the raw text; a transport failure is
// the only error path.
func (a *PlanningAgent) Process(ctx context.Context, input PlanningInput) (*PlanResult, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: planningSystemPrompt},
		{Role: llm.RoleUser, Content: a.buildUserPrompt(input)},
	}
	response, err := a.client.Chat(ctx, messages, llm.GenerationParams{
		Temperature: llm.Float32Ptr(0.3),
		MaxTokens:   llm.IntPtr(2000),
	})
	if err != nil {
		return nil, fmt.Errorf("planning call failed: %w", err)
	}

	result := &PlanResult{Raw: response}
	cleaned := stripFences(response)
	if jsonErr := json.Unmarshal([]byte(cleaned), result); jsonErr == nil && result.Strategy != "" {
		result.Structured = true
	} else {
		// Fallback: wrap the raw text as the strategy.
		*result = PlanResult{Strategy: response, Raw: response}
	}

	a.logger.Debug("Planning stage complete",
		slog.Bool("structured", result.Structured),
		slog.Int("response_bytes", len(response)),
	)
	return result, nil
}

func (a *PlanningAgent) buildUserPrompt(input PlanningInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task Description: %s\n\nTask Template: %s\n", input.Description, input.Template)

	if input.RetrievalContext != "" {
		fmt.Fprintf(&b, "\nRelevant Lean 4 documentation and examples:\n%s\n", input.RetrievalContext)
	}
	if len(input.PreviousAttempts) > 0 {
		b.WriteString("\nPrevious attempts failed with:\n")
		for _, attempt := range input.PreviousAttempts {
			fmt.Fprintf(&b, "Attempt %d (%s): %s\n", attempt.Attempt, attempt.Stage, attempt.Error)
		}
	}
	if len(input.ErrorPatterns) > 0 {
		fmt.Fprintf(&b, "\nRecurring error patterns:\n%s\n", strings.Join(input.ErrorPatterns, "\n"))
	}

	b.WriteString("\nPlease create a detailed implementation plan for this Lean 4 theorem proving task.")
	return b.String()
}
