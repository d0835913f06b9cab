// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workflow is the attempt-orchestration state machine: it runs
// Plan → Generate → Verify once per attempt up to a fixed budget,
// threads accumulated failure context between stages, drives the
// bounded verification/repair loop, and falls back to the best
// recorded partial result when every attempt fails. Nothing escapes
// Run as a fault; every failure becomes an attempt record.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/ProofSmith/services/prover/agents"
	"github.com/AleutianAI/ProofSmith/services/prover/leanrunner"
	"github.com/AleutianAI/ProofSmith/services/prover/rag"
)

// workflowTracer is the OpenTelemetry tracer for orchestration spans.
var workflowTracer = otel.Tracer("proofsmith.prover.workflow")

// =============================================================================
// Collaborator interfaces
// =============================================================================

// Planner produces a solution strategy for a task.
type Planner interface {
	Process(ctx context.Context, input agents.PlanningInput) (*agents.PlanResult, error)
}

// Generator produces a code/proof pair consistent with a plan.
type Generator interface {
	Process(ctx context.Context, input agents.GenerationInput) (*agents.GenerationResult, error)
}

// Repairer diagnoses compiler failures and proposes corrections.
type Repairer interface {
	Process(ctx context.Context, input agents.VerificationInput) (*agents.VerificationResult, error)
}

// Retriever answers top-k similarity queries for stage context. An
// empty result means "no context available", never an error.
type Retriever interface {
	Search(ctx context.Context, query string, k int) []rag.SearchResult
}

// Compiler is the external verifier boundary.
type Compiler interface {
	TestImplementation(ctx context.Context, template, code string) *leanrunner.ExecutionResult
	TestFullSolution(ctx context.Context, template, code, proof string) *leanrunner.ExecutionResult
}

// =============================================================================
// Configuration
// =============================================================================

// Config bounds the two nested retry levels and the per-stage
// retrieval sizes. Both budgets are explicit counters checked before
// each iteration, so exhaustion is a named terminal state.
type Config struct {
	// MaxAttempts bounds full Plan→Generate→Verify cycles. Default: 5
	MaxAttempts int

	// MaxVerificationRounds bounds compiler-check/repair cycles within one
	// attempt. Default: 3
	MaxVerificationRounds int

	// Top-k retrieval sizes per stage.
	PlanChunks       int
	GenerationChunks int
	RepairChunks     int

	// HistoryForPlanning / HistoryForGeneration bound how many recent
	// attempt records each stage sees.
	HistoryForPlanning   int
	HistoryForGeneration int
}

// DefaultConfig returns the standard budgets.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:           5,
		MaxVerificationRounds: 3,
		PlanChunks:            3,
		GenerationChunks:      5,
		RepairChunks:          3,
		HistoryForPlanning:    3,
		HistoryForGeneration:  2,
	}
}

// Validate checks the budgets are usable.
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts %d", ErrInvalidConfig, c.MaxAttempts)
	}
	if c.MaxVerificationRounds < 1 {
		return fmt.Errorf("%w: max verification rounds %d", ErrInvalidConfig, c.MaxVerificationRounds)
	}
	return nil
}

// =============================================================================
// Workflow
// =============================================================================

// Workflow is the top-level orchestrator. Single-threaded: attempts,
// stages, and rounds execute strictly in sequence.
type Workflow struct {
	planner   Planner
	generator Generator
	repairer  Repairer
	retriever Retriever
	compiler  Compiler
	cfg       Config
	logger    *slog.Logger
}

// New wires the orchestrator. All collaborators are required.
func New(planner Planner, generator Generator, repairer Repairer, retriever Retriever, compiler Compiler, cfg Config, logger *slog.Logger) (*Workflow, error) {
	if planner == nil || generator == nil || repairer == nil || retriever == nil || compiler == nil {
		return nil, ErrNilDependency
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		planner:   planner,
		generator: generator,
		repairer:  repairer,
		retriever: retriever,
		compiler:  compiler,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// attemptOutcome is the terminal state of one attempt.
type attemptOutcome struct {
	success bool
	stage   Stage
	code    string
	proof   string
	errText string
}

// Run executes the workflow for one task and always returns a
// well-formed result. It never returns an error or panics: stage
// failures become attempt records, unexpected faults are recovered at
// the attempt boundary, and exhaustion falls back to the best recorded
// partial artifact.
func (w *Workflow) Run(ctx context.Context, task Task) *Result {
	if ctx == nil {
		ctx = context.Background()
	}
	runID := uuid.NewString()

	ctx, span := workflowTracer.Start(ctx, "workflow.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("workflow.run_id", runID),
		attribute.Int("workflow.max_attempts", w.cfg.MaxAttempts),
	)

	logger := w.logger.With(slog.String("run_id", runID))
	logger.Info("Starting theorem proving workflow",
		slog.String("description", truncate(task.Description, 100)),
	)
	if err := task.Validate(); err != nil {
		// Not fatal by contract: the workflow still runs and lets the
		// compiler surface the missing slot, but the operator should know.
		logger.Warn("Task failed validation", slog.String("error", err.Error()))
	}

	acc := NewAccumulationContext(task)

	for attemptNum := 1; attemptNum <= w.cfg.MaxAttempts; attemptNum++ {
		logger.Info("Starting attempt",
			slog.Int("attempt", attemptNum),
			slog.Int("max_attempts", w.cfg.MaxAttempts),
		)

		outcome := w.runAttempt(ctx, acc, attemptNum)
		if outcome.success {
			logger.Info("Attempt succeeded", slog.Int("attempt", attemptNum))
			span.SetAttributes(attribute.Int("workflow.attempts_used", attemptNum))
			return &Result{
				Code:       outcome.code,
				Proof:      outcome.proof,
				Success:    true,
				FinalStage: StageSuccess,
				Attempts:   attemptNum,
				RunID:      runID,
			}
		}

		acc.RecordAttempt(Attempt{
			Index: attemptNum,
			Code:  outcome.code,
			Proof: outcome.proof,
			Stage: outcome.stage,
			Error: outcome.errText,
		})
		acc.AddErrorSignature(outcome.errText)

		logger.Warn("Attempt failed",
			slog.Int("attempt", attemptNum),
			slog.String("stage", string(outcome.stage)),
			slog.String("error", truncate(outcome.errText, 200)),
		)
	}

	logger.Warn("All attempts failed, selecting best effort",
		slog.Int("attempts", acc.AttemptCount()),
	)
	span.SetStatus(codes.Error, "all attempts exhausted")

	code, proof, stage := bestEffort(acc.Attempts())
	return &Result{
		Code:       code,
		Proof:      proof,
		Success:    false,
		FinalStage: stage,
		Attempts:   acc.AttemptCount(),
		RunID:      runID,
	}
}

// runAttempt executes one Plan→Generate→Verify cycle. Any panic below
// is recovered here and recorded as an exception-stage outcome so the
// attempt loop keeps running.
func (w *Workflow) runAttempt(ctx context.Context, acc *AccumulationContext, attemptNum int) (outcome attemptOutcome) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Attempt hit unexpected fault",
				slog.Int("attempt", attemptNum),
				slog.Any("fault", r),
			)
			outcome = attemptOutcome{
				stage:   StageException,
				errText: fmt.Sprintf("unexpected fault: %v", r),
			}
		}
	}()

	ctx, span := workflowTracer.Start(ctx, "workflow.attempt")
	defer span.End()
	span.SetAttributes(attribute.Int("workflow.attempt", attemptNum))

	task := acc.Task()

	// Stage 1: planning.
	planContext := w.retrievalContext(ctx, "Lean 4 planning strategy "+task.Description, w.cfg.PlanChunks)
	plan, err := w.planner.Process(ctx, agents.PlanningInput{
		Description:      task.Description,
		Template:         task.Template,
		PreviousAttempts: acc.LastAttempts(w.cfg.HistoryForPlanning),
		ErrorPatterns:    acc.ErrorSignatures(),
		RetrievalContext: planContext,
	})
	if err != nil {
		span.SetStatus(codes.Error, "planning failed")
		return attemptOutcome{stage: StagePlanning, errText: fmt.Sprintf("planning failed: %v", err)}
	}

	// Stage 2: generation.
	genContext := w.retrievalContext(ctx, "Lean 4 code proof "+task.Description+" "+plan.Text(), w.cfg.GenerationChunks)
	gen, err := w.generator.Process(ctx, agents.GenerationInput{
		Description:      task.Description,
		Template:         task.Template,
		Plan:             plan.Text(),
		RetrievalContext: genContext,
		PreviousAttempts: acc.LastAttempts(w.cfg.HistoryForGeneration),
		AttemptNumber:    attemptNum,
	})
	if err != nil {
		span.SetStatus(codes.Error, "generation failed")
		return attemptOutcome{stage: StageGeneration, errText: fmt.Sprintf("generation failed: %v", err)}
	}

	// Stage 3: verification and refinement.
	return w.runVerification(ctx, task, gen.Code, gen.Proof)
}

// retrievalContext fetches top-k chunks and formats them for prompt
// injection. A failed or empty search yields "", treated by every
// stage as "no context available".
func (w *Workflow) retrievalContext(ctx context.Context, query string, k int) string {
	results := w.retriever.Search(ctx, query, k)
	if len(results) == 0 {
		return ""
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("Source: %s\n%s\n", r.Source, r.Content))
	}
	return strings.Join(parts, "\n---\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
