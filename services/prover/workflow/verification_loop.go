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
	"context"
	"log/slog"

	"github.com/AleutianAI/ProofSmith/services/prover/agents"
	"github.com/AleutianAI/ProofSmith/services/prover/leanrunner"
)

// runVerification drives the bounded check/repair loop for one attempt:
//
//	CHECK_IMPL → (pass) CHECK_FULL → (pass) SUCCESS
//	CHECK_IMPL → (fail) repair → CHECK_IMPL
//	CHECK_FULL → (fail) repair → CHECK_IMPL
//
// Every round consumes one unit of the round budget regardless of the
// repair path taken. A repair that yields no correction terminates
// immediately with the unrepaired error; a proof-stage correction may
// legitimately change the code too, so both fields update and the loop
// re-enters the implementation check.
func (w *Workflow) runVerification(ctx context.Context, task Task, code, proof string) attemptOutcome {
	for round := 1; round <= w.cfg.MaxVerificationRounds; round++ {
		w.logger.Debug("Verification round",
			slog.Int("round", round),
			slog.Int("max_rounds", w.cfg.MaxVerificationRounds),
		)

		// Check the implementation on its own first.
		implResult := w.compiler.TestImplementation(ctx, task.Template, code)
		if !implResult.Success {
			diag := diagnostic(implResult)
			w.logger.Debug("Implementation check failed", slog.String("error", truncate(diag, 100)))

			fix, ok := w.requestRepair(ctx, code, proof, diag, agents.ErrorKindImplementation)
			if ok && fix.HasCorrection() {
				if fix.CorrectedCode != "" {
					code = fix.CorrectedCode
				}
				if fix.CorrectedProof != "" {
					proof = fix.CorrectedProof
				}
				continue
			}
			return attemptOutcome{
				stage:   StageImplVerification,
				code:    code,
				proof:   proof,
				errText: diag,
			}
		}

		// Implementation passed; check the full artifact.
		fullResult := w.compiler.TestFullSolution(ctx, task.Template, code, proof)
		if fullResult.Success {
			return attemptOutcome{
				success: true,
				stage:   StageSuccess,
				code:    code,
				proof:   proof,
			}
		}
		diag := diagnostic(fullResult)
		w.logger.Debug("Proof check failed", slog.String("error", truncate(diag, 100)))

		fix, ok := w.requestRepair(ctx, code, proof, diag, agents.ErrorKindProof)
		if ok && fix.HasCorrection() {
			// A proof failure sometimes needs a code change as well.
			if fix.CorrectedCode != "" {
				code = fix.CorrectedCode
			}
			if fix.CorrectedProof != "" {
				proof = fix.CorrectedProof
			}
			continue
		}
		return attemptOutcome{
			stage:   StageProofVerification,
			code:    code,
			proof:   proof,
			errText: diag,
		}
	}

	return attemptOutcome{
		stage:   StageVerificationTimeout,
		code:    code,
		proof:   proof,
		errText: "exceeded maximum verification rounds",
	}
}

// requestRepair asks the verification agent for a fix, with retrieval
// context keyed on the failing diagnostic. A transport failure is
// reported as "no fix" so the loop terminates with the original error
// rather than silently continuing.
func (w *Workflow) requestRepair(ctx context.Context, code, proof, diag, kind string) (*agents.VerificationResult, bool) {
	ragContext := w.retrievalContext(ctx, "Lean 4 error debugging "+kind+" "+truncate(diag, 200), w.cfg.RepairChunks)

	fix, err := w.repairer.Process(ctx, agents.VerificationInput{
		Code:             code,
		Proof:            proof,
		ErrorOutput:      diag,
		ErrorKind:        kind,
		RetrievalContext: ragContext,
	})
	if err != nil {
		w.logger.Warn("Repair request failed", slog.String("error", err.Error()))
		return nil, false
	}
	return fix, true
}

// diagnostic extracts the most useful failure text from a compiler
// result. Lake writes some diagnostics to stdout, so the output stream
// is the fallback when stderr is empty.
func diagnostic(res *leanrunner.ExecutionResult) string {
	if res.Error != "" {
		return res.Error
	}
	if res.Output != "" {
		return res.Output
	}
	return "compiler reported failure with no diagnostic output"
}
