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

	"github.com/AleutianAI/ProofSmith/services/prover/leanrunner"
)

// Placeholder artifact returned when nothing better was recorded.
const (
	PlaceholderCode  = "-- No implementation generated"
	PlaceholderProof = leanrunner.PlaceholderProof

	// noImplMarker flags placeholder-ish implementations in scoring.
	noImplMarker = "-- No implementation"
)

// bestEffort selects the artifact of the highest-scoring recorded
// attempt: a real implementation is worth two points, a real proof one,
// and reaching proof-level verification one more. Ties keep the first
// attempt in chronological order. With no attempts at all, the fixed
// placeholder pair comes back, so callers always receive a well-formed
// artifact.
func bestEffort(attempts []Attempt) (code, proof string, stage Stage) {
	if len(attempts) == 0 {
		return PlaceholderCode, PlaceholderProof, ""
	}

	bestIdx := 0
	bestScore := -1
	for i, a := range attempts {
		score := 0
		if a.Code != "" && !strings.Contains(a.Code, noImplMarker) {
			score += 2
		}
		if a.Proof != "" && a.Proof != PlaceholderProof {
			score++
		}
		if a.Stage == StageProofVerification || a.Stage == StageVerificationTimeout {
			// Got past implementation checking.
			score++
		}
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	best := attempts[bestIdx]
	code = best.Code
	if code == "" {
		code = PlaceholderCode
	}
	proof = best.Proof
	if proof == "" {
		proof = PlaceholderProof
	}
	return code, proof, best.Stage
}
