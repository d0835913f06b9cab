// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rag

// Default corpus covering core Lean 4 tactics, definitions, and proof
// patterns. Materialized to the documents directory on first run so the
// index is never empty, then ingested like any user-provided file.

type defaultDocument struct {
	filename string
	content  string
}

var defaultDocuments = []defaultDocument{
	{
		filename: "default_tactics.txt",
		content: `Lean 4 Basic Tactics:
- rfl: reflexivity, proves a = a
- simp: simplification using simp lemmas
- norm_num: normalize numerical expressions
- ring: prove ring equations
- omega: arithmetic over natural numbers and integers
- sorry: placeholder (should not be used in final proofs)

Example:
theorem add_comm (a b : Nat) : a + b = b + a := by
  ring
`,
	},
	{
		filename: "default_functions.txt",
		content: `Lean 4 Function Definitions:
- Use def for definitions
- Specify types explicitly
- Use pattern matching with match

Example:
def factorial (n : Nat) : Nat :=
  match n with
  | 0 => 1
  | n + 1 => (n + 1) * factorial n

def max (a b : Int) : Int :=
  if a >= b then a else b
`,
	},
	{
		filename: "default_proofs.txt",
		content: `Lean 4 Proof Tactics:
- intro: introduce hypotheses
- apply: apply a theorem
- exact: provide exact proof term
- rw: rewrite using equation
- split: case analysis
- contradiction: prove false from contradictory hypotheses
- unfold: unfold definitions

Example:
theorem modus_ponens (P Q : Prop) (hpq : P -> Q) (hp : P) : Q := by
  apply hpq
  exact hp
`,
	},
}
