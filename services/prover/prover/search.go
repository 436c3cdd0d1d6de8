// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prover

import (
	"github.com/AleutianAI/AleutianProver/services/prover/ltree"
	"github.com/AleutianAI/AleutianProver/services/prover/proof"
)

// Search generates a proof for sys by always applying the best ranked
// method.
//
// Description:
//
//	At every node the heuristic ranks the applicable methods. A system with
//	no applicable method is fully reduced and becomes a Solved leaf.
//	Otherwise the top ranked candidate is applied and each case it produces
//	is searched one level deeper.
//
//	The search does not necessarily terminate. The result is lazy: a node is
//	ranked when it is first reached and nothing below what the caller
//	inspects is computed. depth is passed through to the heuristic and takes
//	no part in any decision made here.
//
// Inputs:
//   - h: Ranks candidate methods.
//   - s: The solver bound to the proof context.
//   - depth: Depth of the root within the enclosing proof.
//   - sys: The system to search from.
//
// Outputs:
//   - *proof.Proof[struct{}]: The generated proof, without payloads.
func Search(h proof.Heuristic, s proof.Solver, depth int, sys proof.System) *proof.Proof[struct{}] {
	searchNodesTotal.Inc()
	ranked := h.Rank(s, depth, sys)
	if len(ranked) == 0 {
		return ltree.Leaf[proof.CaseName](proof.Step[struct{}]{Method: proof.Solved()})
	}

	best := ranked[0]
	edges := make([]ltree.Edge[proof.CaseName, proof.Step[struct{}]], 0, len(best.Cases))
	for name, sub := range best.Cases {
		edges = append(edges, ltree.Defer(name, func() *proof.Proof[struct{}] {
			return Search(h, s, depth+1, sub)
		}))
	}
	return ltree.FromEdges(proof.Step[struct{}]{Method: best.Method}, edges)
}

// SearchProver discards the incoming proof and replaces it with the result
// of Search annotated with the system of every node.
func SearchProver(h proof.Heuristic) Prover {
	return func(s proof.Solver, depth int, sys proof.System, _ *proof.Incremental) (*proof.Incremental, bool) {
		return proof.AnnotateWithSystems(s, sys, Search(h, s, depth, sys)), true
	}
}
