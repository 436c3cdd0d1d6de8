// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package proof

// Solver executes proof methods against systems. It is bound to the proof
// context (theory, property, options) it was created for.
//
// Implementations must be pure: the same method on the same system always
// yields the same cases. Proof trees memoise their nodes and may evaluate
// them concurrently.
type Solver interface {
	// ExecStep applies one method to sys. It returns the resulting systems
	// keyed by case name, or false if the method does not apply.
	ExecStep(m Method, sys System) (map[CaseName]System, bool)

	// ContradictionSources lists the contradictions the solver can derive
	// for sys, in the order they should be tried.
	ContradictionSources(sys System) []string
}

// Candidate is a method a Heuristic considers applicable to a system,
// together with the cases executing it produces.
type Candidate struct {
	Method      Method
	Cases       map[CaseName]System
	Explanation string
}

// Heuristic ranks the methods applicable to a system, best first. Like
// Solver it must be pure.
type Heuristic interface {
	// Name identifies the heuristic in persisted configurations.
	Name() string

	// Rank returns the applicable candidates for sys, best first. An empty
	// result means sys is fully reduced. depth is the depth of the node
	// being expanded.
	Rank(s Solver, depth int, sys System) []Candidate
}

// HeuristicFunc adapts a named ranking function to Heuristic.
type HeuristicFunc struct {
	ID string
	Fn func(s Solver, depth int, sys System) []Candidate
}

// Name implements Heuristic.
func (h HeuristicFunc) Name() string { return h.ID }

// Rank implements Heuristic.
func (h HeuristicFunc) Rank(s Solver, depth int, sys System) []Candidate {
	return h.Fn(s, depth, sys)
}
