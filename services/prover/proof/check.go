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

import (
	"sync"

	"github.com/AleutianAI/AleutianProver/services/prover/ltree"
)

// Sorry reasons produced by the replay engine.
const (
	ReasonInvalidStep   = "invalid proof step encountered"
	ReasonUnhandledCase = "unhandled case"
)

// Checked is the payload of a replayed node.
type Checked[I any] struct {
	// Original is the payload the node had before replay. Nil for nodes
	// synthesised for cases the original proof did not cover.
	Original *I `json:"original,omitempty"`

	// System is the system the node was replayed against. Nil for
	// placeholders that could not be replayed.
	System System `json:"system,omitempty"`
}

// Continuation synthesises a proof for a case the replayed proof does not
// cover. depth is the depth of the parent node.
type Continuation func(depth int, sys System) *Incremental

// CheckProof replays p against sys and repairs whatever no longer fits.
//
// Description:
//
//	Every node's method is re-executed against the system the replay
//	reached. CheckProof never fails; problems become placeholders:
//	  - Sorry nodes stay Sorry; their subtrees are kept as placeholders
//	    without being replayed.
//	  - A method the solver rejects becomes Sorry(ReasonInvalidStep) with a
//	    single unnamed child holding the whole original subtree as a
//	    placeholder.
//	  - Cases the solver produces that p does not cover are filled by cont.
//	  - Cases p covers that the solver no longer produces are kept as
//	    placeholders.
//	  - Cases present on both sides are replayed recursively at depth+1.
//
//	Placeholders keep their original payload and have a nil System.
//	Subtrees are replayed on first access.
//
// Inputs:
//   - s: The solver bound to the proof context.
//   - cont: Synthesises proofs for uncovered cases.
//   - depth: Depth of p within the enclosing proof.
//   - sys: The system p's root is replayed against.
//   - p: The proof to replay.
//
// Outputs:
//   - *Proof[Checked[I]]: The replayed proof.
func CheckProof[I any](s Solver, cont Continuation, depth int, sys System, p *Proof[I]) *Proof[Checked[I]] {
	step := p.Value
	info := step.Info
	node := func(m Method, edges []ltree.Edge[CaseName, Step[Checked[I]]]) *Proof[Checked[I]] {
		return ltree.FromEdges(Step[Checked[I]]{Method: m, Info: Checked[I]{Original: &info, System: sys}}, edges)
	}

	if step.Method.IsSorry() {
		edges := p.Edges()
		placeholders := make([]ltree.Edge[CaseName, Step[Checked[I]]], len(edges))
		for i, e := range edges {
			placeholders[i] = ltree.Defer(e.Label, func() *Proof[Checked[I]] {
				replayConversionsTotal.WithLabelValues(conversionSorry).Inc()
				return placeholder(e.Tree())
			})
		}
		return node(step.Method, placeholders)
	}

	replayStepsTotal.Inc()
	cases, ok := s.ExecStep(step.Method, sys)
	if !ok {
		replayConversionsTotal.WithLabelValues(conversionInvalid).Inc()
		return node(Sorry(ReasonInvalidStep), []ltree.Edge[CaseName, Step[Checked[I]]]{
			ltree.Defer("", func() *Proof[Checked[I]] { return placeholder(p) }),
		})
	}

	existing := make(map[CaseName]ltree.Edge[CaseName, Step[I]], p.Len())
	for _, e := range p.Edges() {
		existing[e.Label] = e
	}

	type thunk = func() *Proof[Checked[I]]
	merged := ltree.MergeWith(cases, existing,
		func(sub System) thunk {
			return func() *Proof[Checked[I]] {
				replayConversionsTotal.WithLabelValues(conversionUnhandled).Inc()
				return MapInfo(cont(depth, sub), func(s System) Checked[I] {
					return Checked[I]{System: s}
				})
			}
		},
		func(e ltree.Edge[CaseName, Step[I]]) thunk {
			return func() *Proof[Checked[I]] {
				replayConversionsTotal.WithLabelValues(conversionStale).Inc()
				return placeholder(e.Tree())
			}
		},
		func(sub System, e ltree.Edge[CaseName, Step[I]]) thunk {
			return func() *Proof[Checked[I]] {
				return CheckProof(s, cont, depth+1, sub, e.Tree())
			}
		},
	)

	edges := make([]ltree.Edge[CaseName, Step[Checked[I]]], 0, len(merged))
	for name, f := range merged {
		edges = append(edges, ltree.Defer(name, f))
	}
	return node(step.Method, edges)
}

// placeholder keeps the payloads of p but marks every system unknown.
func placeholder[I any](p *Proof[I]) *Proof[Checked[I]] {
	return MapInfo(p, func(info I) Checked[I] {
		return Checked[I]{Original: &info}
	})
}

// AnnotateWithSystems attaches to every node the system it operates on by
// re-executing each method from sys0 downwards.
//
// Description:
//
//	The proof must already be known to be valid against sys0 (for example
//	the output of CheckProof without placeholders, or of a search). A method
//	the solver rejects or a case it does not produce is an internal error
//	and panics with ErrInvariant.
//
//	A node's method is re-executed only when one of its children is first
//	visited, so this is safe on unbounded proofs.
//
// Inputs:
//   - s: The solver bound to the proof context.
//   - sys0: The system at the root.
//   - p: A valid proof.
//
// Outputs:
//   - *Incremental: p with every payload replaced by its system.
func AnnotateWithSystems[I any](s Solver, sys0 System, p *Proof[I]) *Incremental {
	method := p.Value.Method
	cases := sync.OnceValue(func() map[CaseName]System {
		cs, ok := s.ExecStep(method, sys0)
		if !ok {
			panic(invariantf("annotate with systems: step %s failed", method))
		}
		return cs
	})
	return ltree.Unfold(Step[System]{Method: method, Info: sys0}, func() []ltree.Edge[CaseName, Step[System]] {
		src := p.Edges()
		out := make([]ltree.Edge[CaseName, Step[System]], len(src))
		for i, e := range src {
			out[i] = ltree.Defer(e.Label, func() *Incremental {
				next, ok := cases()[e.Label]
				if !ok {
					panic(invariantf("annotate with systems: case %q not produced by %s", e.Label, method))
				}
				return AnnotateWithSystems(s, next, e.Tree())
			})
		}
		return out
	})
}
