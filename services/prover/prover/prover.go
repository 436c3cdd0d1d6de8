// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package prover builds and extends proofs: a small algebra of composable
// provers, an unbounded heuristic search, the automatic driver that
// assembles them and the cut strategies that extract a single witness from
// a generated proof.
package prover

import (
	"github.com/AleutianAI/AleutianProver/services/prover/ltree"
	"github.com/AleutianAI/AleutianProver/services/prover/proof"
)

// Prover transforms a proof.
//
// It receives the solver bound to the proof context, the depth of the
// proof within the enclosing proof, the system at the proof's root and the
// proof itself. It returns the new proof, or false if it does not apply.
//
// Provers are plain values. Build them with the combinators in this file
// and run them by calling them.
type Prover func(s proof.Solver, depth int, sys proof.System, p *proof.Incremental) (*proof.Incremental, bool)

// Identity returns its input proof unchanged. It is the identity of Then.
func Identity() Prover {
	return func(_ proof.Solver, _ int, _ proof.System, p *proof.Incremental) (*proof.Incremental, bool) {
		return p, true
	}
}

// Fail never applies. It is the identity of OrElse.
func Fail() Prover {
	return func(proof.Solver, int, proof.System, *proof.Incremental) (*proof.Incremental, bool) {
		return nil, false
	}
}

// Then runs first and, if it applies, runs second on its output with the
// same solver, depth and system.
func Then(first, second Prover) Prover {
	return func(s proof.Solver, depth int, sys proof.System, p *proof.Incremental) (*proof.Incremental, bool) {
		out, ok := first(s, depth, sys, p)
		if !ok {
			return nil, false
		}
		return second(s, depth, sys, out)
	}
}

// Sequence chains provers with Then. An empty sequence is Identity.
func Sequence(provers ...Prover) Prover {
	acc := Identity()
	for i := len(provers) - 1; i >= 0; i-- {
		acc = Then(provers[i], acc)
	}
	return acc
}

// OrElse runs first and falls back to second on the same inputs if first
// does not apply.
func OrElse(first, second Prover) Prover {
	return func(s proof.Solver, depth int, sys proof.System, p *proof.Incremental) (*proof.Incremental, bool) {
		if out, ok := first(s, depth, sys, p); ok {
			return out, true
		}
		return second(s, depth, sys, p)
	}
}

// Try runs p and keeps the input proof if p does not apply.
func Try(p Prover) Prover {
	return OrElse(p, Identity())
}

// FirstOf returns the result of the first prover that applies. An empty
// list is Fail.
func FirstOf(provers ...Prover) Prover {
	acc := Fail()
	for i := len(provers) - 1; i >= 0; i-- {
		acc = OrElse(provers[i], acc)
	}
	return acc
}

// MapProof post-processes the output of p.
func MapProof(p Prover, f func(*proof.Incremental) *proof.Incremental) Prover {
	return func(s proof.Solver, depth int, sys proof.System, in *proof.Incremental) (*proof.Incremental, bool) {
		out, ok := p(s, depth, sys, in)
		if !ok {
			return nil, false
		}
		return f(out), true
	}
}

// OneStep applies m once to the system. The result is a single node whose
// cases are unproven leaves over the systems m produced.
func OneStep(m proof.Method) Prover {
	return func(s proof.Solver, _ int, sys proof.System, _ *proof.Incremental) (*proof.Incremental, bool) {
		cases, ok := s.ExecStep(m, sys)
		if !ok {
			return nil, false
		}
		children := make(map[proof.CaseName]*proof.Incremental, len(cases))
		for name, sub := range cases {
			children[name] = proof.Unproven(sub)
		}
		return ltree.New(proof.Step[proof.System]{Method: m, Info: sys}, children), true
	}
}

// SorryProver replaces the proof with a single Sorry(reason) leaf.
func SorryProver(reason string) Prover {
	return func(_ proof.Solver, _ int, sys proof.System, _ *proof.Incremental) (*proof.Incremental, bool) {
		return proof.NewSorry(reason, sys), true
	}
}

// Contradiction closes the system with the first contradiction the solver
// accepts, trying its sources in order.
func Contradiction() Prover {
	return func(s proof.Solver, depth int, sys proof.System, p *proof.Incremental) (*proof.Incremental, bool) {
		sources := s.ContradictionSources(sys)
		provers := make([]Prover, len(sources))
		for i, src := range sources {
			provers[i] = OneStep(proof.Contradiction(src))
		}
		return FirstOf(provers...)(s, depth, sys, p)
	}
}

// Focus runs p on the subtree at path. The subtree's root must carry a
// known system, which becomes p's system; p runs at depth+len(path).
// Focus does not apply if the path does not resolve.
func Focus(path proof.Path, p Prover) Prover {
	if len(path) == 0 {
		return p
	}
	return func(s proof.Solver, depth int, _ proof.System, in *proof.Incremental) (*proof.Incremental, bool) {
		return proof.ModifyAtPath(in, path, func(sub *proof.Incremental) (*proof.Incremental, bool) {
			sys := sub.Value.Info
			if sys == nil {
				return nil, false
			}
			return p(s, depth+len(path), sys, sub)
		})
	}
}

// CheckAndExtend replays the proof with proof.CheckProof and lets p fill
// the cases the proof does not cover. Where p does not apply the case is
// left as Sorry("unhandled case"). Always applies.
func CheckAndExtend(p Prover) Prover {
	return func(s proof.Solver, depth int, sys proof.System, in *proof.Incremental) (*proof.Incremental, bool) {
		cont := func(d int, sub proof.System) *proof.Incremental {
			unhandled := proof.NewSorry(proof.ReasonUnhandledCase, sub)
			if out, ok := p(s, d, sub, unhandled); ok {
				return out
			}
			return unhandled
		}
		checked := proof.CheckProof(s, cont, depth, sys, in)
		return proof.MapInfo(checked, func(c proof.Checked[proof.System]) proof.System {
			return c.System
		}), true
	}
}

// ReplaceSorry runs p at every Sorry node that carries a known system and
// splices in its result where it applies. Other nodes are kept and walked
// into. Always applies; the result is computed lazily.
func ReplaceSorry(p Prover) Prover {
	return func(s proof.Solver, depth int, _ proof.System, in *proof.Incremental) (*proof.Incremental, bool) {
		var replace func(*proof.Incremental) *proof.Incremental
		replace = func(node *proof.Incremental) *proof.Incremental {
			step := node.Value
			if step.Method.IsSorry() && step.Info != nil {
				if out, ok := p(s, depth, step.Info, node); ok {
					return out
				}
				return node
			}
			return ltree.Unfold(step, func() []ltree.Edge[proof.CaseName, proof.Step[proof.System]] {
				src := node.Edges()
				edges := make([]ltree.Edge[proof.CaseName, proof.Step[proof.System]], len(src))
				for i, e := range src {
					edges[i] = ltree.Defer(e.Label, func() *proof.Incremental { return replace(e.Tree()) })
				}
				return edges
			})
		}
		return replace(in), true
	}
}
