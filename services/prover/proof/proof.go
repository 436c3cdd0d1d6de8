// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package proof defines proof trees and the engine that replays, repairs and
// summarises them.
//
// A proof is a labelled tree: every node holds a Step (a Method plus a
// payload) and every edge is named by the case it covers. Proofs are
// immutable; every operation returns a new tree sharing untouched subtrees.
//
// The constraint solver that executes methods against systems is external
// and reached through the Solver interface.
package proof

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/AleutianProver/services/prover/ltree"
)

// ErrInvariant marks violations of internal invariants. It is only ever
// raised through panics, for states that cannot occur when the package is
// used as documented.
var ErrInvariant = errors.New("proof invariant violated")

func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}

// CaseName labels the case produced by a case split. The empty name is the
// single unnamed subcase.
type CaseName = string

// Path addresses a node by the case names leading to it from the root.
type Path []CaseName

// System is an opaque constraint system owned by the solver. A nil System
// means "unknown".
type System = any

// Step is the content of a proof node.
type Step[I any] struct {
	Method Method `json:"method"`
	Info   I      `json:"info"`
}

// Proof is a proof tree whose nodes carry payloads of type I.
type Proof[I any] = ltree.Tree[CaseName, Step[I]]

// Incremental is a proof annotated with the system each node was checked
// against, or nil where that system is unknown.
type Incremental = Proof[System]

// Located pairs a payload with the path of the node carrying it.
type Located[I any] struct {
	Info I    `json:"info"`
	Path Path `json:"path"`
}

// NewSorry returns a one-node Sorry proof.
func NewSorry[I any](reason string, info I) *Proof[I] {
	return ltree.Leaf[CaseName](Step[I]{Method: Sorry(reason), Info: info})
}

// Unproven returns a one-node Sorry proof without a reason.
func Unproven[I any](info I) *Proof[I] {
	return NewSorry("", info)
}

// AtPath follows path from the root one child lookup at a time. Returns false
// if any label along the path is absent.
func AtPath[I any](p *Proof[I], path Path) (*Proof[I], bool) {
	node := p
	for _, name := range path {
		child, ok := node.Child(name)
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

// ModifyAtPath replaces the subtree at path with f(subtree). Ancestors on the
// path are rebuilt and siblings are shared. Returns false if the path does
// not resolve or f fails.
func ModifyAtPath[I any](p *Proof[I], path Path, f func(*Proof[I]) (*Proof[I], bool)) (*Proof[I], bool) {
	if len(path) == 0 {
		return f(p)
	}
	child, ok := p.Child(path[0])
	if !ok {
		return nil, false
	}
	modified, ok := ModifyAtPath(child, path[1:], f)
	if !ok {
		return nil, false
	}
	return p.WithChild(path[0], modified), true
}

// MapInfo applies f to the payload of every step. Lazy.
func MapInfo[I, J any](p *Proof[I], f func(I) J) *Proof[J] {
	return ltree.Map(p, func(s Step[I]) Step[J] {
		return Step[J]{Method: s.Method, Info: f(s.Info)}
	})
}

// InsertPaths pairs every payload with the path of its node. Lazy.
func InsertPaths[I any](p *Proof[I]) *Proof[Located[I]] {
	return ltree.MapWithPath(p, func(path []CaseName, s Step[I]) Step[Located[I]] {
		return Step[Located[I]]{Method: s.Method, Info: Located[I]{Info: s.Info, Path: path}}
	})
}

// FoldProof combines f over every step with the associative operator
// combine. Forces the whole proof.
func FoldProof[I, R any](p *Proof[I], f func(Step[I]) R, combine func(R, R) R) R {
	return ltree.Fold(p, f, combine)
}

// AnnotateProof replaces every payload bottom-up: children are annotated
// first in ascending case order and their new payloads are passed to f with
// the parent step. Forces the whole proof.
func AnnotateProof[I, R any](p *Proof[I], f func(step Step[I], children []R) R) *Proof[R] {
	return ltree.Annotate(p, func(s Step[I], children []Step[R]) Step[R] {
		infos := make([]R, len(children))
		for i, c := range children {
			infos[i] = c.Info
		}
		return Step[R]{Method: s.Method, Info: f(s, infos)}
	})
}

// Skeleton drops every payload, keeping methods and case names. Skeletons
// are what gets persisted; CheckProof re-derives the systems on reload.
func Skeleton[I any](p *Proof[I]) *Incremental {
	return MapInfo(p, func(I) System { return nil })
}
