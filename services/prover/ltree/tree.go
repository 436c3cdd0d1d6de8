// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ltree implements labelled trees whose children are expanded on
// demand.
//
// A Tree holds a value and a set of child subtrees keyed by unique labels.
// Children are produced the first time they are inspected and memoised
// afterwards, so a Tree can describe a structure that is too large, or
// infinite, to materialise. Operations that only need part of a tree (Map,
// MapWithPath, Truncate, Child) stay lazy; operations that need every node
// (Fold, Annotate, Traverse, Equal, Size) force the whole tree and must only
// be used on finite trees.
//
// Sibling order is ascending label order. It carries no meaning beyond
// deterministic traversal and display.
package ltree

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Tree is a value with uniquely labelled children.
//
// Thread Safety: Safe for concurrent use. Expansion of children is guarded by
// sync.OnceValue, so concurrent readers force each subtree exactly once.
type Tree[L cmp.Ordered, V any] struct {
	// Value is the payload of this node.
	Value V

	// edges yields the children sorted by label. Nil for leaves.
	edges func() []Edge[L, V]
}

// Edge links a parent to the subtree stored under Label.
type Edge[L cmp.Ordered, V any] struct {
	Label L
	tree  func() *Tree[L, V]
}

// Tree returns the subtree behind the edge, computing it on first use.
func (e Edge[L, V]) Tree() *Tree[L, V] {
	return e.tree()
}

// Link returns an edge to an already built subtree.
func Link[L cmp.Ordered, V any](label L, t *Tree[L, V]) Edge[L, V] {
	return Edge[L, V]{Label: label, tree: func() *Tree[L, V] { return t }}
}

// Defer returns an edge whose subtree is computed by f on first access.
// The result is memoised.
func Defer[L cmp.Ordered, V any](label L, f func() *Tree[L, V]) Edge[L, V] {
	return Edge[L, V]{Label: label, tree: sync.OnceValue(f)}
}

// Leaf creates a node without children.
func Leaf[L cmp.Ordered, V any](v V) *Tree[L, V] {
	return &Tree[L, V]{Value: v}
}

// New creates a node with the given children. A nil or empty map creates a
// leaf.
func New[L cmp.Ordered, V any](v V, children map[L]*Tree[L, V]) *Tree[L, V] {
	if len(children) == 0 {
		return Leaf[L](v)
	}
	edges := make([]Edge[L, V], 0, len(children))
	for _, label := range slices.Sorted(maps.Keys(children)) {
		edges = append(edges, Link(label, children[label]))
	}
	return &Tree[L, V]{Value: v, edges: func() []Edge[L, V] { return edges }}
}

// FromEdges creates a node from a list of edges in any order.
//
// Panics if two edges share a label; labels are unique among siblings by
// construction everywhere in this module.
func FromEdges[L cmp.Ordered, V any](v V, edges []Edge[L, V]) *Tree[L, V] {
	if len(edges) == 0 {
		return Leaf[L](v)
	}
	sorted := sortEdges(edges)
	return &Tree[L, V]{Value: v, edges: func() []Edge[L, V] { return sorted }}
}

// Unfold creates a node whose edge list is computed by expand on first access.
// Each edge may itself be deferred (see Defer), which is how unbounded trees
// are described.
func Unfold[L cmp.Ordered, V any](v V, expand func() []Edge[L, V]) *Tree[L, V] {
	return &Tree[L, V]{
		Value: v,
		edges: sync.OnceValue(func() []Edge[L, V] {
			return sortEdges(expand())
		}),
	}
}

func sortEdges[L cmp.Ordered, V any](edges []Edge[L, V]) []Edge[L, V] {
	sorted := slices.Clone(edges)
	slices.SortFunc(sorted, func(a, b Edge[L, V]) int {
		return cmp.Compare(a.Label, b.Label)
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Label == sorted[i].Label {
			panic(fmt.Sprintf("ltree: duplicate label %v", sorted[i].Label))
		}
	}
	return sorted
}

// Edges returns the children in ascending label order.
//
// The returned slice is a copy; subtrees behind the edges are not forced.
func (t *Tree[L, V]) Edges() []Edge[L, V] {
	if t.edges == nil {
		return nil
	}
	return slices.Clone(t.edges())
}

// Labels returns the child labels in ascending order.
func (t *Tree[L, V]) Labels() []L {
	if t.edges == nil {
		return nil
	}
	edges := t.edges()
	labels := make([]L, len(edges))
	for i, e := range edges {
		labels[i] = e.Label
	}
	return labels
}

// Len returns the number of children.
func (t *Tree[L, V]) Len() int {
	if t.edges == nil {
		return 0
	}
	return len(t.edges())
}

// IsLeaf returns true if the node has no children.
func (t *Tree[L, V]) IsLeaf() bool {
	return t.Len() == 0
}

// Child returns the subtree stored under label.
func (t *Tree[L, V]) Child(label L) (*Tree[L, V], bool) {
	if t.edges == nil {
		return nil, false
	}
	edges := t.edges()
	i, found := slices.BinarySearchFunc(edges, label, func(e Edge[L, V], l L) int {
		return cmp.Compare(e.Label, l)
	})
	if !found {
		return nil, false
	}
	return edges[i].Tree(), true
}

// WithValue returns a node with the same children and a new value.
func (t *Tree[L, V]) WithValue(v V) *Tree[L, V] {
	return &Tree[L, V]{Value: v, edges: t.edges}
}

// WithChild returns a node equal to t except that the subtree under label is
// replaced (or added). Sibling edges are shared, not recomputed.
func (t *Tree[L, V]) WithChild(label L, child *Tree[L, V]) *Tree[L, V] {
	edges := t.Edges()
	replaced := false
	for i, e := range edges {
		if e.Label == label {
			edges[i] = Link(label, child)
			replaced = true
			break
		}
	}
	if !replaced {
		edges = append(edges, Link(label, child))
	}
	return FromEdges(t.Value, edges)
}

// Map applies f to every value. The structure is preserved and the result is
// computed lazily: f runs on a node when that node is first reached.
func Map[L cmp.Ordered, V, W any](t *Tree[L, V], f func(V) W) *Tree[L, W] {
	return Unfold(f(t.Value), func() []Edge[L, W] {
		src := t.Edges()
		out := make([]Edge[L, W], len(src))
		for i, e := range src {
			out[i] = Defer(e.Label, func() *Tree[L, W] { return Map(e.Tree(), f) })
		}
		return out
	})
}

// MapWithPath is Map where f also receives the labels leading from the root
// to the node. The path slice passed to f is owned by f.
func MapWithPath[L cmp.Ordered, V, W any](t *Tree[L, V], f func(path []L, v V) W) *Tree[L, W] {
	return mapWithPath(t, nil, f)
}

func mapWithPath[L cmp.Ordered, V, W any](t *Tree[L, V], path []L, f func([]L, V) W) *Tree[L, W] {
	return Unfold(f(slices.Clone(path), t.Value), func() []Edge[L, W] {
		src := t.Edges()
		out := make([]Edge[L, W], len(src))
		for i, e := range src {
			childPath := append(slices.Clip(path), e.Label)
			out[i] = Defer(e.Label, func() *Tree[L, W] { return mapWithPath(e.Tree(), childPath, f) })
		}
		return out
	})
}

// Truncate replaces every node at depth n (the root has depth 0) with
// cut(node). Nodes above depth n keep their values. The result is lazy, so
// Truncate is safe on unbounded trees.
func Truncate[L cmp.Ordered, V any](t *Tree[L, V], n int, cut func(*Tree[L, V]) *Tree[L, V]) *Tree[L, V] {
	if n <= 0 {
		return cut(t)
	}
	return Unfold(t.Value, func() []Edge[L, V] {
		src := t.Edges()
		out := make([]Edge[L, V], len(src))
		for i, e := range src {
			out[i] = Defer(e.Label, func() *Tree[L, V] { return Truncate(e.Tree(), n-1, cut) })
		}
		return out
	})
}

// Fold maps every value with f and combines the results with the associative
// operator combine, visiting nodes in pre-order. Forces the whole tree.
func Fold[L cmp.Ordered, V, R any](t *Tree[L, V], f func(V) R, combine func(R, R) R) R {
	acc := f(t.Value)
	for _, e := range t.Edges() {
		acc = combine(acc, Fold(e.Tree(), f, combine))
	}
	return acc
}

// Annotate computes a new value for every node bottom-up: the children are
// annotated first, in ascending label order, and their results are passed to
// f together with the node's own value. Forces the whole tree.
func Annotate[L cmp.Ordered, V, W any](t *Tree[L, V], f func(v V, children []W) W) *Tree[L, W] {
	src := t.Edges()
	if len(src) == 0 {
		return Leaf[L](f(t.Value, nil))
	}
	edges := make([]Edge[L, W], len(src))
	results := make([]W, len(src))
	for i, e := range src {
		child := Annotate(e.Tree(), f)
		edges[i] = Link(e.Label, child)
		results[i] = child.Value
	}
	return &Tree[L, W]{Value: f(t.Value, results), edges: func() []Edge[L, W] { return edges }}
}

// Traverse rebuilds the tree with f applied to every value in pre-order,
// left to right. The first error stops the traversal and is returned.
func Traverse[L cmp.Ordered, V, W any](t *Tree[L, V], f func(V) (W, error)) (*Tree[L, W], error) {
	v, err := f(t.Value)
	if err != nil {
		return nil, err
	}
	src := t.Edges()
	edges := make([]Edge[L, W], len(src))
	for i, e := range src {
		child, err := Traverse(e.Tree(), f)
		if err != nil {
			return nil, err
		}
		edges[i] = Link(e.Label, child)
	}
	return FromEdges(v, edges), nil
}

// Equal reports whether a and b have the same shape, the same labels and
// pairwise equal values. Forces both trees.
func Equal[L cmp.Ordered, V any](a, b *Tree[L, V], eq func(V, V) bool) bool {
	if !eq(a.Value, b.Value) {
		return false
	}
	ea, eb := a.Edges(), b.Edges()
	if len(ea) != len(eb) {
		return false
	}
	for i := range ea {
		if ea[i].Label != eb[i].Label {
			return false
		}
		if !Equal(ea[i].Tree(), eb[i].Tree(), eq) {
			return false
		}
	}
	return true
}

// Size returns the number of nodes. Forces the whole tree.
func Size[L cmp.Ordered, V any](t *Tree[L, V]) int {
	n := 1
	for _, e := range t.Edges() {
		n += Size(e.Tree())
	}
	return n
}

// Depth returns the length of the longest root-to-leaf path; a leaf has depth
// 0. Forces the whole tree.
func Depth[L cmp.Ordered, V any](t *Tree[L, V]) int {
	d := 0
	for _, e := range t.Edges() {
		d = max(d, Depth(e.Tree())+1)
	}
	return d
}
