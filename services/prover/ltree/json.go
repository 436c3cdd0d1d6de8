// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ltree

import (
	"cmp"
	"encoding/json"
	"fmt"
)

type jsonEdge[L comparable, V any] struct {
	Label L               `json:"label"`
	Tree  *jsonTree[L, V] `json:"tree"`
}

type jsonTree[L comparable, V any] struct {
	Value    V                `json:"value"`
	Children []jsonEdge[L, V] `json:"children,omitempty"`
}

func toJSONTree[L cmp.Ordered, V any](t *Tree[L, V]) *jsonTree[L, V] {
	out := &jsonTree[L, V]{Value: t.Value}
	edges := t.Edges()
	if len(edges) > 0 {
		out.Children = make([]jsonEdge[L, V], len(edges))
		for i, e := range edges {
			out.Children[i] = jsonEdge[L, V]{Label: e.Label, Tree: toJSONTree(e.Tree())}
		}
	}
	return out
}

func fromJSONTree[L cmp.Ordered, V any](in *jsonTree[L, V]) (*Tree[L, V], error) {
	children := make(map[L]*Tree[L, V], len(in.Children))
	for _, e := range in.Children {
		if _, dup := children[e.Label]; dup {
			return nil, fmt.Errorf("duplicate label %v", e.Label)
		}
		if e.Tree == nil {
			return nil, fmt.Errorf("child %v: missing tree", e.Label)
		}
		child, err := fromJSONTree(e.Tree)
		if err != nil {
			return nil, fmt.Errorf("child %v: %w", e.Label, err)
		}
		children[e.Label] = child
	}
	return New(in.Value, children), nil
}

// MarshalJSON encodes the tree as
//
//	{"value": V, "children": [{"label": L, "tree": {...}}, ...]}
//
// with children in ascending label order, so equal trees always encode to
// the same bytes. The tree is converted to a plain nested value first and
// encoded in one pass. Forces the whole tree.
func (t *Tree[L, V]) MarshalJSON() ([]byte, error) {
	return json.Marshal(toJSONTree(t))
}

// UnmarshalJSON decodes the format written by MarshalJSON into a fully built
// tree. The input is parsed once. Duplicate sibling labels are rejected.
func (t *Tree[L, V]) UnmarshalJSON(data []byte) error {
	var in jsonTree[L, V]
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	tree, err := fromJSONTree(&in)
	if err != nil {
		return err
	}
	*t = *tree
	return nil
}
