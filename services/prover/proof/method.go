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

import "fmt"

// MethodKind identifies a proof method.
//
// Only KindSorry, KindSolved and KindContradiction are interpreted by this
// package. Every other kind is an instruction owned by the constraint solver.
type MethodKind string

const (
	KindSorry         MethodKind = "sorry"
	KindSolved        MethodKind = "solved"
	KindContradiction MethodKind = "contradiction"
)

// String returns the string representation of the kind.
func (k MethodKind) String() string {
	return string(k)
}

// IsBuiltin returns true for the kinds interpreted by this package.
func (k MethodKind) IsBuiltin() bool {
	return k == KindSorry || k == KindSolved || k == KindContradiction
}

// Method is a single proof step instruction.
type Method struct {
	Kind MethodKind `json:"kind" yaml:"kind"`

	// Reason explains a Sorry. Empty means no reason was given.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Source names the contradiction found. Empty means unspecified.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Arg is the payload of a solver-defined method.
	Arg string `json:"arg,omitempty" yaml:"arg,omitempty"`
}

// Sorry returns an unproven placeholder step.
func Sorry(reason string) Method {
	return Method{Kind: KindSorry, Reason: reason}
}

// Solved returns the terminal step of a fully reduced system.
func Solved() Method {
	return Method{Kind: KindSolved}
}

// Contradiction returns a step closing a system by contradiction.
func Contradiction(source string) Method {
	return Method{Kind: KindContradiction, Source: source}
}

// Custom returns a solver-defined case split instruction.
func Custom(kind MethodKind, arg string) Method {
	return Method{Kind: kind, Arg: arg}
}

// IsSorry returns true if the method is a Sorry.
func (m Method) IsSorry() bool {
	return m.Kind == KindSorry
}

// IsSolved returns true if the method is Solved.
func (m Method) IsSolved() bool {
	return m.Kind == KindSolved
}

// IsContradiction returns true if the method is a Contradiction.
func (m Method) IsContradiction() bool {
	return m.Kind == KindContradiction
}

// String renders the method the way proof scripts show it.
func (m Method) String() string {
	switch m.Kind {
	case KindSorry:
		if m.Reason == "" {
			return "sorry"
		}
		return fmt.Sprintf("sorry /* %s */", m.Reason)
	case KindSolved:
		return "SOLVED // trace found"
	case KindContradiction:
		if m.Source == "" {
			return "contradiction"
		}
		return fmt.Sprintf("contradiction /* %s */", m.Source)
	default:
		if m.Arg == "" {
			return string(m.Kind)
		}
		return fmt.Sprintf("%s( %s )", m.Kind, m.Arg)
	}
}
