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

import "strings"

// Render prints p as nested cases. step renders a single node; a nil step
// uses the node's method. caseHeader renders the header of the case name
// below parent; a nil caseHeader prints "case <name>".
//
// Layout:
//
//	simplify
//	solve( x )
//	  case a
//	  by contradiction /* cyclic */
//	next
//	  case b
//	  SOLVED // trace found
//	qed
//
// A node with a single unnamed case is followed directly by its child. Leaves
// are prefixed with "by" except for Solved leaves, which close the branch on
// their own. Forces the whole proof.
func Render[I any](p *Proof[I], step func(Step[I]) string, caseHeader func(parent Step[I], name CaseName) string) string {
	if step == nil {
		step = func(s Step[I]) string { return s.Method.String() }
	}
	if caseHeader == nil {
		caseHeader = func(_ Step[I], name CaseName) string { return "case " + name }
	}
	r := renderer[I]{step: step, caseHeader: caseHeader}
	r.render(p, 0)
	return r.b.String()
}

type renderer[I any] struct {
	b          strings.Builder
	step       func(Step[I]) string
	caseHeader func(Step[I], CaseName) string
}

func (r *renderer[I]) render(p *Proof[I], indent int) {
	b, step := &r.b, r.step
	line := func(indent int, text string) {
		b.WriteString(strings.Repeat(" ", indent))
		b.WriteString(text)
		b.WriteByte('\n')
	}

	edges := p.Edges()
	switch {
	case len(edges) == 0 && p.Value.Method.IsSolved():
		line(indent, step(p.Value))
	case len(edges) == 0:
		line(indent, "by "+step(p.Value))
	case len(edges) == 1 && edges[0].Label == "":
		line(indent, step(p.Value))
		r.render(edges[0].Tree(), indent)
	default:
		line(indent, step(p.Value))
		for i, e := range edges {
			if i > 0 {
				line(indent, "next")
			}
			line(indent+2, r.caseHeader(p.Value, e.Label))
			r.render(e.Tree(), indent+2)
		}
		line(indent, "qed")
	}
}
