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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/AleutianProver/services/prover/ltree"
)

func TestRender(t *testing.T) {
	t.Run("nested cases", func(t *testing.T) {
		want := "" +
			"split\n" +
			"  case a\n" +
			"  by contradiction /* cyclic */\n" +
			"next\n" +
			"  case b\n" +
			"  split\n" +
			"  SOLVED // trace found\n" +
			"qed\n"
		if diff := cmp.Diff(want, Render(fixture(), nil, nil)); diff != "" {
			t.Errorf("Render mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("leaf", func(t *testing.T) {
		assert.Equal(t, "by sorry /* later */\n", Render(NewSorry("later", 0), nil, nil))
		assert.Equal(t, "SOLVED // trace found\n", Render(ltree.Leaf[CaseName](step(Solved(), 0)), nil, nil))
	})

	t.Run("custom step renderer", func(t *testing.T) {
		got := Render(fixture(), func(s Step[string]) string { return s.Info }, nil)
		want := "n0\n  case a\n  by n1\nnext\n  case b\n  n2\n  n3\nqed\n"
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Render mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("custom case header", func(t *testing.T) {
		var parents []string
		got := Render(fixture(), nil, func(parent Step[string], name CaseName) string {
			parents = append(parents, parent.Info)
			return "case " + strings.ToUpper(name) + ":"
		})
		want := "" +
			"split\n" +
			"  case A:\n" +
			"  by contradiction /* cyclic */\n" +
			"next\n" +
			"  case B:\n" +
			"  split\n" +
			"  SOLVED // trace found\n" +
			"qed\n"
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Render mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, []string{"n0", "n0"}, parents)
	})
}
