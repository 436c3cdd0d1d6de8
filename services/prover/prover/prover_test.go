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
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianProver/services/prover/ltree"
	"github.com/AleutianAI/AleutianProver/services/prover/proof"
)

// tag replaces the proof with a leaf whose sorry reason records the name,
// the depth and the reason of the incoming root.
func tag(name string) Prover {
	return func(_ proof.Solver, depth int, sys proof.System, p *proof.Incremental) (*proof.Incremental, bool) {
		prev := ""
		if p != nil {
			prev = p.Value.Method.Reason
		}
		return proof.NewSorry(prev+name, sys), true
	}
}

func TestCombinators(t *testing.T) {
	w := tableWorld()
	in := proof.NewSorry[proof.System]("", "root")
	run := func(p Prover) (*proof.Incremental, bool) { return p(w, 0, "root", in) }

	t.Run("identity", func(t *testing.T) {
		out, ok := run(Identity())
		require.True(t, ok)
		assert.Same(t, in, out)
	})

	t.Run("fail", func(t *testing.T) {
		_, ok := run(Fail())
		assert.False(t, ok)
	})

	t.Run("then chains outputs", func(t *testing.T) {
		out, ok := run(Then(tag("a"), tag("b")))
		require.True(t, ok)
		assert.Equal(t, "ab", out.Value.Method.Reason)

		_, ok = run(Then(Fail(), tag("b")))
		assert.False(t, ok)
		_, ok = run(Then(tag("a"), Fail()))
		assert.False(t, ok)
	})

	t.Run("sequence", func(t *testing.T) {
		out, ok := run(Sequence(tag("a"), tag("b"), tag("c")))
		require.True(t, ok)
		assert.Equal(t, "abc", out.Value.Method.Reason)

		out, ok = run(Sequence())
		require.True(t, ok)
		assert.Same(t, in, out)

		left, _ := run(Then(Then(tag("a"), tag("b")), tag("c")))
		right, _ := run(Then(tag("a"), Then(tag("b"), tag("c"))))
		assert.True(t, sameSteps(left, right))
	})

	t.Run("or else does not chain", func(t *testing.T) {
		out, ok := run(OrElse(Fail(), tag("b")))
		require.True(t, ok)
		assert.Equal(t, "b", out.Value.Method.Reason)

		out, ok = run(OrElse(tag("a"), tag("b")))
		require.True(t, ok)
		assert.Equal(t, "a", out.Value.Method.Reason)
	})

	t.Run("try", func(t *testing.T) {
		out, ok := run(Try(Fail()))
		require.True(t, ok)
		assert.Same(t, in, out)
	})

	t.Run("first of", func(t *testing.T) {
		out, ok := run(FirstOf(Fail(), tag("b"), tag("c")))
		require.True(t, ok)
		assert.Equal(t, "b", out.Value.Method.Reason)

		_, ok = run(FirstOf())
		assert.False(t, ok)
	})

	t.Run("map proof", func(t *testing.T) {
		out, ok := run(MapProof(tag("a"), func(p *proof.Incremental) *proof.Incremental {
			return p.WithValue(proof.Step[proof.System]{Method: proof.Solved(), Info: p.Value.Info})
		}))
		require.True(t, ok)
		assert.True(t, out.Value.Method.IsSolved())

		_, ok = run(MapProof(Fail(), func(p *proof.Incremental) *proof.Incremental { return p }))
		assert.False(t, ok)
	})
}

func TestOneStep(t *testing.T) {
	w := tableWorld()

	out, ok := OneStep(split)(w, 0, "root", nil)
	require.True(t, ok)
	assert.Equal(t, split, out.Value.Method)
	assert.Equal(t, "root", out.Value.Info)
	assert.Equal(t, []proof.CaseName{"a", "b"}, out.Labels())

	b, _ := out.Child("b")
	assert.True(t, b.IsLeaf())
	assert.Equal(t, proof.Sorry(""), b.Value.Method)
	assert.Equal(t, "mid", b.Value.Info)

	_, ok = OneStep(split)(w, 0, "open", nil)
	assert.False(t, ok)
}

func TestSorryProver(t *testing.T) {
	out, ok := SorryProver("later")(tableWorld(), 0, "root", generate(tableWorld(), "root"))
	require.True(t, ok)
	assert.True(t, out.IsLeaf())
	assert.Equal(t, proof.Sorry("later"), out.Value.Method)
	assert.Equal(t, "root", out.Value.Info)
}

func TestContradiction(t *testing.T) {
	w := tableWorld()

	out, ok := Contradiction()(w, 0, "dead", nil)
	require.True(t, ok)
	assert.Equal(t, proof.Contradiction("cyclic"), out.Value.Method, "bogus is reported first but rejected")
	assert.True(t, out.IsLeaf())

	_, ok = Contradiction()(w, 0, "root", nil)
	assert.False(t, ok)
}

func TestFocus(t *testing.T) {
	w := tableWorld()
	in := generate(w, "root")

	var gotDepth int
	var gotSys proof.System
	probe := func(_ proof.Solver, depth int, sys proof.System, p *proof.Incremental) (*proof.Incremental, bool) {
		gotDepth, gotSys = depth, sys
		return proof.NewSorry("focused", sys), true
	}

	t.Run("runs at the subtree", func(t *testing.T) {
		out, ok := Focus(proof.Path{"b", ""}, probe)(w, 3, "root", in)
		require.True(t, ok)
		assert.Equal(t, 5, gotDepth)
		assert.Equal(t, "open", gotSys)

		leaf, _ := proof.AtPath(out, proof.Path{"b", ""})
		assert.Equal(t, proof.Sorry("focused"), leaf.Value.Method)

		a, _ := out.Child("a")
		before, _ := in.Child("a")
		assert.Same(t, before, a)
	})

	t.Run("empty path", func(t *testing.T) {
		out, ok := Focus(nil, probe)(w, 3, "root", in)
		require.True(t, ok)
		assert.Equal(t, 3, gotDepth)
		assert.True(t, out.IsLeaf())
	})

	t.Run("unresolved path", func(t *testing.T) {
		_, ok := Focus(proof.Path{"z"}, probe)(w, 0, "root", in)
		assert.False(t, ok)
	})

	t.Run("unknown system", func(t *testing.T) {
		_, ok := Focus(proof.Path{"a"}, probe)(w, 0, "root", proof.Skeleton(in))
		assert.False(t, ok)
	})
}

func TestCheckAndExtend(t *testing.T) {
	w := tableWorld()
	skeleton := proof.Skeleton(generate(w, "root"))

	t.Run("restores systems", func(t *testing.T) {
		out, ok := CheckAndExtend(Fail())(w, 0, "root", skeleton)
		require.True(t, ok)
		assert.Equal(t, render(generate(w, "root")), render(out))
	})

	extended := tableWorld()
	extended.splits = func(sys string) (map[proof.CaseName]proof.System, bool) {
		switch sys {
		case "root":
			return map[proof.CaseName]proof.System{"a": "dead", "b": "mid", "c": "extra"}, true
		case "mid":
			return map[proof.CaseName]proof.System{"": "open"}, true
		}
		return nil, false
	}

	t.Run("unhandled case defaults to sorry", func(t *testing.T) {
		out, ok := CheckAndExtend(Fail())(extended, 0, "root", skeleton)
		require.True(t, ok)
		c, ok := out.Child("c")
		require.True(t, ok)
		assert.Equal(t, proof.Sorry(proof.ReasonUnhandledCase), c.Value.Method)
		assert.Equal(t, "extra", c.Value.Info)
		assert.Equal(t, proof.StatusTraceFound, proof.IncrementalStatus(out))
	})

	t.Run("unhandled case is extended", func(t *testing.T) {
		out, ok := CheckAndExtend(SearchProver(extended.heuristic()))(extended, 0, "root", skeleton)
		require.True(t, ok)
		c, _ := out.Child("c")
		assert.True(t, c.Value.Method.IsSolved())
		assert.Equal(t, "extra", c.Value.Info)
	})

	t.Run("invalid steps become sorry", func(t *testing.T) {
		out, ok := CheckAndExtend(Fail())(w, 0, "open", skeleton)
		require.True(t, ok)
		assert.Equal(t, proof.Sorry(proof.ReasonInvalidStep), out.Value.Method)
		assert.Equal(t, proof.StatusIncomplete, proof.IncrementalStatus(out))
	})
}

func TestReplaceSorry(t *testing.T) {
	w := tableWorld()

	t.Run("no resolved sorry is a no-op", func(t *testing.T) {
		in := node(split, "root", map[proof.CaseName]*proof.Incremental{
			"a": leaf(proof.Sorry("x"), nil),
			"b": leaf(proof.Contradiction(""), "mid"),
		})
		out, ok := ReplaceSorry(SorryProver("r"))(w, 0, "root", in)
		require.True(t, ok)
		assert.True(t, sameSteps(in, out))
	})

	t.Run("replaces resolved sorry", func(t *testing.T) {
		in := proof.Skeleton(generate(w, "root"))
		in, _ = CheckAndExtend(Fail())(w, 0, "root", in)
		in, _ = proof.ModifyAtPath(in, proof.Path{"a"}, func(p *proof.Incremental) (*proof.Incremental, bool) {
			return proof.NewSorry("todo", p.Value.Info), true
		})

		out, ok := ReplaceSorry(Contradiction())(w, 0, "root", in)
		require.True(t, ok)
		a, _ := out.Child("a")
		assert.Equal(t, proof.Contradiction("cyclic"), a.Value.Method)
		assert.Equal(t, proof.StatusTraceFound, proof.IncrementalStatus(out))
	})

	t.Run("keeps sorry where the prover fails", func(t *testing.T) {
		in := node(split, "root", map[proof.CaseName]*proof.Incremental{
			"b": leaf(proof.Sorry("x"), "mid"),
		})
		out, ok := ReplaceSorry(Contradiction())(w, 0, "root", in)
		require.True(t, ok)
		assert.True(t, sameSteps(in, out))
	})

	t.Run("lazy on unbounded proofs", func(t *testing.T) {
		bw := binaryWorld(nil, nil)
		out, ok := ReplaceSorry(SorryProver("r"))(bw, 0, "", generate(bw, ""))
		require.True(t, ok)
		deep, ok := proof.AtPath(out, proof.Path{"l", "r", "l"})
		require.True(t, ok)
		assert.Equal(t, "lrl", deep.Value.Info)
	})
}

func TestNamed(t *testing.T) {
	applied := proverRunsTotal.WithLabelValues("test-named", "true")
	failed := proverRunsTotal.WithLabelValues("test-named", "false")
	before, beforeFailed := testutil.ToFloat64(applied), testutil.ToFloat64(failed)

	w := tableWorld()
	p := Named("test-named", Contradiction())
	_, ok := p(w, 0, "dead", nil)
	assert.True(t, ok)
	_, ok = p(w, 0, "root", nil)
	assert.False(t, ok)

	assert.Equal(t, before+1, testutil.ToFloat64(applied))
	assert.Equal(t, beforeFailed+1, testutil.ToFloat64(failed))
}

func TestSearch(t *testing.T) {
	t.Run("fully reduced system is solved", func(t *testing.T) {
		w := tableWorld()
		got := Search(w.heuristic(), w, 0, "open")
		assert.True(t, got.IsLeaf())
		assert.True(t, got.Value.Method.IsSolved())
	})

	t.Run("takes the best candidate", func(t *testing.T) {
		w := tableWorld()
		got := generate(w, "root")
		want := "" +
			"split @root\n" +
			"  case a\n" +
			"  by contradiction /* cyclic */ @dead\n" +
			"next\n" +
			"  case b\n" +
			"  split @mid\n" +
			"  SOLVED // trace found @open\n" +
			"qed\n"
		assert.Equal(t, want, render(got))
	})

	t.Run("lazy", func(t *testing.T) {
		w := binaryWorld(nil, nil)
		got := Search(w.heuristic(), w, 0, "")
		assert.Equal(t, int64(1), w.ranked.Load())

		deep, ok := proof.AtPath(got, proof.Path{"r", "r", "l"})
		require.True(t, ok)
		assert.Equal(t, split, deep.Value.Method)
		assert.Equal(t, int64(4), w.ranked.Load())
	})

	t.Run("depth reaches the heuristic", func(t *testing.T) {
		w := chainWorld(-1)
		var depths []int
		h := proof.HeuristicFunc{ID: "depths", Fn: func(s proof.Solver, depth int, sys proof.System) []proof.Candidate {
			depths = append(depths, depth)
			return w.heuristic().Rank(s, depth, sys)
		}}
		got := Search(h, w, 7, "")
		_, _ = proof.AtPath(got, proof.Path{"", ""})
		assert.Equal(t, []int{7, 8, 9}, depths)
	})

	t.Run("round trips through replay", func(t *testing.T) {
		w := binaryWorld([]string{"rl"}, []string{"ll"})
		annotated := boundedSearch(w, 4)
		checked := proof.CheckProof(w, func(int, proof.System) *proof.Incremental {
			t.Fatal("continuation called")
			return nil
		}, 0, "", annotated)
		invalid := proof.FoldProof(checked, func(s proof.Step[proof.Checked[proof.System]]) bool {
			return s.Method == proof.Sorry(proof.ReasonInvalidStep)
		}, func(a, b bool) bool { return a || b })
		assert.False(t, invalid)
		assert.Equal(t, ltree.Size(annotated), ltree.Size(checked))
	})
}

// boundedSearch annotates a search from "" and cuts it at depth bound.
func boundedSearch(w world, bound int) *proof.Incremental {
	return proof.BoundDepth(bound, generate(w, ""))
}
