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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/AleutianProver/services/prover/proof"
)

// Cut outcomes recorded by cutDuration.
const (
	outcomeWitness    = "witness"
	outcomeNoWitness  = "no_witness"
	outcomeIncomplete = "incomplete"
	outcomeCancelled  = "cancelled"
)

var (
	// searchNodesTotal counts nodes ranked by Search.
	searchNodesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "aleutian",
			Subsystem: "prover",
			Name:      "search_nodes_total",
			Help:      "Proof nodes expanded by the heuristic search",
		},
	)

	// cutRoundsTotal counts cut rounds.
	//
	// Labels:
	//   - strategy: "dfs" or "bfs"
	cutRoundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aleutian",
			Subsystem: "prover",
			Name:      "cut_rounds_total",
			Help:      "Iterative deepening rounds and level scans run by the cut strategies",
		},
		[]string{"strategy"},
	)

	// cutDuration tracks how long a cut takes.
	//
	// Labels:
	//   - strategy: "dfs" or "bfs"
	//   - outcome: "witness", "no_witness", "incomplete" or "cancelled"
	cutDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aleutian",
			Subsystem: "prover",
			Name:      "cut_duration_seconds",
			Help:      "Duration of cut strategies",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"strategy", "outcome"},
	)

	// verdictsTotal counts automatic prover runs by resulting status.
	//
	// Labels:
	//   - status: proof.Status text
	verdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aleutian",
			Subsystem: "prover",
			Name:      "verdicts_total",
			Help:      "Automatic prover runs by resulting proof status",
		},
		[]string{"status"},
	)

	// proverRunsTotal counts runs of named provers.
	//
	// Labels:
	//   - prover: name given to Named
	//   - applied: "true" or "false"
	proverRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aleutian",
			Subsystem: "prover",
			Name:      "prover_runs_total",
			Help:      "Named prover invocations by whether they applied",
		},
		[]string{"prover", "applied"},
	)
)

// Named counts the runs of p under name. Names end up as metric labels and
// must come from a small fixed set.
func Named(name string, p Prover) Prover {
	applied := proverRunsTotal.WithLabelValues(name, "true")
	failed := proverRunsTotal.WithLabelValues(name, "false")
	return func(s proof.Solver, depth int, sys proof.System, in *proof.Incremental) (*proof.Incremental, bool) {
		out, ok := p(s, depth, sys, in)
		if ok {
			applied.Inc()
		} else {
			failed.Inc()
		}
		return out, ok
	}
}
