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
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/AleutianAI/AleutianProver/services/prover/ltree"
	"github.com/AleutianAI/AleutianProver/services/prover/proof"
)

// Sorry reasons left by the level scan.
const (
	ReasonBoundReached = "bound reached"
	ReasonAttackExists = "ignored (attack exists)"
)

// Cutter extracts a single trace witness from a generated proof.
//
// Both strategies take proofs whose nodes carry the system they were
// checked against, or nil where that is unknown. They force only as much of
// the proof as they need, so they can be applied to unbounded proofs; on an
// unbounded proof without a witness they run until ctx is cancelled.
//
// Thread Safety: Safe for concurrent use.
type Cutter struct {
	config CutConfig
	tracer *Tracer
	logger *slog.Logger
}

// NewCutter creates a cutter.
//
// Inputs:
//   - config: Cut configuration. Zero InitialCap and Parallelism take the
//     defaults.
//
// Outputs:
//   - *Cutter: Ready to use cutter.
func NewCutter(config CutConfig) *Cutter {
	defaults := DefaultCutConfig()
	if config.InitialCap <= 0 {
		config.InitialCap = defaults.InitialCap
	}
	if config.Parallelism <= 0 {
		config.Parallelism = defaults.Parallelism
	}
	if config.BFSStartLevel < 0 {
		config.BFSStartLevel = 0
	}
	return &Cutter{
		config: config,
		tracer: disabledTracer(),
		logger: slog.Default(),
	}
}

// WithLogger sets the logger.
func (c *Cutter) WithLogger(logger *slog.Logger) *Cutter {
	c.logger = logger
	return c
}

// WithTracer sets the tracer.
func (c *Cutter) WithTracer(tracer *Tracer) *Cutter {
	c.tracer = tracer
	return c
}

// Config returns the effective configuration.
func (c *Cutter) Config() CutConfig {
	return c.config
}

// Apply runs the strategy selected by policy. CutNone returns p unchanged.
func (c *Cutter) Apply(ctx context.Context, policy CutPolicy, p *proof.Incremental) (*proof.Incremental, error) {
	switch policy {
	case CutDFS:
		return c.DFS(ctx, p)
	case CutBFS:
		return c.BFS(ctx, p)
	case CutNone, "":
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unknown cut policy %q", ErrInvalidConfig, policy)
	}
}

// dfsOutcome is the result of scanning a subtree with a depth cap.
type dfsOutcome int

const (
	// noSolution: the subtree was fully scanned and holds no witness.
	noSolution dfsOutcome = iota

	// maybeNoSolution: the cap stopped the scan before a witness was found.
	maybeNoSolution

	// solution: a witness was found at path.
	solution
)

type dfsResult struct {
	outcome dfsOutcome
	path    proof.Path
}

// combineDFS merges the results of two siblings, left before right. A
// witness wins, and the left one among witnesses. noSolution is the
// identity.
func combineDFS(left, right dfsResult) dfsResult {
	switch {
	case left.outcome == solution:
		return left
	case right.outcome == solution:
		return right
	case left.outcome == maybeNoSolution || right.outcome == maybeNoSolution:
		return dfsResult{outcome: maybeNoSolution}
	default:
		return dfsResult{outcome: noSolution}
	}
}

// DFS finds the leftmost Solved node by iterative deepening and prunes p to
// the path leading to it.
//
// Description:
//
//	Each round scans p depth first, left to right, up to a depth cap that
//	starts at CutConfig.InitialCap and doubles after every round the cap
//	stopped. Nodes with unknown systems end the scan of their subtree
//	without a witness. Sibling subtrees may be scanned concurrently, but the
//	witness reported is always the leftmost one within the cap.
//
//	If a witness is found, p is pruned to the nodes on its path and every
//	other branch is dropped. If a round completes without hitting the cap
//	and without a witness, p is returned unchanged.
//
// Inputs:
//   - ctx: Cancels the search between nodes.
//   - p: The proof to cut.
//
// Outputs:
//   - *proof.Incremental: The pruned or unchanged proof.
//   - error: Non-nil only if ctx was cancelled.
func (c *Cutter) DFS(ctx context.Context, p *proof.Incremental) (out *proof.Incremental, err error) {
	start := time.Now()
	ctx, span := c.tracer.StartCut(ctx, CutDFS)
	outcome := outcomeCancelled
	defer func() {
		cutDuration.WithLabelValues(string(CutDFS), outcome).Observe(time.Since(start).Seconds())
		c.tracer.EndCut(span, outcome, err)
	}()

	located := proof.InsertPaths(p)
	sem := semaphore.NewWeighted(int64(c.config.Parallelism - 1))

	for limit := c.config.InitialCap; ; limit *= 2 {
		res, err := c.findSolved(ctx, sem, limit, 0, located)
		if err != nil {
			return nil, err
		}

		switch res.outcome {
		case solution:
			outcome = outcomeWitness
			c.tracer.TraceRound(ctx, CutDFS, limit, outcome)
			LoggerWithTrace(ctx, c.logger).Info("trace found",
				slog.String("strategy", string(CutDFS)),
				slog.Int("depth", len(res.path)),
				slog.Any("path", res.path),
			)
			return extractPath(p, res.path), nil
		case noSolution:
			outcome = outcomeNoWitness
			c.tracer.TraceRound(ctx, CutDFS, limit, outcome)
			return p, nil
		default:
			c.tracer.TraceRound(ctx, CutDFS, limit, outcomeIncomplete)
		}
	}
}

// findSolved scans node, which sits at depth d of the current round.
func (c *Cutter) findSolved(
	ctx context.Context,
	sem *semaphore.Weighted,
	limit, d int,
	node *proof.Proof[proof.Located[proof.System]],
) (dfsResult, error) {
	if err := ctx.Err(); err != nil {
		return dfsResult{}, err
	}
	if d >= limit {
		return dfsResult{outcome: maybeNoSolution}, nil
	}
	step := node.Value
	if step.Info.Info == nil {
		return dfsResult{outcome: noSolution}, nil
	}
	if step.Method.IsSolved() {
		return dfsResult{outcome: solution, path: step.Info.Path}, nil
	}

	edges := node.Edges()
	results := make([]dfsResult, len(edges))
	scanned := len(edges)
	g, gctx := errgroup.WithContext(ctx)
	for i, e := range edges {
		if sem.TryAcquire(1) {
			g.Go(func() error {
				defer sem.Release(1)
				res, err := c.findSolved(gctx, sem, limit, d+1, e.Tree())
				results[i] = res
				return err
			})
			continue
		}

		res, err := c.findSolved(gctx, sem, limit, d+1, e.Tree())
		if err != nil {
			_ = g.Wait()
			return dfsResult{}, err
		}
		results[i] = res
		if res.outcome == solution {
			// Siblings further right cannot win.
			scanned = i + 1
			break
		}
	}
	if err := g.Wait(); err != nil {
		return dfsResult{}, err
	}

	acc := dfsResult{outcome: noSolution}
	for _, res := range results[:scanned] {
		acc = combineDFS(acc, res)
	}
	return acc, nil
}

// extractPath keeps only the nodes of p along path. path must have been
// computed on p.
func extractPath(p *proof.Incremental, path proof.Path) *proof.Incremental {
	if len(path) == 0 {
		return p
	}
	child, ok := p.Child(path[0])
	if !ok {
		panic(fmt.Errorf("%w: extracting witness path %v: case %q not found", proof.ErrInvariant, path, path[0]))
	}
	return ltree.FromEdges(p.Value, []ltree.Edge[proof.CaseName, proof.Step[proof.System]]{
		ltree.Link(path[0], extractPath(child, path[1:])),
	})
}

// BFS scans p level by level for Solved nodes and collapses everything
// below the level where the first one is found.
//
// Description:
//
//	A scan at level l walks every node with a known system down to depth l,
//	left to right, threading a status that starts as Complete. At depth l:
//	  - a Solved node sets the status to TraceFound and loses its children;
//	  - a node without children is kept;
//	  - any other node becomes a childless Sorry(ReasonAttackExists) if a
//	    trace was already found, and Sorry(ReasonBoundReached) otherwise,
//	    which also lowers the status to Incomplete.
//	Nodes with an unknown system are kept as they are and not scanned.
//
//	After a scan: TraceFound returns the collapsed proof, Complete returns
//	p unchanged, and Incomplete rescans p one level deeper.
//
// Inputs:
//   - ctx: Cancels the scan between levels.
//   - p: The proof to cut.
//
// Outputs:
//   - *proof.Incremental: The collapsed or unchanged proof.
//   - error: Non-nil only if ctx was cancelled.
func (c *Cutter) BFS(ctx context.Context, p *proof.Incremental) (out *proof.Incremental, err error) {
	start := time.Now()
	ctx, span := c.tracer.StartCut(ctx, CutBFS)
	outcome := outcomeCancelled
	defer func() {
		cutDuration.WithLabelValues(string(CutBFS), outcome).Observe(time.Since(start).Seconds())
		c.tracer.EndCut(span, outcome, err)
	}()

	for level := c.config.BFSStartLevel; ; level++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		status := proof.StatusComplete
		collapsed := checkLevel(level, p, &status)

		switch status {
		case proof.StatusTraceFound:
			outcome = outcomeWitness
			c.tracer.TraceRound(ctx, CutBFS, level, outcome)
			LoggerWithTrace(ctx, c.logger).Info("trace found",
				slog.String("strategy", string(CutBFS)),
				slog.Int("depth", level),
			)
			return collapsed, nil
		case proof.StatusComplete:
			outcome = outcomeNoWitness
			c.tracer.TraceRound(ctx, CutBFS, level, outcome)
			return p, nil
		case proof.StatusIncomplete:
			c.tracer.TraceRound(ctx, CutBFS, level, outcomeIncomplete)
		default:
			panic(fmt.Errorf("%w: level scan ended with status %s", proof.ErrInvariant, status))
		}
	}
}

// checkLevel scans node, level levels above the scan depth.
func checkLevel(level int, node *proof.Incremental, status *proof.Status) *proof.Incremental {
	step := node.Value
	if step.Info == nil {
		return node
	}

	if level == 0 {
		switch {
		case step.Method.IsSolved():
			*status = proof.StatusTraceFound
			return ltree.Leaf[proof.CaseName](step)
		case node.IsLeaf():
			return node
		case *status == proof.StatusTraceFound:
			return proof.NewSorry(ReasonAttackExists, step.Info)
		default:
			*status = proof.StatusIncomplete
			return proof.NewSorry(ReasonBoundReached, step.Info)
		}
	}

	src := node.Edges()
	edges := make([]ltree.Edge[proof.CaseName, proof.Step[proof.System]], len(src))
	for i, e := range src {
		edges[i] = ltree.Link(e.Label, checkLevel(level-1, e.Tree(), status))
	}
	return ltree.FromEdges(step, edges)
}
