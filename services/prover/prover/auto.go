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
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/AleutianAI/AleutianProver/services/prover/proof"
)

// ErrUnknownHeuristic is returned when a configuration names a heuristic
// that is not registered.
var ErrUnknownHeuristic = errors.New("unknown heuristic")

// CutPolicy selects how the automatic prover extracts a witness.
type CutPolicy string

const (
	// CutNone keeps the generated proof.
	CutNone CutPolicy = "none"

	// CutDFS uses iterative deepening (Cutter.DFS).
	CutDFS CutPolicy = "dfs"

	// CutBFS uses the level scan (Cutter.BFS).
	CutBFS CutPolicy = "bfs"
)

// ParseCutPolicy parses "none", "dfs" or "bfs", ignoring case.
func ParseCutPolicy(s string) (CutPolicy, error) {
	switch p := CutPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case CutNone, CutDFS, CutBFS:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown cut policy %q", ErrInvalidConfig, s)
	}
}

// String returns the string representation of the policy.
func (p CutPolicy) String() string {
	return string(p)
}

// MarshalText implements encoding.TextMarshaler. The zero policy encodes
// as "none".
func (p CutPolicy) MarshalText() ([]byte, error) {
	if p == "" {
		return []byte(CutNone), nil
	}
	return []byte(p), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text decodes to
// CutNone.
func (p *CutPolicy) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = CutNone
		return nil
	}
	parsed, err := ParseCutPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// AutoProverConfig is the persisted description of an automatic prover.
type AutoProverConfig struct {
	// Heuristic names a heuristic in a HeuristicRegistry.
	Heuristic string `json:"heuristic" yaml:"heuristic" validate:"required"`

	// DepthBound, if set, cuts the generated proof at this depth.
	DepthBound *int `json:"depth_bound,omitempty" yaml:"depth_bound,omitempty" validate:"omitempty,gte=0"`

	// Cut selects the witness extraction strategy.
	Cut CutPolicy `json:"cut" yaml:"cut" validate:"oneof=none dfs bfs"`
}

// DefaultAutoProverConfig returns an unbounded prover using iterative
// deepening and the "default" heuristic.
func DefaultAutoProverConfig() AutoProverConfig {
	return AutoProverConfig{
		Heuristic: "default",
		Cut:       CutDFS,
	}
}

// Validate checks the configuration's struct tags.
func (c AutoProverConfig) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// HeuristicRegistry resolves heuristics by name.
//
// Thread Safety: Safe for concurrent use.
type HeuristicRegistry struct {
	mu         sync.RWMutex
	heuristics map[string]proof.Heuristic
}

// NewHeuristicRegistry creates a registry holding hs.
func NewHeuristicRegistry(hs ...proof.Heuristic) *HeuristicRegistry {
	r := &HeuristicRegistry{heuristics: make(map[string]proof.Heuristic, len(hs))}
	for _, h := range hs {
		r.Register(h)
	}
	return r
}

// Register adds h under h.Name(), replacing any previous entry.
func (r *HeuristicRegistry) Register(h proof.Heuristic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heuristics[h.Name()] = h
}

// Lookup returns the heuristic registered under name.
func (r *HeuristicRegistry) Lookup(name string) (proof.Heuristic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.heuristics[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHeuristic, name)
	}
	return h, nil
}

// Names returns the registered names in ascending order.
func (r *HeuristicRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.heuristics))
	for name := range r.heuristics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AutoProver generates proofs from scratch.
//
// Description:
//
//	A run discards the incoming proof, searches from the starting system
//	with the heuristic, annotates every node with its system, cuts the
//	result at the depth bound if one is set and finally applies the cut
//	policy.
//
// Thread Safety: Safe for concurrent use.
type AutoProver struct {
	heuristic proof.Heuristic
	config    AutoProverConfig
	cutter    *Cutter
	tracer    *Tracer
	logger    *slog.Logger
}

// NewAutoProver creates an automatic prover. config.Heuristic is replaced
// by h's name.
//
// Inputs:
//   - h: Ranks candidate methods.
//   - config: Depth bound and cut policy.
//   - cutter: Applies the cut policy (nil for a default cutter).
//
// Outputs:
//   - *AutoProver: The prover.
//   - error: Wraps ErrInvalidConfig if config is invalid.
func NewAutoProver(h proof.Heuristic, config AutoProverConfig, cutter *Cutter) (*AutoProver, error) {
	config.Heuristic = h.Name()
	if config.Cut == "" {
		config.Cut = CutNone
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if cutter == nil {
		cutter = NewCutter(DefaultCutConfig())
	}
	return &AutoProver{
		heuristic: h,
		config:    config,
		cutter:    cutter,
		tracer:    disabledTracer(),
		logger:    slog.Default(),
	}, nil
}

// AutoProver builds an automatic prover from a persisted configuration.
//
// Outputs:
//   - *AutoProver: The prover.
//   - error: Wraps ErrUnknownHeuristic or ErrInvalidConfig.
func (r *HeuristicRegistry) AutoProver(config AutoProverConfig, cutter *Cutter) (*AutoProver, error) {
	h, err := r.Lookup(config.Heuristic)
	if err != nil {
		return nil, err
	}
	return NewAutoProver(h, config, cutter)
}

// WithLogger sets the logger.
func (a *AutoProver) WithLogger(logger *slog.Logger) *AutoProver {
	a.logger = logger
	return a
}

// WithTracer sets the tracer.
func (a *AutoProver) WithTracer(tracer *Tracer) *AutoProver {
	a.tracer = tracer
	return a
}

// Config returns the persisted description of the prover.
func (a *AutoProver) Config() AutoProverConfig {
	return a.config
}

// generate is the search, annotation and depth bounding part of a run.
func (a *AutoProver) generate() Prover {
	p := SearchProver(a.heuristic)
	if a.config.DepthBound != nil {
		bound := *a.config.DepthBound
		p = MapProof(p, func(out *proof.Incremental) *proof.Incremental {
			return proof.BoundDepth(bound, out)
		})
	}
	return p
}

// finite reports whether runs always produce finite proofs, so that their
// status can be computed.
func (a *AutoProver) finite() bool {
	return a.config.DepthBound != nil || a.config.Cut != CutNone
}

// Run generates a proof for sys.
//
// Inputs:
//   - ctx: Cancels the cut.
//   - s: The solver bound to the proof context.
//   - depth: Depth of the generated proof within the enclosing proof.
//   - sys: The starting system. Must not be nil.
//
// Outputs:
//   - *proof.Incremental: The generated proof. Unbounded and lazy when the
//     configuration has neither a depth bound nor a cut.
//   - error: Non-nil if ctx was cancelled during the cut.
func (a *AutoProver) Run(ctx context.Context, s proof.Solver, depth int, sys proof.System) (out *proof.Incremental, err error) {
	ctx, span := a.tracer.StartAuto(ctx, a.config, depth)
	status, known := proof.StatusUndetermined, false
	defer func() { a.tracer.EndAuto(span, status, known, err) }()

	generated, _ := a.generate()(s, depth, sys, nil)
	out, err = a.cutter.Apply(ctx, a.config.Cut, generated)
	if err != nil {
		LoggerWithTrace(ctx, a.logger).Warn("automatic prover cancelled",
			slog.String("heuristic", a.config.Heuristic),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if a.finite() {
		status, known = proof.IncrementalStatus(out), true
		verdictsTotal.WithLabelValues(status.String()).Inc()
		LoggerWithTrace(ctx, a.logger).Debug("automatic prover finished",
			slog.String("heuristic", a.config.Heuristic),
			slog.String("status", status.String()),
		)
	}
	return out, nil
}

// Prover returns the automatic prover as a Prover. It does not apply if ctx
// is cancelled during the cut.
func (a *AutoProver) Prover(ctx context.Context) Prover {
	return func(s proof.Solver, depth int, sys proof.System, _ *proof.Incremental) (*proof.Incremental, bool) {
		out, err := a.Run(ctx, s, depth, sys)
		if err != nil {
			return nil, false
		}
		return out, true
	}
}
