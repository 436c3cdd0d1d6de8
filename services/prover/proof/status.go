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

// Status summarises how far verification of a proof got.
//
// Statuses are ordered by priority:
//
//	StatusTraceFound > StatusIncomplete > StatusComplete > StatusUndetermined
//
// and merged with Combine, which keeps the higher one. StatusComplete is the
// identity of Combine on the determined statuses.
type Status int

const (
	// StatusUndetermined means the node was never checked against a system.
	StatusUndetermined Status = iota

	// StatusComplete means every obligation was discharged.
	StatusComplete

	// StatusIncomplete means some obligation is still open (a Sorry).
	StatusIncomplete

	// StatusTraceFound means a fully reduced system, i.e. a trace, was found.
	StatusTraceFound
)

var statusNames = map[Status]string{
	StatusUndetermined: "undetermined",
	StatusComplete:     "complete",
	StatusIncomplete:   "incomplete",
	StatusTraceFound:   "trace_found",
}

// String returns the string representation of the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown proof status %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown proof status %q", text)
}

// Combine merges two statuses, keeping the one with higher priority. The
// operation is associative and commutative.
func (s Status) Combine(other Status) Status {
	return max(s, other)
}

// StepStatus returns the status contributed by a single node. known reports
// whether the node was checked against a system.
func StepStatus(m Method, known bool) Status {
	switch {
	case !known:
		return StatusUndetermined
	case m.IsSolved():
		return StatusTraceFound
	case m.IsSorry():
		return StatusIncomplete
	default:
		return StatusComplete
	}
}

// StatusOf folds StepStatus over every node of p. known reports whether a
// payload counts as checked. Forces the whole proof.
func StatusOf[I any](p *Proof[I], known func(I) bool) Status {
	return FoldProof(p,
		func(s Step[I]) Status { return StepStatus(s.Method, known(s.Info)) },
		Status.Combine)
}

// IncrementalStatus is StatusOf for proofs annotated with systems.
func IncrementalStatus(p *Incremental) Status {
	return StatusOf(p, func(s System) bool { return s != nil })
}

// Quantifier is the trace quantifier of the property being verified.
type Quantifier int

const (
	// AllTraces properties hold when no trace violates them ("exists no trace").
	AllTraces Quantifier = iota

	// ExistsTrace properties hold when some trace satisfies them.
	ExistsTrace
)

// Verdict is the user-facing meaning of a status.
type Verdict string

const (
	VerdictVerified   Verdict = "verified"
	VerdictFalsified  Verdict = "falsified"
	VerdictUnfinished Verdict = "analysis incomplete"
)

// Interpret maps a status to a verdict under the given quantifier.
func Interpret(s Status, q Quantifier) Verdict {
	switch s {
	case StatusComplete:
		if q == ExistsTrace {
			return VerdictFalsified
		}
		return VerdictVerified
	case StatusTraceFound:
		if q == ExistsTrace {
			return VerdictVerified
		}
		return VerdictFalsified
	default:
		return VerdictUnfinished
	}
}
