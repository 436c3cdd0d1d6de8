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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Replay conversion kinds.
const (
	conversionSorry     = "sorry"
	conversionInvalid   = "invalid_step"
	conversionStale     = "stale_case"
	conversionUnhandled = "unhandled_case"
)

var (
	// replayConversionsTotal counts nodes CheckProof could not certify.
	//
	// Labels:
	//   - kind: "sorry", "invalid_step", "stale_case" or "unhandled_case"
	replayConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aleutian",
			Subsystem: "prover",
			Name:      "replay_conversions_total",
			Help:      "Proof nodes converted to placeholders or synthesised during replay, by kind",
		},
		[]string{"kind"},
	)

	// replayStepsTotal counts methods re-executed by CheckProof.
	replayStepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "aleutian",
			Subsystem: "prover",
			Name:      "replay_steps_total",
			Help:      "Proof methods re-executed during replay",
		},
	)
)
