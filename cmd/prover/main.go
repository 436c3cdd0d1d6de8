// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command prover inspects, prunes and stores proof trees.
//
// Proofs are read as JSON trees:
//
//	{"value": {"method": {"kind": "split"}, "info": "s0"},
//	 "children": [{"label": "a", "tree": {...}}]}
//
// An info of null marks a node whose system is unknown; any other value
// marks it as checked.
//
// Usage:
//
//	prover status proof.json --quantifier exists
//	prover show proof.json
//	prover cut proof.json --policy bfs
//	prover bound proof.json --depth 5
//	prover store put proof.json --name lemma1
//	prover store list
//
// Configuration is read from --config (YAML or JSON) and PROVER_*
// environment variables. --log-dir adds daily JSON log files and
// --metrics-file writes the Prometheus registry on exit:
//
//	prover cut proof.json --log-dir ~/.aleutian/logs --metrics-file /var/lib/node_exporter/prover.prom
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
