// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleProof splits s0 into a closed case "a" and a solved case "b".
const sampleProof = `{
  "value": {"method": {"kind": "split", "arg": "x"}, "info": "s0"},
  "children": [
    {"label": "a", "tree": {"value": {"method": {"kind": "contradiction", "source": "cyclic"}, "info": "s1"}}},
    {"label": "b", "tree": {"value": {"method": {"kind": "solved"}, "info": "s2"}}}
  ]
}`

// openProof has an unresolved node and an open Sorry.
const openProof = `{
  "value": {"method": {"kind": "split"}, "info": "s0"},
  "children": [
    {"label": "a", "tree": {"value": {"method": {"kind": "sorry", "reason": "todo"}, "info": "s1"}}},
    {"label": "b", "tree": {"value": {"method": {"kind": "solved"}, "info": null}}}
  ]
}`

func writeProof(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "proof.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PROVER_STORAGE_PATH", filepath.Join(t.TempDir(), "store"))
	return executeInEnv(t, args...)
}

func executeInEnv(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStatusCommand(t *testing.T) {
	path := writeProof(t, sampleProof)

	out, err := execute(t, "status", path)
	require.NoError(t, err)
	assert.Contains(t, out, "status:  trace_found")
	assert.Contains(t, out, "verdict: falsified")

	out, err = execute(t, "status", path, "--quantifier", "exists")
	require.NoError(t, err)
	assert.Contains(t, out, "verdict: verified")

	out, err = execute(t, "status", writeProof(t, openProof))
	require.NoError(t, err)
	assert.Contains(t, out, "status:  incomplete")
	assert.Contains(t, out, "verdict: analysis incomplete")
}

func TestStatusCommand_Errors(t *testing.T) {
	_, err := execute(t, "status", writeProof(t, sampleProof), "--quantifier", "some")
	assert.Error(t, err)

	_, err = execute(t, "status", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = execute(t, "status", writeProof(t, `{"value": `))
	assert.Error(t, err)
}

func TestShowCommand(t *testing.T) {
	out, err := execute(t, "show", writeProof(t, openProof))
	require.NoError(t, err)
	assert.Contains(t, out, "case a")
	assert.Contains(t, out, "sorry /* todo */")
	assert.Contains(t, out, "/* unchecked */")
	assert.Contains(t, out, "qed")
}

func TestCutCommand(t *testing.T) {
	path := writeProof(t, sampleProof)

	// DFS keeps only the witness branch.
	out, err := execute(t, "cut", path, "--policy", "dfs")
	require.NoError(t, err)
	assert.Contains(t, out, "SOLVED")
	assert.NotContains(t, out, "cyclic")

	// BFS keeps closed leaves above the witness depth.
	out, err = execute(t, "cut", path, "--policy", "BFS")
	require.NoError(t, err)
	assert.Contains(t, out, "SOLVED")
	assert.Contains(t, out, "cyclic")

	out, err = execute(t, "cut", path, "--policy", "none")
	require.NoError(t, err)
	assert.Contains(t, out, "cyclic")

	_, err = execute(t, "cut", path, "--policy", "sideways")
	assert.Error(t, err)
}

func TestCutCommand_JSON(t *testing.T) {
	out, err := execute(t, "cut", writeProof(t, sampleProof), "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"label": "b"`)
	assert.NotContains(t, out, `"label": "a"`)
}

func TestBoundCommand(t *testing.T) {
	path := writeProof(t, sampleProof)

	out, err := execute(t, "bound", path, "--depth", "0")
	require.NoError(t, err)
	assert.Equal(t, "by sorry /* bound 0 hit */\n", out)

	out, err = execute(t, "bound", path, "--depth", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "sorry /* bound 1 hit */")
	assert.NotContains(t, out, "SOLVED")

	out, err = execute(t, "bound", path, "--depth", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "SOLVED")
	assert.NotContains(t, out, "bound 2 hit")

	_, err = execute(t, "bound", path, "--depth", "-1")
	assert.Error(t, err)

	_, err = execute(t, "bound", path)
	assert.Error(t, err)
}

func TestStoreCommands(t *testing.T) {
	t.Setenv("PROVER_STORAGE_PATH", filepath.Join(t.TempDir(), "store"))
	path := writeProof(t, sampleProof)

	out, err := executeInEnv(t, "store", "put", path, "--name", "lemma")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.Len(t, id, 36)

	out, err = executeInEnv(t, "store", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "lemma")
	assert.Contains(t, out, "trace_found")

	out, err = executeInEnv(t, "store", "get", id)
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "lemma"`)
	assert.Contains(t, out, `"status": "trace_found"`)
	// Proofs read from files were not generated by the automatic prover.
	assert.NotContains(t, out, `"config"`)
	assert.NotContains(t, out, `"heuristic"`)

	_, err = executeInEnv(t, "store", "delete", id)
	require.NoError(t, err)

	_, err = executeInEnv(t, "store", "get", id)
	assert.Error(t, err)

	_, err = executeInEnv(t, "store", "get", "not-a-uuid")
	assert.Error(t, err)
}

func TestGlobalFlags(t *testing.T) {
	path := writeProof(t, sampleProof)

	_, err := execute(t, "status", path, "--log-level", "loud")
	assert.Error(t, err)

	_, err = execute(t, "cut", path, "--trace", "--log-level", "debug")
	assert.NoError(t, err)

	cfg := filepath.Join(t.TempDir(), "prover.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("cut:\n  initial_cap: 0\n"), 0600))
	_, err = execute(t, "status", path, "--config", cfg)
	assert.Error(t, err)
}

func TestLogDirFlag(t *testing.T) {
	path := writeProof(t, sampleProof)
	dir := filepath.Join(t.TempDir(), "logs")

	_, err := execute(t, "cut", path, "--log-dir", dir, "--log-level", "debug")
	require.NoError(t, err)

	name := "aleutian-prover_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		if rec["msg"] == "cut applied" {
			found = true
			assert.Equal(t, "dfs", rec["policy"])
			assert.Equal(t, "aleutian-prover", rec["service"])
		}
	}
	assert.True(t, found, "cut applied record missing from %s", name)
}

func TestLogDirFromEnv(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "env-logs")
	t.Setenv("PROVER_LOG_DIR", dir)

	_, err := execute(t, "status", writeProof(t, sampleProof))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMetricsFileFlag(t *testing.T) {
	path := writeProof(t, sampleProof)
	metrics := filepath.Join(t.TempDir(), "prover.prom")

	_, err := execute(t, "cut", path, "--policy", "dfs", "--metrics-file", metrics)
	require.NoError(t, err)

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), "aleutian_prover_cut_rounds_total")
	assert.Contains(t, string(data), "aleutian_prover_cut_duration_seconds")
}

func TestMetricsFileDisabled(t *testing.T) {
	t.Setenv("PROVER_METRICS_ENABLED", "false")
	metrics := filepath.Join(t.TempDir(), "prover.prom")

	_, err := execute(t, "cut", writeProof(t, sampleProof), "--metrics-file", metrics)
	require.NoError(t, err)

	_, err = os.Stat(metrics)
	assert.True(t, os.IsNotExist(err))
}
