// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonial-oss/resilience-sim/internal/resilience"
	"github.com/bonial-oss/resilience-sim/internal/simulate"
	"github.com/bonial-oss/resilience-sim/internal/state"
	"github.com/bonial-oss/resilience-sim/internal/types"
)

func makeTestResult() *types.ResilienceResult {
	return &types.ResilienceResult{
		SystemScore: 74.02348,
		NodeScores: []types.NodeScore{
			{NodeID: "B", NodeName: "Beta", ResilienceScore: 99.66464},
			{NodeID: "A", NodeName: "Alpha", ResilienceScore: 48.38232},
			{NodeID: "C", NodeName: "Charlie", ResilienceScore: 20.5},
		},
		Metrics: []types.NodeMetrics{
			{NodeID: "B", NodeName: "Beta", CVEScore: 0, Centrality: 0.5, Connectedness: 2, SwitchDependency: 1, Redundancy: 1, Criticality: 3, EnvironmentalRisk: 0},
			{NodeID: "A", NodeName: "Alpha", CVEScore: 9.8, Centrality: 0.25, Connectedness: 1, SwitchDependency: 1, Redundancy: 0.8, Criticality: 6, EnvironmentalRisk: 1.2},
		},
		EigenvectorConverged: true,
	}
}

func TestWriteScores(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScores(&buf, makeTestResult(), TableConfig{}))

	output := buf.String()

	assert.Contains(t, output, "Resilience Scores\n=================")
	assert.Contains(t, output, "System resilience score: 74.02348")
	assert.NotContains(t, output, "did not converge")

	// Verify box-drawing characters.
	for _, ch := range []string{"┌", "┘", "│", "├"} {
		assert.Contains(t, output, ch)
	}
	for _, col := range []string{"Node ID", "Name", "Resilience Score"} {
		assert.Contains(t, output, col)
	}
	assertOrder(t, output, "Beta", "Alpha", "Charlie")
	assert.NotContains(t, output, "\x1b[", "no ANSI styling off a terminal")
}

func TestWriteScores_Sort(t *testing.T) {
	tests := []struct {
		sortBy string
		order  []string
	}{
		{sortBy: "score", order: []string{"20.50000", "48.38232", "99.66464"}},
		{sortBy: "id", order: []string{"Alpha", "Beta", "Charlie"}},
		{sortBy: "name", order: []string{"Alpha", "Beta", "Charlie"}},
		{sortBy: "", order: []string{"Beta", "Alpha", "Charlie"}},
	}
	for _, tt := range tests {
		t.Run(tt.sortBy, func(t *testing.T) {
			res := makeTestResult()
			var buf bytes.Buffer
			require.NoError(t, WriteScores(&buf, res, TableConfig{SortBy: tt.sortBy}))
			assertOrder(t, buf.String(), tt.order...)
			assert.Equal(t, "B", res.NodeScores[0].NodeID, "input must not be reordered")
		})
	}
}

func TestWriteScores_NotConvergedAndIssues(t *testing.T) {
	res := makeTestResult()
	res.EigenvectorConverged = false
	res.Issues = []types.Issue{
		{Kind: types.ErrNumericDegenerate, Detail: "eigenvector centrality did not converge"},
		{Kind: types.ErrMalformedInput, AssetID: "Z", Detail: "connection to unknown asset dropped"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteScores(&buf, res, TableConfig{}))

	output := buf.String()
	assert.Contains(t, output, "Eigenvector centrality did not converge; treated as 0.")
	assert.Contains(t, output, "Issues (Total: 2)")
	for _, expected := range []string{"numeric_degenerate", "malformed_input", "Z", "connection to unknown asset dropped"} {
		assert.Contains(t, output, expected)
	}
}

func TestWriteScores_RowSeparators(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScores(&buf, makeTestResult(), TableConfig{}))

	// With 3 rows: 1 header sep + 2 row seps.
	assert.GreaterOrEqual(t, strings.Count(buf.String(), "├"), 3)
}

func TestWriteMetrics(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMetrics(&buf, makeTestResult(), TableConfig{SortBy: "score"}))

	output := buf.String()
	for _, col := range []string{"CVE", "Centrality", "Degree", "Switch", "Redundancy", "Criticality", "Env. Risk", "Score"} {
		assert.Contains(t, output, col)
	}
	for _, expected := range []string{"9.8", "0.2500", "0.8", "6.0", "1.2", "48.38232", "0.5000"} {
		assert.Contains(t, output, expected)
	}
	assertOrder(t, output, "Alpha", "Beta")
}

func TestWriteDelta(t *testing.T) {
	t.Run("changed", func(t *testing.T) {
		d := resilience.Delta{
			SystemBefore: 74.02348,
			SystemAfter:  78.1,
			Changed:      map[string]float64{"B": 0.5, "A": 7.6},
		}
		var buf bytes.Buffer
		require.NoError(t, WriteDelta(&buf, "Patch CVE-2024-0001", d, TableConfig{}))

		output := buf.String()
		assert.Contains(t, output, "Patch CVE-2024-0001")
		assert.Contains(t, output, "74.02348 -> 78.10000 (+4.07652)")
		assertOrder(t, output, "+7.60000", "+0.50000")
	})

	t.Run("unchanged", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteDelta(&buf, "Patch", resilience.Delta{SystemBefore: 50, SystemAfter: 50}, TableConfig{}))
		assert.Contains(t, buf.String(), "No asset scores changed.")
	})
}

func TestWriteSimulation(t *testing.T) {
	res := &simulate.Result{
		RunID:  "run-1",
		Status: simulate.StatusCompleted,
		Entries: []simulate.EntryResult{
			{
				EntryNode: "A", EntryName: "Alpha", CVEID: "CVE-2024-0001", BaseScore: 9.8, KnownExploited: true,
				ReachableIDs: []string{"B", "C"},
				Reachable: []string{
					"B (Beta, Server, CVEs: 1, Score: 5.0)",
					"C (Charlie, N/A, CVEs: 0, Score: 0.0)",
				},
			},
			{EntryNode: "D", EntryName: "Delta", CVEID: "CVE-2024-0002", BaseScore: 7.5, ReachableIDs: []string{}},
		},
		Edges: []types.Edge{{Source: "A", Target: "B"}, {Source: "B", Target: "C"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSimulation(&buf, res, TableConfig{}))

	output := buf.String()
	assert.Contains(t, output, "Run: run-1")
	assert.Contains(t, output, "Entry points: 2, attack edges: 2")
	assertOrder(t, output, "B (Beta, Server", "C (Charlie, N/A", "D (Delta)")
	assertOrder(t, output, "A (Alpha)", "D (Delta)")
	assert.Contains(t, output, "YES")
	assert.Contains(t, output, "NO")

	// The entry cell of a multi-row traversal is merged.
	assert.Equal(t, 1, strings.Count(output, "A (Alpha)"))
}

func TestWriteSimulation_NotCompleted(t *testing.T) {
	res := &simulate.Result{
		RunID:   "run-2",
		Status:  simulate.StatusNoEntryPoints,
		Message: "No CVEs passed the filters.",
		Issues:  []types.Issue{{Kind: types.ErrMissingMetadata, AssetID: "A", Detail: "CVE-2024-0009 has no usable CVSS metadata"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSimulation(&buf, res, TableConfig{}))

	output := buf.String()
	assert.Contains(t, output, "No CVEs passed the filters.")
	assert.Contains(t, output, "missing_metadata")
	assert.NotContains(t, output, "Entry Point")
}

func TestWriteStates(t *testing.T) {
	adjustments := []state.Adjustment{
		{NodeID: "A", NodeName: "Alpha", State: state.UnderAttack.Name, WorstSeverity: 9.1, InitialScore: 50, AdjustedScore: 48},
		{NodeID: "B", NodeName: "Beta", State: state.Normal.Name, WorstSeverity: 0, InitialScore: 99.66464, AdjustedScore: 79.73171},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteStates(&buf, adjustments, TableConfig{SortBy: "name"}))

	output := buf.String()
	for _, expected := range []string{"Operational States", "Under Attack", "Normal", "9.1", "50.00000", "48.00000", "79.73171"} {
		assert.Contains(t, output, expected)
	}
	assertOrder(t, output, "Alpha", "Beta")
}

func TestWriteCVEImpacts(t *testing.T) {
	impacts := []resilience.CVEImpact{
		{CVEID: "CVE-2024-0001", Severity: 9.8, AssetsAffected: 2, Impact: 19.6, AssetIDs: []string{"A", "B"}},
		{CVEID: "CVE-2024-0002", Severity: 5, AssetsAffected: 1, Impact: 5, AssetIDs: []string{"C"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCVEImpacts(&buf, impacts, TableConfig{}))

	output := buf.String()
	assert.Contains(t, output, "Vulnerability Impact (Total: 2)")
	assertOrder(t, output, "CVE-2024-0001", "19.60", "A, B", "CVE-2024-0002", "5.00")
}

func TestFormatScore_Terminal(t *testing.T) {
	assert.Equal(t, "12.00000", formatScore(12, false))
	assert.Contains(t, formatScore(12, true), "12.00000")
	assert.Equal(t, "Failure", formatState("Failure", false))
	assert.Equal(t, "NO", formatKEV(false, true))
}

// assertOrder verifies that the given strings appear in order in the output.
func assertOrder(t *testing.T, output string, items ...string) {
	t.Helper()
	prev := -1
	for _, item := range items {
		idx := strings.Index(output, item)
		require.NotEqual(t, -1, idx, "missing %q in output", item)
		assert.Greater(t, idx, prev, "%q should appear after previous item", item)
		prev = idx
	}
}
