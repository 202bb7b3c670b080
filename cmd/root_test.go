// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonial-oss/resilience-sim/internal/input"
)

const testAssets = `[
	{"node_id": "A", "node_name": "Gateway", "node_type": "Router", "critical_functions": ["F01"],
	 "connected_to": ["B", "C"], "CVE": ["CVE-2024-0001"], "CVE_NVD": {"CVE-2024-0001": 9.8}},
	{"node_id": "B", "node_name": "Gateway Standby", "node_type": "Router", "critical_functions": ["F01"],
	 "connected_to": ["A"]},
	{"node_id": "C", "node_name": "Historian", "node_type": "Server", "critical_functions": ["F02"],
	 "connected_to": ["A"]}
]`

const testMetadata = `{
	"CVE-2024-0001": {
		"base_score": 9.8,
		"attack_vector": "NETWORK",
		"privileges_required": "NONE",
		"user_interaction": "NONE",
		"vector_string": "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H",
		"cvss_version": "CVSS V31",
		"error": null
	}
}`

func writeDataDir(t *testing.T, withMetadata bool) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, input.AssetsFile), []byte(testAssets), 0o644))
	if withMetadata {
		require.NoError(t, os.WriteFile(filepath.Join(dir, input.MetadataFile), []byte(testMetadata), 0o644))
	}
	return dir
}

// run executes the root command with an empty cache directory and returns
// stdout, stderr and the error.
func run(t *testing.T, dataDir string, args ...string) (string, string, error) {
	t.Helper()
	return runWithCache(t, dataDir, t.TempDir(), args...)
}

func runWithCache(t *testing.T, dataDir, cacheDir string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--data-dir", dataDir, "--cache-dir", cacheDir))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	return exitErr.Code
}

func TestScore_JSON(t *testing.T) {
	out, _, err := run(t, writeDataDir(t, false), "score")
	require.NoError(t, err)

	var res struct {
		SystemScore float64 `json:"system_resilience_score"`
		NodeScores  []struct {
			NodeID string `json:"node_id"`
		} `json:"node_scores"`
		Metrics []json.RawMessage `json:"node_metrics"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.NodeScores, 3)
	assert.Equal(t, "A", res.NodeScores[0].NodeID)
	assert.Greater(t, res.SystemScore, 0.0)
	assert.Empty(t, res.Metrics)
}

func TestScore_WithMetrics(t *testing.T) {
	out, _, err := run(t, writeDataDir(t, false), "score", "--metrics")
	require.NoError(t, err)
	assert.Contains(t, out, `"node_metrics"`)
}

func TestScore_Table(t *testing.T) {
	out, _, err := run(t, writeDataDir(t, false), "score", "--format", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "Resilience Scores")
	assert.Contains(t, out, "Gateway Standby")
}

func TestScore_FailBelow(t *testing.T) {
	dir := writeDataDir(t, false)

	_, _, err := run(t, dir, "score", "--fail-below", "1000")
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(t, err))

	_, _, err = run(t, dir, "score", "--fail-below", "0")
	assert.NoError(t, err)
}

func TestScore_Patch(t *testing.T) {
	out, _, err := run(t, writeDataDir(t, false), "score", "--patch", "CVE-2024-0001")
	require.NoError(t, err)

	var report struct {
		CVEID        string   `json:"cve_id"`
		PatchedNodes []string `json:"patched_nodes"`
		Delta        struct {
			Before float64 `json:"before"`
			After  float64 `json:"after"`
		} `json:"delta"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "CVE-2024-0001", report.CVEID)
	assert.Equal(t, []string{"A"}, report.PatchedNodes)
}

func TestScore_MetricsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resilience.prom")
	_, _, err := run(t, writeDataDir(t, false), "score", "--metrics-file", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "resilience_recompute_total")
}

func TestInvalidFlags(t *testing.T) {
	dir := writeDataDir(t, false)
	tests := []struct {
		name string
		args []string
	}{
		{"format", []string{"score", "--format", "xml"}},
		{"sort key", []string{"score", "--sort-by", "cve"}},
		{"log level", []string{"score", "--log-level", "loud"}},
		{"missing config", []string{"score", "--config", filepath.Join(dir, "missing.yaml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, dir, tt.args...)
			require.Error(t, err)
			var exitErr *ExitError
			if assert.ErrorAs(t, err, &exitErr) {
				assert.Equal(t, 2, exitErr.Code)
			}
		})
	}
}

func TestMissingDataset(t *testing.T) {
	_, _, err := run(t, t.TempDir(), "score")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading dataset")
}

func TestStates(t *testing.T) {
	out, _, err := run(t, writeDataDir(t, false), "states", "--from-initial")
	require.NoError(t, err)

	var adj []struct {
		NodeID       string  `json:"node_id"`
		State        string  `json:"state"`
		InitialScore float64 `json:"initial_score"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &adj))
	require.Len(t, adj, 3)
	assert.Equal(t, "Under Attack", adj[0].State)
	assert.Equal(t, "Normal", adj[2].State)
	assert.InDelta(t, 100.0, adj[2].InitialScore, 1e-9)
}

func TestCVEs(t *testing.T) {
	out, _, err := run(t, writeDataDir(t, false), "cves")
	require.NoError(t, err)

	var impacts []struct {
		CVEID    string  `json:"cve_id"`
		Affected int     `json:"nodes_affected"`
		Impact   float64 `json:"impact_score"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &impacts))
	require.Len(t, impacts, 1)
	assert.Equal(t, "CVE-2024-0001", impacts[0].CVEID)
	assert.Equal(t, 1, impacts[0].Affected)
	assert.InDelta(t, 9.8, impacts[0].Impact, 1e-9)
}

func TestRedundancy(t *testing.T) {
	dir := writeDataDir(t, false)
	tests := []struct {
		name       string
		args       []string
		equivalent bool
	}{
		{"clean standby", []string{"B", "A"}, true},
		{"vulnerable primary", []string{"A", "B"}, false},
		{"different functions", []string{"C", "B"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, dir, append([]string{"redundancy"}, tt.args...)...)
			require.NoError(t, err)
			var res redundancyResult
			require.NoError(t, json.Unmarshal([]byte(out), &res))
			assert.Equal(t, tt.equivalent, res.Equivalent)
		})
	}

	_, _, err := run(t, dir, "redundancy", "Z", "A")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(t, err))
}

func TestSimulate_NoMetadata(t *testing.T) {
	out, _, err := run(t, writeDataDir(t, false), "simulate", "--no-kev")
	require.NoError(t, err)

	var res struct {
		RunID   string            `json:"run_id"`
		Status  string            `json:"status"`
		Entries []json.RawMessage `json:"entries"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "no-metadata", res.Status)
	assert.NotEmpty(t, res.RunID)
	assert.Empty(t, res.Entries)
}

func TestSimulate_Completed(t *testing.T) {
	out, _, err := run(t, writeDataDir(t, true), "simulate", "--no-kev", "--unrestricted", "--av", "NETWORK")
	require.NoError(t, err)

	var res struct {
		Status  string `json:"status"`
		Entries []struct {
			EntryNode string `json:"entry_node"`
			CVEID     string `json:"cve_id"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "completed", res.Status)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "A", res.Entries[0].EntryNode)
	assert.Equal(t, "CVE-2024-0001", res.Entries[0].CVEID)
}

func TestSimulate_Filtered(t *testing.T) {
	out, _, err := run(t, writeDataDir(t, true), "simulate", "--no-kev", "--av", "LOCAL")
	require.NoError(t, err)

	var res struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "no-entry-points", res.Status)
}

func TestSimulate_ConflictingKEVFlags(t *testing.T) {
	_, _, err := run(t, writeDataDir(t, true), "simulate", "--no-kev", "--kev-only")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(t, err))
}

func TestExportNeo4j_MissingPassword(t *testing.T) {
	t.Setenv("NEO4J_PASSWORD", "")
	_, _, err := run(t, writeDataDir(t, false), "export", "neo4j")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(t, err))
}

func TestMetadataPath(t *testing.T) {
	dataDir := writeDataDir(t, true)
	assert.Equal(t, "/explicit.json", metadataPath("/explicit.json", dataDir, "/cache"))
	assert.Equal(t, filepath.Join(dataDir, input.MetadataFile), metadataPath("", dataDir, "/cache"))
	assert.Equal(t, filepath.Join("/cache", "nvd", "nvd_results.json"), metadataPath("", t.TempDir(), "/cache"))
}

func TestSimulate_CachedKEV(t *testing.T) {
	cacheDir := t.TempDir()
	kevDir := filepath.Join(cacheDir, "kev")
	require.NoError(t, os.MkdirAll(kevDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(kevDir, "known_exploited_vulnerabilities.json"), []byte(`{
		"catalogVersion": "2026.10.01",
		"count": 1,
		"vulnerabilities": [{"cveID": "CVE-2024-0001", "vendorProject": "Acme", "product": "Gateway"}]
	}`), 0o644))

	out, stderr, err := runWithCache(t, writeDataDir(t, true), cacheDir,
		"simulate", "--kev-only", "--skip-db-update", "--unrestricted", "--log-level", "info")
	require.NoError(t, err)
	assert.Contains(t, stderr, "catalog_version=2026.10.01")
	assert.Contains(t, stderr, "entries=1")

	var res struct {
		Status  string `json:"status"`
		Entries []struct {
			CVEID          string `json:"cve_id"`
			KnownExploited bool   `json:"known_exploited"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "completed", res.Status)
	require.Len(t, res.Entries, 1)
	assert.True(t, res.Entries[0].KnownExploited)
}

func TestCloseInto(t *testing.T) {
	errClose := errors.New("close failed")
	errRun := errors.New("run failed")
	tests := []struct {
		name     string
		runErr   error
		closeErr error
		want     error
	}{
		{"both succeed", nil, nil, nil},
		{"close error is reported", nil, errClose, errClose},
		{"run error wins", errRun, errClose, errRun},
		{"run error kept", errRun, nil, errRun},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			closed := false
			fn := func() (err error) {
				defer closeInto(&err, func() error {
					closed = true
					return tt.closeErr
				})
				return tt.runErr
			}
			err := fn()
			assert.True(t, closed)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}
