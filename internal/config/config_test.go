// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonial-oss/resilience-sim/internal/types"
)

func TestDefault_MatchesAssessmentModel(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	s := cfg.Scoring
	assert.InDelta(t, 100.0, s.BaseScore, 1e-9)
	assert.InDelta(t, 0.001, s.ScoreFloor, 1e-12)
	assert.InDelta(t, 0.4, s.Weights.CVE, 1e-9)
	assert.InDelta(t, 0.3, s.Weights.Criticality, 1e-9)
	assert.InDelta(t, 0.8, s.RedundantFactor, 1e-9)
	assert.InDelta(t, 1.0, s.NonRedundantFactor, 1e-9)
	assert.Equal(t, 1000, s.Eigenvector.MaxIterations)
	assert.Len(t, s.FunctionWeights, 17)
	assert.Equal(t, "IT_Cybersecurity", s.FunctionWorkAreas["F18"])
	assert.Equal(t, 300*time.Millisecond, cfg.NVD.RequestDelay)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesSubset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
scoring:
  weights:
    cve: 0.5
  redundant_factor: 1.2
  eigenvector:
    max_iterations: 50
simulation:
  workers: 4
nvd:
  request_delay: 1s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, cfg.Scoring.Weights.CVE, 1e-9)
	// Untouched weights keep their defaults.
	assert.InDelta(t, 0.2, cfg.Scoring.Weights.Centrality, 1e-9)
	assert.InDelta(t, 1.2, cfg.Scoring.RedundantFactor, 1e-9)
	assert.Equal(t, 50, cfg.Scoring.Eigenvector.MaxIterations)
	assert.Equal(t, 4, cfg.Simulation.Workers)
	assert.Equal(t, time.Second, cfg.NVD.RequestDelay)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative weight", "scoring:\n  weights:\n    cve: -1\n"},
		{"zero floor", "scoring:\n  score_floor: 0\n"},
		{"zero iteration cap", "scoring:\n  eigenvector:\n    max_iterations: 0\n"},
		{"negative workers", "simulation:\n  workers: -2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := Load(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrConfiguration)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateWeightMatrix(t *testing.T) {
	ok := types.WeightMatrix{"Flooding": {"Low": 0.5, "High": 2.0, "NA": 0}}
	assert.NoError(t, ValidateWeightMatrix(ok))

	bad := types.WeightMatrix{"Flooding": {"High": 2.5}}
	err := ValidateWeightMatrix(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConfiguration)
	assert.Contains(t, err.Error(), "Flooding/High")
}
