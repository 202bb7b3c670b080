// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonial-oss/resilience-sim/internal/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		severity float64
		want     State
	}{
		{0, Normal},
		{3.99, Normal},
		{4.0, Degraded},
		{7.99, Degraded},
		{8.0, UnderAttack},
		{10, UnderAttack},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.severity), "severity %v", tt.severity)
	}
}

func TestAdjust(t *testing.T) {
	assert.InDelta(t, 80.0, Adjust(100, Normal), 1e-9)
	assert.InDelta(t, 90.0, Adjust(100, Degraded), 1e-9)
	assert.InDelta(t, 96.0, Adjust(100, UnderAttack), 1e-9)
	assert.InDelta(t, 42.28759, Adjust(43.1506, Failure), 1e-9)
	assert.Zero(t, Adjust(0, Normal))
}

func TestMachine(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, Normal, m.Current())

	impact, ok := m.Transition("Recovery")
	require.True(t, ok)
	assert.InDelta(t, 0.75, impact, 1e-9)
	assert.Equal(t, Recovery, m.Current())

	_, ok = m.Transition("Meltdown")
	assert.False(t, ok)
	assert.Equal(t, Recovery, m.Current())

	assert.Len(t, States(), 5)
}

func TestSimulate(t *testing.T) {
	assets := []types.Asset{
		{ID: "A", Name: "Alpha", CVEs: []string{"CVE-1", "CVE-2"}, CVEScores: map[string]float64{"CVE-1": 9.1, "CVE-2": 3}},
		{ID: "B", Name: "Bravo", CVEs: []string{"CVE-3"}, CVEScores: map[string]float64{"CVE-3": 5}},
		{ID: "C", Name: "Charlie"},
		// CVE-1 is only scored on A but still counts here.
		{ID: "D", Name: "Delta", CVEs: []string{"CVE-1", "CVE-404"}},
	}
	scores := &types.ResilienceResult{NodeScores: []types.NodeScore{
		{NodeID: "A", ResilienceScore: 50},
		{NodeID: "B", ResilienceScore: 60},
		{NodeID: "D", ResilienceScore: 70},
	}}

	got := Simulate(assets, scores)

	require.Len(t, got, 4)
	assert.Equal(t, Adjustment{NodeID: "A", NodeName: "Alpha", State: "Under Attack", WorstSeverity: 9.1, InitialScore: 50, AdjustedScore: 48}, got[0])
	assert.Equal(t, "Degraded", got[1].State)
	assert.InDelta(t, 54.0, got[1].AdjustedScore, 1e-9)
	assert.Equal(t, "Normal", got[2].State, "no vulnerabilities, not the previous asset's state")
	assert.InDelta(t, 100.0, got[2].InitialScore, 1e-9, "missing score defaults to 100")
	assert.InDelta(t, 80.0, got[2].AdjustedScore, 1e-9)
	assert.Equal(t, "Under Attack", got[3].State)
}

func TestSimulate_NilScores(t *testing.T) {
	got := Simulate([]types.Asset{{ID: "A", Name: "A"}}, nil)
	assert.InDelta(t, 80.0, got[0].AdjustedScore, 1e-9)
}
