// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package centrality

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonial-oss/resilience-sim/internal/topology"
	"github.com/bonial-oss/resilience-sim/internal/types"
)

func graph(t *testing.T, edges map[string][]string, order ...string) *topology.Graph {
	t.Helper()
	assets := make([]types.Asset, len(order))
	for i, id := range order {
		assets[i] = types.Asset{ID: id, Name: id, ConnectedTo: edges[id]}
	}
	g, err := topology.Build(assets)
	require.NoError(t, err)
	return g
}

func path(t *testing.T) *topology.Graph {
	return graph(t, map[string][]string{"A": {"B"}, "B": {"C"}}, "A", "B", "C")
}

func TestDegree(t *testing.T) {
	assert.InDeltaSlice(t, []float64{0.5, 1, 0.5}, Degree(path(t)), 1e-9)
	assert.InDeltaSlice(t, []float64{1}, Degree(graph(t, nil, "solo")), 1e-9)
}

func TestBetweenness(t *testing.T) {
	assert.InDeltaSlice(t, []float64{0, 1, 0}, Betweenness(path(t)), 1e-9)

	star := graph(t, map[string][]string{"X": {"L1", "L2", "L3"}}, "X", "L1", "L2", "L3")
	assert.InDeltaSlice(t, []float64{1, 0, 0, 0}, Betweenness(star), 1e-9)

	// Two equal shortest paths through B and C split the credit.
	square := graph(t, map[string][]string{"A": {"B", "C"}, "D": {"B", "C"}}, "A", "B", "C", "D")
	assert.InDeltaSlice(t, []float64{1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6}, Betweenness(square), 1e-9)
}

func TestCloseness(t *testing.T) {
	assert.InDeltaSlice(t, []float64{2.0 / 3, 1, 2.0 / 3}, Closeness(path(t)), 1e-9)

	split := graph(t, map[string][]string{"A": {"B"}, "B": {"C"}, "D": {"E"}}, "A", "B", "C", "D", "E")
	got := Closeness(split)
	assert.InDelta(t, 0.25, got[3], 1e-9, "small component is scaled down")
	assert.InDelta(t, 0.5, got[1], 1e-9)
}

func TestEigenvector_Path(t *testing.T) {
	got, iters, ok := Eigenvector(path(t), DefaultMaxIterations, DefaultTolerance)
	require.True(t, ok)
	assert.Greater(t, iters, 1)
	assert.InDelta(t, 0.5, got[0], 1e-4)
	assert.InDelta(t, 1/math.Sqrt2, got[1], 1e-4)
	assert.InDelta(t, 0.5, got[2], 1e-4)
}

func TestEigenvector_NonConvergenceFallsBackToZero(t *testing.T) {
	// A path plus an isolated 2-cycle cannot settle within a single round.
	g := graph(t, map[string][]string{"A": {"B"}, "B": {"C"}, "D": {"E"}, "E": {"D"}}, "A", "B", "C", "D", "E")

	got, iters, ok := Eigenvector(g, 1, DefaultTolerance)
	assert.False(t, ok)
	assert.Equal(t, 1, iters)
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, got)

	r := Compute(g, Options{MaxIterations: 1})
	assert.False(t, r.Converged)
	for i := range r.Average {
		want := (r.Degree[i] + r.Betweenness[i] + r.Closeness[i]) / 4
		assert.InDelta(t, want, r.Average[i], 1e-12)
	}
}

func TestCompute_Average(t *testing.T) {
	g := path(t)
	r := Compute(g, Options{})
	require.True(t, r.Converged)

	want := (1.0 + 1.0 + 1.0 + 1/math.Sqrt2) / 4
	assert.InDelta(t, want, r.Average[1], 1e-4)
	for _, v := range r.Average {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestCompute_SingleVertex(t *testing.T) {
	g := graph(t, nil, "solo")
	r := Compute(g, Options{})

	assert.True(t, r.Converged)
	assert.InDelta(t, 0.5, r.Average[0], 1e-9)
}
