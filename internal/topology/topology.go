// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package topology holds the in-memory asset graph. Connections are stored
// twice: as an undirected neighbour relation for structural metrics and as
// the directed relation exactly as listed in each asset's connected_to.
package topology

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bonial-oss/resilience-sim/internal/types"
)

// DanglingError lists connections that reference unknown assets.
type DanglingError struct {
	Refs []types.Edge
}

func (e *DanglingError) Error() string {
	parts := make([]string, len(e.Refs))
	for i, r := range e.Refs {
		parts[i] = fmt.Sprintf("%s->%s", r.Source, r.Target)
	}
	return fmt.Sprintf("%s: dangling connections: %s", types.ErrMalformedInput, strings.Join(parts, ", "))
}

// Unwrap lets errors.Is match ErrMalformedInput.
func (e *DanglingError) Unwrap() error { return types.ErrMalformedInput }

// Graph is an immutable snapshot of the topology. It must not be modified
// after Build returns.
type Graph struct {
	assets     []types.Asset
	index      map[string]int
	neighbours [][]int
	successors [][]int
}

// Build constructs the graph and fails on any dangling connection.
// Self-connections are ignored.
func Build(assets []types.Asset) (*Graph, error) {
	g, dangling, _, err := build(assets)
	if err != nil {
		return nil, err
	}
	if len(dangling) > 0 {
		return nil, &DanglingError{Refs: dangling}
	}
	return g, nil
}

// BuildLenient drops dangling and self-referencing connections, reporting
// each as an Issue.
func BuildLenient(assets []types.Asset) (*Graph, []types.Issue, error) {
	g, dangling, issues, err := build(assets)
	if err != nil {
		return nil, nil, err
	}
	for _, d := range dangling {
		issues = append(issues, types.Issue{
			Kind:    types.ErrMalformedInput,
			AssetID: d.Source,
			Detail:  fmt.Sprintf("connection to unknown asset %q dropped", d.Target),
		})
	}
	return g, issues, nil
}

func build(assets []types.Asset) (*Graph, []types.Edge, []types.Issue, error) {
	g := &Graph{
		assets: make([]types.Asset, len(assets)),
		index:  make(map[string]int, len(assets)),
	}
	for i := range assets {
		id := assets[i].ID
		if _, dup := g.index[id]; dup {
			return nil, nil, nil, fmt.Errorf("%w: %q", types.ErrDuplicateAsset, id)
		}
		g.index[id] = i
		g.assets[i] = assets[i].Clone()
	}

	n := len(assets)
	undirected := make([]map[int]struct{}, n)
	directed := make([]map[int]struct{}, n)
	for i := range n {
		undirected[i] = make(map[int]struct{})
		directed[i] = make(map[int]struct{})
	}

	var dangling []types.Edge
	var issues []types.Issue
	for i := range g.assets {
		src := &g.assets[i]
		for _, target := range src.ConnectedTo {
			j, ok := g.index[target]
			if !ok {
				dangling = append(dangling, types.Edge{Source: src.ID, Target: target})
				continue
			}
			if j == i {
				issues = append(issues, types.Issue{
					Kind:    types.ErrMalformedInput,
					AssetID: src.ID,
					Detail:  "self-connection ignored",
				})
				continue
			}
			directed[i][j] = struct{}{}
			undirected[i][j] = struct{}{}
			undirected[j][i] = struct{}{}
		}
	}

	g.neighbours = sortedAdjacency(undirected)
	g.successors = sortedAdjacency(directed)
	return g, dangling, issues, nil
}

func sortedAdjacency(sets []map[int]struct{}) [][]int {
	out := make([][]int, len(sets))
	for i, set := range sets {
		adj := make([]int, 0, len(set))
		for j := range set {
			adj = append(adj, j)
		}
		sort.Ints(adj)
		out[i] = adj
	}
	return out
}

// Len returns the number of vertices.
func (g *Graph) Len() int { return len(g.assets) }

// Assets returns the asset snapshot in input order. Callers must not modify it.
func (g *Graph) Assets() []types.Asset { return g.assets }

// Asset returns the asset at vertex i.
func (g *Graph) Asset(i int) *types.Asset { return &g.assets[i] }

// Lookup returns the asset with the given identifier.
func (g *Graph) Lookup(id string) (*types.Asset, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return &g.assets[i], true
}

// Index returns the vertex index of id.
func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Neighbours returns the sorted undirected neighbours of vertex i.
func (g *Graph) Neighbours(i int) []int { return g.neighbours[i] }

// Successors returns the sorted directed successors of vertex i.
func (g *Graph) Successors(i int) []int { return g.successors[i] }

// Degree is the undirected degree of vertex i.
func (g *Graph) Degree(i int) int { return len(g.neighbours[i]) }

// Edges returns every undirected edge once, with Source < Target by index.
func (g *Graph) Edges() []types.Edge {
	var edges []types.Edge
	for i, adj := range g.neighbours {
		for _, j := range adj {
			if i < j {
				edges = append(edges, types.Edge{Source: g.assets[i].ID, Target: g.assets[j].ID})
			}
		}
	}
	return edges
}
