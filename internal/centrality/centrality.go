// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package centrality computes normalised structural-importance measures over
// the undirected topology. Values match the conventional networkx
// definitions so scores stay comparable with earlier assessments.
package centrality

import (
	"math"

	"github.com/bonial-oss/resilience-sim/internal/topology"
)

// Default power-iteration bounds for eigenvector centrality.
const (
	DefaultMaxIterations = 1000
	DefaultTolerance     = 1e-6
)

// Options bounds the eigenvector power iteration.
type Options struct {
	MaxIterations int
	Tolerance     float64
}

// Result holds every measure indexed by vertex.
type Result struct {
	Degree      []float64
	Betweenness []float64
	Closeness   []float64
	Eigenvector []float64
	// Average is the arithmetic mean of the four measures.
	Average []float64
	// Converged is false when the eigenvector iteration hit its cap and
	// every eigenvector value fell back to 0.
	Converged  bool
	Iterations int
}

// Compute runs all four measures.
func Compute(g *topology.Graph, opts Options) *Result {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}

	r := &Result{
		Degree:      Degree(g),
		Betweenness: Betweenness(g),
		Closeness:   Closeness(g),
	}
	r.Eigenvector, r.Iterations, r.Converged = Eigenvector(g, opts.MaxIterations, opts.Tolerance)

	r.Average = make([]float64, g.Len())
	for i := range r.Average {
		r.Average[i] = (r.Degree[i] + r.Betweenness[i] + r.Closeness[i] + r.Eigenvector[i]) / 4
	}
	return r
}

// Degree is deg(v)/(n-1); a single vertex scores 1.
func Degree(g *topology.Graph) []float64 {
	n := g.Len()
	out := make([]float64, n)
	if n == 1 {
		out[0] = 1
		return out
	}
	for i := range n {
		out[i] = float64(g.Degree(i)) / float64(n-1)
	}
	return out
}

// Betweenness runs Brandes' algorithm over unweighted shortest paths and
// normalises by 1/((n-1)(n-2)).
func Betweenness(g *topology.Graph) []float64 {
	n := g.Len()
	bc := make([]float64, n)

	sigma := make([]float64, n)
	dist := make([]int, n)
	delta := make([]float64, n)
	preds := make([][]int, n)
	stack := make([]int, 0, n)
	queue := make([]int, 0, n)

	for s := range n {
		for i := range n {
			sigma[i] = 0
			dist[i] = -1
			delta[i] = 0
			preds[i] = preds[i][:0]
		}
		stack = stack[:0]
		queue = append(queue[:0], s)
		sigma[s] = 1
		dist[s] = 0

		for head := 0; head < len(queue); head++ {
			v := queue[head]
			stack = append(stack, v)
			for _, w := range g.Neighbours(v) {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				bc[w] += delta[w]
			}
		}
	}

	if n > 2 {
		norm := 1 / float64((n-1)*(n-2))
		for i := range bc {
			bc[i] *= norm
		}
	}
	return bc
}

// Closeness uses the Wasserman-Faust scaling so vertices in small components
// are not over-rated: (r/sum(d)) * (r/(n-1)) where r is the number of
// vertices reachable from v.
func Closeness(g *topology.Graph) []float64 {
	n := g.Len()
	out := make([]float64, n)
	if n <= 1 {
		return out
	}
	dist := make([]int, n)
	queue := make([]int, 0, n)
	for s := range n {
		for i := range dist {
			dist[i] = -1
		}
		dist[s] = 0
		queue = append(queue[:0], s)
		total, reached := 0, 0
		for head := 0; head < len(queue); head++ {
			v := queue[head]
			for _, w := range g.Neighbours(v) {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					total += dist[w]
					reached++
					queue = append(queue, w)
				}
			}
		}
		if total > 0 {
			r := float64(reached)
			out[s] = (r / float64(total)) * (r / float64(n-1))
		}
	}
	return out
}

// Eigenvector runs power iteration on A+I with L2 normalisation. The shift
// keeps bipartite graphs from oscillating without changing the eigenvector.
// If the iteration does not converge within maxIter rounds every value is 0.
func Eigenvector(g *topology.Graph, maxIter int, tol float64) ([]float64, int, bool) {
	n := g.Len()
	out := make([]float64, n)
	if n == 0 {
		return out, 0, true
	}

	x := make([]float64, n)
	for i := range x {
		x[i] = 1 / float64(n)
	}
	last := make([]float64, n)

	for iter := 1; iter <= maxIter; iter++ {
		copy(last, x)
		for v := range n {
			sum := last[v]
			for _, w := range g.Neighbours(v) {
				sum += last[w]
			}
			x[v] = sum
		}

		var norm float64
		for _, v := range x {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			norm = 1
		}
		for i := range x {
			x[i] /= norm
		}

		var diff float64
		for i := range x {
			diff += math.Abs(x[i] - last[i])
		}
		if diff < float64(n)*tol {
			copy(out, x)
			return out, iter, true
		}
	}
	return out, maxIter, false
}
