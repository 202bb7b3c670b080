// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package metrics records run statistics in a private Prometheus registry
// that can be written out in the textfile exposition format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bonial-oss/resilience-sim/internal/types"
)

// NVD request outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeNoData    = "no_data"
	OutcomeHTTPError = "http_error"
	OutcomeCached    = "cached"
)

// Recorder holds every collector. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	RecomputeTotal     prometheus.Counter
	AssetsScoredTotal  prometheus.Counter
	InputIssuesTotal   *prometheus.CounterVec
	SimEntryPoints     prometheus.Counter
	SimReachableAssets prometheus.Histogram
	NVDRequestsTotal   *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		RecomputeTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resilience_recompute_total",
			Help: "Number of resilience recomputations",
		}),
		AssetsScoredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resilience_assets_scored_total",
			Help: "Number of asset scores produced",
		}),
		InputIssuesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resilience_input_issues_total",
				Help: "Non-fatal issues found while loading or computing",
			},
			[]string{"kind"},
		),
		SimEntryPoints: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resilience_sim_entry_points_total",
			Help: "Entry points traversed by the attack simulator",
		}),
		SimReachableAssets: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "resilience_sim_reachable_assets",
			Help:    "Assets reachable from a single entry point",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		NVDRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resilience_nvd_requests_total",
				Help: "CVSS metadata lookups by outcome",
			},
			[]string{"outcome"},
		),
	}
	r.registry.MustRegister(
		r.RecomputeTotal,
		r.AssetsScoredTotal,
		r.InputIssuesTotal,
		r.SimEntryPoints,
		r.SimReachableAssets,
		r.NVDRequestsTotal,
	)
	return r
}

// Registry returns the underlying Prometheus registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveScoring records one recompute run.
func (r *Recorder) ObserveScoring(result *types.ResilienceResult) {
	if r == nil || result == nil {
		return
	}
	r.RecomputeTotal.Inc()
	r.AssetsScoredTotal.Add(float64(len(result.NodeScores)))
	r.ObserveIssues(result.Issues)
}

// ObserveIssues counts issues by kind.
func (r *Recorder) ObserveIssues(issues []types.Issue) {
	if r == nil {
		return
	}
	for _, issue := range issues {
		r.InputIssuesTotal.WithLabelValues(issue.KindName()).Inc()
	}
}

// ObserveTraversal records the reach of one entry point.
func (r *Recorder) ObserveTraversal(reachable int) {
	if r == nil {
		return
	}
	r.SimEntryPoints.Inc()
	r.SimReachableAssets.Observe(float64(reachable))
}

// ObserveNVDRequest counts one metadata lookup.
func (r *Recorder) ObserveNVDRequest(outcome string) {
	if r == nil {
		return
	}
	r.NVDRequestsTotal.WithLabelValues(outcome).Inc()
}

// WriteTextfile writes the registry for the node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
