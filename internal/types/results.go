// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package types

// NodeScore is the resilience score record of one asset.
type NodeScore struct {
	NodeID          string  `json:"node_id"`
	NodeName        string  `json:"node_name"`
	ResilienceScore float64 `json:"resilience_score"`
}

// NodeMetrics is the per-factor breakdown behind a NodeScore.
type NodeMetrics struct {
	NodeID            string  `json:"node_id"`
	NodeName          string  `json:"node_name"`
	CVEScore          float64 `json:"cve_score"`
	Centrality        float64 `json:"centrality"`
	Connectedness     float64 `json:"connectedness"`
	SwitchDependency  float64 `json:"switch_dependency"`
	Redundancy        float64 `json:"redundancy"`
	Criticality       float64 `json:"criticality"`
	EnvironmentalRisk float64 `json:"environmental_risk"`
}

// ResilienceResult is the output of one scoring run.
type ResilienceResult struct {
	SystemScore float64     `json:"system_resilience_score"`
	NodeScores  []NodeScore `json:"node_scores"`
	// Metrics is only emitted when the caller asks for the breakdown.
	Metrics []NodeMetrics `json:"node_metrics,omitempty"`
	// EigenvectorConverged is false when eigenvector centrality fell back to 0.
	EigenvectorConverged bool    `json:"eigenvector_converged"`
	Issues               []Issue `json:"issues,omitempty"`
}

// Score returns the score of the given asset and whether it was found.
func (r *ResilienceResult) Score(nodeID string) (float64, bool) {
	for _, s := range r.NodeScores {
		if s.NodeID == nodeID {
			return s.ResilienceScore, true
		}
	}
	return 0, false
}

// Edge is a directed attack-graph edge.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
