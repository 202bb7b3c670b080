// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package resilience combines vulnerability, structural, criticality,
// redundancy and environmental factors into per-asset resilience scores.
package resilience

import (
	"fmt"
	"math"

	"github.com/bonial-oss/resilience-sim/internal/centrality"
	"github.com/bonial-oss/resilience-sim/internal/config"
	"github.com/bonial-oss/resilience-sim/internal/fuzzy"
	"github.com/bonial-oss/resilience-sim/internal/topology"
	"github.com/bonial-oss/resilience-sim/internal/types"
)

// Inputs is the environmental risk profile of one scoring run.
type Inputs struct {
	WorkAreas []types.WorkArea
	FuzzySets types.FuzzySets
}

// Recompute scores every asset of g. It reads g and in without modifying
// them, so concurrent calls over the same snapshot are safe.
//
// Each asset's CVE list and severity map are expected to agree, as
// input.ParseAssets guarantees; severities listed only in the map are
// still summed.
func Recompute(g *topology.Graph, in Inputs, cfg config.Scoring) (*types.ResilienceResult, error) {
	n := g.Len()
	if n == 0 {
		return nil, fmt.Errorf("%w: no assets to score", types.ErrMalformedInput)
	}

	cent := centrality.Compute(g, centrality.Options{
		MaxIterations: cfg.Eigenvector.MaxIterations,
		Tolerance:     cfg.Eigenvector.Tolerance,
	})
	areaRisk := fuzzy.AllWorkAreas(in.WorkAreas, in.FuzzySets)

	result := &types.ResilienceResult{
		NodeScores:           make([]types.NodeScore, n),
		Metrics:              make([]types.NodeMetrics, n),
		EigenvectorConverged: cent.Converged,
	}
	if !cent.Converged {
		result.Issues = append(result.Issues, types.Issue{
			Kind:   types.ErrNumericDegenerate,
			Detail: fmt.Sprintf("eigenvector centrality did not converge in %d iterations; using 0", cent.Iterations),
		})
	}

	var total float64
	for i := range n {
		a := g.Asset(i)
		m := types.NodeMetrics{
			NodeID:            a.ID,
			NodeName:          a.Name,
			CVEScore:          a.TotalSeverity(),
			Centrality:        cent.Average[i],
			Connectedness:     float64(g.Degree(i)),
			SwitchDependency:  switchDependency(a, cfg),
			Redundancy:        redundancyFactor(a, cfg),
			Criticality:       criticality(a, cfg),
			EnvironmentalRisk: fuzzy.AssetRisk(a.CriticalFunctions, cfg.FunctionWorkAreas, areaRisk),
		}

		score, issue := finalScore(m, cfg)
		if issue != nil {
			issue.AssetID = a.ID
			result.Issues = append(result.Issues, *issue)
		}
		result.Metrics[i] = m
		result.NodeScores[i] = types.NodeScore{NodeID: a.ID, NodeName: a.Name, ResilienceScore: score}
		total += score
	}
	result.SystemScore = Round(total/float64(n), 5)
	return result, nil
}

// finalScore applies the weighted penalties, divides by the environmental
// risk and clamps to [floor, base].
func finalScore(m types.NodeMetrics, cfg config.Scoring) (float64, *types.Issue) {
	w := cfg.Weights
	raw := cfg.BaseScore -
		m.CVEScore*w.CVE -
		m.Centrality*w.Centrality -
		m.Connectedness*w.Connectedness -
		m.SwitchDependency*w.SwitchDependency -
		m.Criticality*w.Criticality +
		m.Redundancy*w.Redundancy

	var issue *types.Issue
	divisor := 1 + m.EnvironmentalRisk
	if divisor <= 0 || math.IsNaN(divisor) {
		issue = &types.Issue{
			Kind:   types.ErrNumericDegenerate,
			Detail: fmt.Sprintf("environmental risk %g gives a non-positive divisor; score floored", m.EnvironmentalRisk),
		}
		return cfg.ScoreFloor, issue
	}
	score := raw / divisor
	score = math.Max(score, cfg.ScoreFloor)
	score = math.Min(score, cfg.BaseScore)
	return Round(score, 5), nil
}

func switchDependency(a *types.Asset, cfg config.Scoring) float64 {
	if a.SwitchDependencyWeight != nil {
		return *a.SwitchDependencyWeight
	}
	return cfg.DefaultSwitchDependency
}

func redundancyFactor(a *types.Asset, cfg config.Scoring) float64 {
	if a.Redundancy {
		return cfg.RedundantFactor
	}
	return cfg.NonRedundantFactor
}

func criticality(a *types.Asset, cfg config.Scoring) float64 {
	var sum float64
	for _, fn := range a.CriticalFunctions {
		w, ok := cfg.FunctionWeights[fn]
		if !ok {
			w = cfg.DefaultFunctionWeight
		}
		sum += w
	}
	return sum
}

// Round rounds half away from zero to the given number of decimals.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
